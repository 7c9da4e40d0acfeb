package reporter

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/bridge"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/common"
	"github.com/TEENet-io/tokenbridge/ratelimit"
	"github.com/TEENet-io/tokenbridge/state"
)

var (
	ErrInvalidID     = errors.New("id must be a 32-byte hex string")
	ErrInvalidStatus = errors.New("status must be pending, executed or rejected")
)

func parseID(s string) (ethcommon.Hash, error) {
	b, err := hex.DecodeString(common.Trim0xPrefix(s))
	if err != nil || len(b) != ethcommon.HashLength {
		return ethcommon.Hash{}, ErrInvalidID
	}
	return ethcommon.BytesToHash(b), nil
}

// Message returns one indexed message by id.
func (h *HttpReporter) Message(c *gin.Context) {
	id, err := parseID(c.Query("id"))
	if err != nil {
		badRequest(c, err)
		return
	}

	msg, ok, err := h.statedb.GetMessage(id)
	if err != nil {
		internalError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No message found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": msg.ToJSON()})
}

// Messages lists indexed messages with the given status.
func (h *HttpReporter) Messages(c *gin.Context) {
	status := agreement.MessageStatus(c.DefaultQuery("status", string(agreement.MessageStatusPending)))
	switch status {
	case agreement.MessageStatusPending, agreement.MessageStatusExecuted, agreement.MessageStatusRejected:
	default:
		badRequest(c, ErrInvalidStatus)
		return
	}

	msgs, err := h.statedb.GetMessagesByStatus(status)
	if err != nil {
		internalError(c, err)
		return
	}
	data := make([]*state.JSONMessage, 0, len(msgs))
	for _, m := range msgs {
		data = append(data, m.ToJSON())
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Requests lists outbound requests made for a recipient.
func (h *HttpReporter) Requests(c *gin.Context) {
	recipient, err := common.HexStrToAddress(c.Query("recipient"))
	if err != nil {
		badRequest(c, err)
		return
	}

	reqs, err := h.statedb.GetRequestsByRecipient(recipient)
	if err != nil {
		internalError(c, err)
		return
	}
	data := make([]*state.JSONRequest, 0, len(reqs))
	for _, r := range reqs {
		data = append(data, r.ToJSON())
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Signatures lists the indexed validator signatures of a message.
func (h *HttpReporter) Signatures(c *gin.Context) {
	id, err := parseID(c.Query("id"))
	if err != nil {
		badRequest(c, err)
		return
	}

	sigs, err := h.statedb.GetSignatures(id)
	if err != nil {
		internalError(c, err)
		return
	}
	data := make([]*state.JSONSignature, 0, len(sigs))
	for _, s := range sigs {
		data = append(data, s.ToJSON())
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *HttpReporter) TokenBalance(c *gin.Context) {
	ch := chainOf(c)
	addr, err := common.HexStrToAddress(c.Query("address"))
	if err != nil {
		badRequest(c, err)
		return
	}

	var balance string
	ch.Env.View(func() {
		balance = ch.Token.BalanceOf(addr).String()
	})
	c.JSON(http.StatusOK, gin.H{
		"address": addr.String(),
		"balance": balance,
	})
}

func (h *HttpReporter) TokenSupply(c *gin.Context) {
	ch := chainOf(c)

	var resp gin.H
	ch.Env.View(func() {
		resp = gin.H{
			"token":        ch.Token.Address().String(),
			"name":         ch.Token.Name(),
			"symbol":       ch.Token.Symbol(),
			"decimals":     ch.Token.Decimals(),
			"total_supply": ch.Token.TotalSupply().String(),
		}
	})
	c.JSON(http.StatusOK, resp)
}

type JSONLimits struct {
	DailyLimit          string `json:"daily_limit"`
	MaxPerTx            string `json:"max_per_tx"`
	MinPerTx            string `json:"min_per_tx"`
	ExecutionDailyLimit string `json:"execution_daily_limit"`
	ExecutionMaxPerTx   string `json:"execution_max_per_tx"`
}

func limitsToJSON(l *ratelimit.Limits) *JSONLimits {
	return &JSONLimits{
		DailyLimit:          l.DailyLimit.String(),
		MaxPerTx:            l.MaxPerTx.String(),
		MinPerTx:            l.MinPerTx.String(),
		ExecutionDailyLimit: l.ExecutionDailyLimit.String(),
		ExecutionMaxPerTx:   l.ExecutionMaxPerTx.String(),
	}
}

// Bridge reports the endpoint configuration and today's spent amounts.
func (h *HttpReporter) Bridge(c *gin.Context) {
	ch := chainOf(c)

	var resp gin.H
	ch.Env.View(func() {
		e := ch.Endpoint
		day := ratelimit.DayIndex(ch.Env.Now())
		resp = gin.H{
			"address":                      e.Address().String(),
			"side":                         string(e.Side()),
			"chain_id":                     ch.Env.ChainID().String(),
			"owner":                        e.Owner().String(),
			"token":                        ch.Token.Address().String(),
			"quorum":                       e.Quorum().Address().String(),
			"required_block_confirmations": e.RequiredBlockConfirmations(),
			"gas_price":                    e.GasPrice().String(),
			"limits":                       limitsToJSON(e.Limits()),
			"day":                          day,
			"spent_outbound":               e.SpentOutbound(day).String(),
			"spent_inbound":                e.SpentInbound(day).String(),
		}
	})
	c.JSON(http.StatusOK, resp)
}

func (h *HttpReporter) Validators(c *gin.Context) {
	ch := chainOf(c)

	var resp gin.H
	ch.Env.View(func() {
		q := ch.Endpoint.Quorum()
		validators := []string{}
		for _, v := range q.Validators() {
			validators = append(validators, v.String())
		}
		resp = gin.H{
			"quorum":              q.Address().String(),
			"required_signatures": q.RequiredSignatures(),
			"validators":          validators,
		}
	})
	c.JSON(http.StatusOK, resp)
}

// SignatureRequest is a validator attestation posted by a validator client.
type SignatureRequest struct {
	ID          string `json:"id" binding:"required"`
	Recipient   string `json:"recipient" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	SourceChain string `json:"source_chain" binding:"required"`
	Signature   string `json:"signature" binding:"required"`
}

func (r *SignatureRequest) decode() (*bridge.Message, []byte, error) {
	id, err := parseID(r.ID)
	if err != nil {
		return nil, nil, err
	}
	recipient, err := common.HexStrToAddress(r.Recipient)
	if err != nil {
		return nil, nil, err
	}
	amount, err := common.DecStrToBigInt(r.Amount)
	if err != nil {
		return nil, nil, fmt.Errorf("amount: %w", err)
	}
	sourceChain, err := common.DecStrToBigInt(r.SourceChain)
	if err != nil {
		return nil, nil, fmt.Errorf("source_chain: %w", err)
	}
	sig, err := hex.DecodeString(common.Trim0xPrefix(r.Signature))
	if err != nil {
		return nil, nil, fmt.Errorf("signature: %w", err)
	}

	return &bridge.Message{
		ID:          id,
		Recipient:   recipient,
		Amount:      amount,
		SourceChain: sourceChain,
	}, sig, nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, agreement.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, agreement.ErrAlreadyExecuted):
		return http.StatusConflict
	case errors.Is(err, agreement.ErrInvalidMessage),
		errors.Is(err, agreement.ErrInvalidRecipient),
		errors.Is(err, agreement.ErrInvalidSignature):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// SubmitSignature forwards an attestation to the endpoint of :chain, sent
// by the relayer account.
func (h *HttpReporter) SubmitSignature(c *gin.Context) {
	ch := chainOf(c)

	var req SignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msg, sig, err := req.decode()
	if err != nil {
		badRequest(c, err)
		return
	}

	receipt, err := ch.Env.Transact(h.relayer, func(call *chain.Call) error {
		return ch.Endpoint.SubmitSignature(call, msg, sig)
	})
	if err != nil {
		logger.WithFields(logger.Fields{
			"side": string(ch.Endpoint.Side()),
			"id":   msg.ID.String(),
		}).Debugf("attestation refused: %v", err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}

	var status agreement.MessageStatus
	ch.Env.View(func() {
		status = ch.Endpoint.Status(msg.ID)
	})
	c.JSON(http.StatusOK, gin.H{
		"tx_hash": receipt.TxHash.String(),
		"status":  string(status),
	})
}
