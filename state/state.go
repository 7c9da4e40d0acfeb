package state

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/bridge"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/common"
	"github.com/TEENet-io/tokenbridge/ledger"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	logger "github.com/sirupsen/logrus"
)

const MinFrequencyToSync = 100 * time.Millisecond

var (
	ErrInvalidConfig   = errors.New("invalid state config")
	ErrGetCursor       = errors.New("failed to get log cursor from statedb")
	ErrSetCursor       = errors.New("failed to set log cursor in statedb")
	ErrInsertRequest   = errors.New("failed to insert request in statedb")
	ErrInsertMessage   = errors.New("failed to insert message in statedb")
	ErrUpdateMessage   = errors.New("failed to update message in statedb")
	ErrInsertSignature = errors.New("failed to insert signature in statedb")
	ErrInsertTransfer  = errors.New("failed to insert transfer in statedb")
)

// CursorKey is the kv key holding the last indexed log sequence of a side.
func CursorKey(side agreement.Side) ethcommon.Hash {
	return crypto.Keccak256Hash([]byte("logCursor:" + string(side)))
}

// State indexes the committed logs of one chain into the statedb.
type State struct {
	db  *StateDB
	cfg *Config

	cursor uint64
}

var _ agreement.Indexer = (*State)(nil)

func New(db *StateDB, cfg *Config) (*State, error) {
	if cfg == nil || cfg.Env == nil || !cfg.Side.IsValid() ||
		common.IsZeroAddress(cfg.Endpoint) || common.IsZeroAddress(cfg.Token) {
		return nil, ErrInvalidConfig
	}

	st := &State{db: db, cfg: cfg}

	stored, ok, err := db.GetKeyedValue(CursorKey(cfg.Side))
	if err != nil {
		logger.Errorf("failed to get log cursor: side=%s, err=%v", cfg.Side, err)
		return nil, ErrGetCursor
	}
	if ok {
		st.cursor = new(big.Int).SetBytes(stored[:]).Uint64()
	}
	logger.WithFields(logger.Fields{
		"side":   cfg.Side,
		"cursor": st.cursor,
	}).Debug("state loaded")

	return st, nil
}

func (st *State) Cursor() uint64 {
	return st.cursor
}

func (st *State) Start(ctx context.Context) error {
	newLogger := logger.WithField("side", st.cfg.Side)
	newLogger.Info("starting state sync")

	d := st.cfg.FrequencyToSync
	if d < MinFrequencyToSync {
		d = MinFrequencyToSync
	}
	ticker := time.NewTicker(d)
	defer func() {
		newLogger.Info("stopping state sync")
		ticker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := st.Sync(); err != nil {
				newLogger.Errorf("failed to sync: err=%v", err)
				return err
			}
		}
	}
}

// Sync indexes the logs committed since the last pass and returns how
// many were read.
func (st *State) Sync() (int, error) {
	logs := st.cfg.Env.LogsSince(st.cursor, st.cfg.BatchSize)
	for _, l := range logs {
		if err := st.handle(l); err != nil {
			return 0, err
		}
		if err := st.setCursor(l.Seq); err != nil {
			return 0, err
		}
	}

	if len(logs) > 0 {
		logger.WithFields(logger.Fields{
			"side":   st.cfg.Side,
			"logs":   len(logs),
			"cursor": st.cursor,
		}).Debug("state synced")
	}
	return len(logs), nil
}

func (st *State) setCursor(seq uint64) error {
	value := ethcommon.BigToHash(new(big.Int).SetUint64(seq))
	if err := st.db.SetKeyedValue(CursorKey(st.cfg.Side), value); err != nil {
		logger.Errorf("failed to set log cursor: side=%s, err=%v", st.cfg.Side, err)
		return ErrSetCursor
	}
	st.cursor = seq
	return nil
}

func (st *State) handle(l *chain.Log) error {
	switch l.Address {
	case st.cfg.Endpoint:
		return st.handleEndpointEvent(l)
	case st.cfg.Token:
		return st.handleTokenEvent(l)
	}
	return nil
}

func (st *State) handleEndpointEvent(l *chain.Log) error {
	newLogger := logger.WithFields(logger.Fields{
		"side": st.cfg.Side,
		"tx":   common.Shorten(l.TxHash.String(), 8),
		"ev":   l.Event.EventName(),
	})

	switch ev := l.Event.(type) {
	case *bridge.UserRequestForSignatureEvent:
		req := &Request{
			ID:          ev.MessageID,
			Chain:       st.cfg.Side,
			SourceChain: st.cfg.Env.ChainID(),
			TxHash:      l.TxHash,
			LogIndex:    l.Index,
			Sender:      ev.Sender,
			Recipient:   ev.Recipient,
			Amount:      ev.Amount,
		}
		if err := st.db.InsertRequest(req); err != nil {
			newLogger.Errorf("failed to insert request: err=%v", err)
			return ErrInsertRequest
		}
	case *bridge.MessageSubmittedEvent:
		msg := &Message{
			ID:           ev.MessageID,
			Chain:        st.cfg.Side,
			Recipient:    ev.Recipient,
			Amount:       ev.Amount,
			SourceChain:  ev.SourceChain,
			Status:       agreement.MessageStatusPending,
			SubmitTxHash: l.TxHash,
		}
		if err := st.db.InsertMessage(msg); err != nil {
			newLogger.Errorf("failed to insert message: err=%v", err)
			return ErrInsertMessage
		}
	case *bridge.SignedForMessageEvent:
		sig := &Signature{
			ID:        ev.MessageID,
			Validator: ev.Validator,
			Chain:     st.cfg.Side,
			Signature: ev.Signature,
			TxHash:    l.TxHash,
		}
		if err := st.db.InsertSignature(sig); err != nil {
			newLogger.Errorf("failed to insert signature: err=%v", err)
			return ErrInsertSignature
		}
	case *bridge.MessageExecutedEvent:
		// the executed content may differ from the first one submitted
		if err := st.db.UpdatePendingMessageContent(ev.MessageID, ev.Recipient, ev.Amount); err != nil {
			newLogger.Errorf("failed to update message: id=%s, err=%v", ev.MessageID.String(), err)
			return ErrUpdateMessage
		}
		if err := st.db.UpdateMessageStatus(ev.MessageID, agreement.MessageStatusExecuted, "", l.TxHash); err != nil {
			newLogger.Errorf("failed to update message: id=%s, err=%v", ev.MessageID.String(), err)
			return ErrUpdateMessage
		}
		newLogger.WithField("id", ev.MessageID.String()).Info("message executed")
	case *bridge.MessageRejectedEvent:
		if err := st.db.UpdateMessageStatus(ev.MessageID, agreement.MessageStatusRejected, ev.Reason, l.TxHash); err != nil {
			newLogger.Errorf("failed to update message: id=%s, err=%v", ev.MessageID.String(), err)
			return ErrUpdateMessage
		}
		newLogger.WithField("id", ev.MessageID.String()).Warnf("message rejected: %s", ev.Reason)
	}

	return nil
}

func (st *State) handleTokenEvent(l *chain.Log) error {
	ev, ok := l.Event.(*ledger.TransferEvent)
	if !ok {
		return nil
	}

	tr := &Transfer{
		Chain:    st.cfg.Side,
		Seq:      l.Seq,
		TxHash:   l.TxHash,
		LogIndex: l.Index,
		From:     ev.From,
		To:       ev.To,
		Amount:   ev.Value,
	}
	if err := st.db.InsertTransfer(tr); err != nil {
		logger.Errorf("failed to insert transfer: side=%s, err=%v", st.cfg.Side, err)
		return ErrInsertTransfer
	}
	return nil
}
