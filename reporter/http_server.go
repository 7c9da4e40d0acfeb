// This is a http type of reporter.
// It fetches data from the indexed statedb and the live chain envs,
// publishes them on http routes and takes validator attestations in.

package reporter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/bridge"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/ledger"
	"github.com/TEENet-io/tokenbridge/state"
)

const (
	ROUTE_HELLO      = "/hello"
	ROUTE_MESSAGE    = "/message"
	ROUTE_MESSAGES   = "/messages"
	ROUTE_REQUESTS   = "/requests"
	ROUTE_SIGNATURES = "/signatures"

	ROUTE_CHAIN            = "/chains/:chain"
	ROUTE_TOKEN_BALANCE    = "/token/balance"
	ROUTE_TOKEN_SUPPLY     = "/token/supply"
	ROUTE_BRIDGE           = "/bridge"
	ROUTE_VALIDATORS       = "/validators"
	ROUTE_CHAIN_SIGNATURES = "/signatures"

	shutdownTimeout = 5 * time.Second
)

var ErrUnknownChain = errors.New("unknown chain")

// Chain is one side of the bridge as seen by the reporter.
type Chain struct {
	Env      *chain.Env
	Token    *ledger.Ledger
	Endpoint *bridge.Endpoint
}

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data sources
	statedb *state.StateDB
	chains  map[agreement.Side]*Chain

	// sender of the attestation txs
	relayer ethcommon.Address
}

func NewHttpReporter(
	serverIP string,
	serverPort string,
	statedb *state.StateDB,
	chains map[agreement.Side]*Chain,
	relayer ethcommon.Address,
) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		statedb:    statedb,
		chains:     chains,
		relayer:    relayer,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_MESSAGE, h.Message)
	router.GET(ROUTE_MESSAGES, h.Messages)
	router.GET(ROUTE_REQUESTS, h.Requests)
	router.GET(ROUTE_SIGNATURES, h.Signatures)

	chains := router.Group(ROUTE_CHAIN, h.resolveChain)
	chains.GET(ROUTE_TOKEN_BALANCE, h.TokenBalance)
	chains.GET(ROUTE_TOKEN_SUPPLY, h.TokenSupply)
	chains.GET(ROUTE_BRIDGE, h.Bridge)
	chains.GET(ROUTE_VALIDATORS, h.Validators)
	chains.POST(ROUTE_CHAIN_SIGNATURES, h.SubmitSignature)

	return router
}

func (h *HttpReporter) Address() string {
	return net.JoinHostPort(h.serverIP, h.serverPort)
}

// Start serves until ctx is cancelled, then shuts the server down.
func (h *HttpReporter) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    h.Address(),
		Handler: h.SetupRouter(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("address", srv.Addr).Info("starting http reporter")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Errorf("http reporter stopped: err=%v", err)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("failed to shut down http reporter: err=%v", err)
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("stopping http reporter")
	return ctx.Err()
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// resolveChain puts the *Chain named by the :chain param into the context.
func (h *HttpReporter) resolveChain(c *gin.Context) {
	side := agreement.Side(c.Param("chain"))
	ch, ok := h.chains[side]
	if !side.IsValid() || !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": ErrUnknownChain.Error()})
		return
	}
	c.Set("chain", ch)
	c.Next()
}

func chainOf(c *gin.Context) *Chain {
	return c.MustGet("chain").(*Chain)
}
