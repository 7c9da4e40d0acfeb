// Server = home side + foreign side + db/state + http reporter.
// All components are configured via envionment variables (strings!).

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/bridge"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/database"
	"github.com/TEENet-io/tokenbridge/ledger"
	"github.com/TEENet-io/tokenbridge/logconfig"
	"github.com/TEENet-io/tokenbridge/quorum"
	"github.com/TEENet-io/tokenbridge/reporter"
	"github.com/TEENet-io/tokenbridge/state"
)

// Default params for server.
// More often we don't recommend users to tweak those.
// So we list them here.
const (
	defaultFrequencyToSync = 1 * time.Second
	defaultSyncBatchSize   = 256
)

var ErrSameChainID = errors.New("home and foreign chain ids must differ")

// Side holds the objects deployed on one chain.
type Side struct {
	Env      *chain.Env
	Token    *ledger.Ledger
	Quorum   *quorum.Quorum
	Endpoint *bridge.Endpoint
	Indexer  *state.State
}

func (s *Side) reporterChain() *reporter.Chain {
	return &reporter.Chain{Env: s.Env, Token: s.Token, Endpoint: s.Endpoint}
}

// BridgeServer holds the objects that consists of the bridge server.
type BridgeServer struct {
	Home    *Side
	Foreign *Side

	SqlDB     *sql.DB
	MyStateDb *state.StateDB
	Reporter  *reporter.HttpReporter
}

// deploy creates the token, quorum and endpoint of one side. fund runs in
// the same setup tx before ownership moves.
func deploy(
	side agreement.Side,
	pc *parsedChain,
	cc *ChainConfig,
	tc *TokenConfig,
	newAsset func(*ledger.Ledger) bridge.Asset,
	fund func(c *chain.Call, token *ledger.Ledger) error,
	endpointOwnsToken bool,
) (*Side, error) {
	env := chain.NewEnv(pc.chainID, chain.SystemClock{})

	token, err := ledger.New(env, &ledger.Config{
		Name:     tc.Name,
		Symbol:   tc.Symbol,
		Decimals: tc.Decimals,
		Owner:    pc.owner,
	})
	if err != nil {
		return nil, fmt.Errorf("%s token: %w", side, err)
	}
	q := quorum.New(env)
	e := bridge.New(env)

	_, err = env.Transact(pc.owner, func(c *chain.Call) error {
		if fund != nil {
			if err := fund(c, token); err != nil {
				return err
			}
		}
		if err := q.Initialize(c, cc.RequiredSignatures, pc.validators, pc.owner); err != nil {
			return err
		}
		if err := e.Initialize(c, &bridge.Config{
			Side:                       side,
			Quorum:                     q,
			Limits:                     pc.limits,
			Asset:                      newAsset(token),
			RequiredBlockConfirmations: cc.RequiredBlockConfirmations,
			GasPrice:                   pc.gasPrice,
			Owner:                      pc.owner,
		}); err != nil {
			return err
		}
		if err := token.SetBridgeContract(c, e.Address()); err != nil {
			return err
		}
		if endpointOwnsToken {
			return token.TransferOwnership(c, e.Address())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s setup: %w", side, err)
	}

	logger.WithFields(logger.Fields{
		"side":     side,
		"chain":    pc.chainID.String(),
		"token":    token.Address().String(),
		"quorum":   q.Address().String(),
		"endpoint": e.Address().String(),
	}).Info("bridge side deployed")

	return &Side{Env: env, Token: token, Quorum: q, Endpoint: e}, nil
}

// NewBridgeServer deploys both sides and prepares the indexers and the
// reporter. Nothing runs until Start.
func NewBridgeServer(bsc *BridgeServerConfig) (*BridgeServer, error) {
	if err := logconfig.ConfigLogger(bsc.LogLevel, bsc.LogFormat, nil); err != nil {
		return nil, err
	}

	home, err := parseChainConfig("home", &bsc.Home)
	if err != nil {
		return nil, err
	}
	foreign, err := parseChainConfig("foreign", &bsc.Foreign)
	if err != nil {
		return nil, err
	}
	if home.chainID.Cmp(foreign.chainID) == 0 {
		return nil, ErrSameChainID
	}
	relayer, err := parseAddress("relayer", bsc.Relayer)
	if err != nil {
		return nil, err
	}

	// escrowed supply of the foreign token
	var (
		supply = big.NewInt(0)
		holder ethcommon.Address
	)
	if bsc.ForeignTokenSupply != "" {
		if supply, err = parseAmount("foreign token supply", bsc.ForeignTokenSupply); err != nil {
			return nil, err
		}
	}
	if supply.Sign() > 0 {
		if holder, err = parseAddress("foreign token holder", bsc.ForeignTokenHolder); err != nil {
			return nil, err
		}
	}

	// 1) Home side: the endpoint mints and burns the bridgeable token.
	homeSide, err := deploy(agreement.SideHome, home, &bsc.Home, &bsc.HomeToken,
		func(l *ledger.Ledger) bridge.Asset { return bridge.NewMintBurnAsset(l) },
		nil, true)
	if err != nil {
		logger.Errorf("failed to deploy home side: %v", err)
		return nil, err
	}

	// 2) Foreign side: the endpoint escrows an existing token.
	fund := func(c *chain.Call, token *ledger.Ledger) error {
		if supply.Sign() == 0 {
			return nil
		}
		return token.Mint(c, holder, supply)
	}
	foreignSide, err := deploy(agreement.SideForeign, foreign, &bsc.Foreign, &bsc.ForeignToken,
		func(l *ledger.Ledger) bridge.Asset { return bridge.NewEscrowAsset(l) },
		fund, false)
	if err != nil {
		logger.Errorf("failed to deploy foreign side: %v", err)
		return nil, err
	}

	// Create sql db, and related state_db, state.
	sqldb, err := database.Open(bsc.DbFilePath)
	if err != nil {
		logger.Errorf("failed to open db file: %v", err)
		return nil, err
	}

	myStateDb, err := state.NewStateDB(sqldb)
	if err != nil {
		logger.Errorf("failed to create state db: %v", err)
		_ = sqldb.Close()
		return nil, err
	}

	// one indexer per side over the same db
	for side, s := range map[agreement.Side]*Side{
		agreement.SideHome:    homeSide,
		agreement.SideForeign: foreignSide,
	} {
		s.Indexer, err = state.New(myStateDb, &state.Config{
			Side:            side,
			Env:             s.Env,
			Endpoint:        s.Endpoint.Address(),
			Token:           s.Token.Address(),
			FrequencyToSync: bsc.FrequencyToSync,
			BatchSize:       bsc.SyncBatchSize,
		})
		if err != nil {
			logger.Errorf("failed to create %s state: %v", side, err)
			myStateDb.Close()
			_ = sqldb.Close()
			return nil, err
		}
	}

	httpReporter := reporter.NewHttpReporter(
		bsc.HttpIp,
		bsc.HttpPort,
		myStateDb,
		map[agreement.Side]*reporter.Chain{
			agreement.SideHome:    homeSide.reporterChain(),
			agreement.SideForeign: foreignSide.reporterChain(),
		},
		relayer,
	)

	return &BridgeServer{
		Home:      homeSide,
		Foreign:   foreignSide,
		SqlDB:     sqldb,
		MyStateDb: myStateDb,
		Reporter:  httpReporter,
	}, nil
}

// Start turns on both indexers and the http reporter. They stop when ctx
// is cancelled; wg is done once all of them returned.
func (bs *BridgeServer) Start(ctx context.Context, wg *sync.WaitGroup) {
	for _, s := range []*Side{bs.Home, bs.Foreign} {
		indexer := s.Indexer
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := indexer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("state stopped: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bs.Reporter.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("http reporter stopped: %v", err)
		}
	}()
}

func (bs *BridgeServer) Close() {
	bs.MyStateDb.Close()
	if err := bs.SqlDB.Close(); err != nil {
		logger.Errorf("failed to close db: %v", err)
	}
}

// Create, then start the bridge server and wait.
// Press Ctrl-C to kill the server.
func StartBridgeServerAndWait(bsc *BridgeServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Infof("received signal: %v, cancelling context", sig)
		cancel()
	}()

	bs, err := NewBridgeServer(bsc)
	if err != nil {
		logger.Fatalf("failed to create bridge server: %v", err)
		return
	}
	defer bs.Close()

	var wg sync.WaitGroup
	bs.Start(ctx, &wg)

	// wait for all routines to finish
	wg.Wait()
}
