package reporter

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/bridge"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/common"
	"github.com/TEENet-io/tokenbridge/database"
	"github.com/TEENet-io/tokenbridge/ledger"
	"github.com/TEENet-io/tokenbridge/quorum"
	"github.com/TEENet-io/tokenbridge/ratelimit"
	"github.com/TEENet-io/tokenbridge/signers"
	"github.com/TEENet-io/tokenbridge/state"
)

type fixture struct {
	home      *Chain
	validator *signers.LocalSigner
	user      ethcommon.Address
	indexer   *state.State
	reader    *HttpReader
}

func newFixture(t *testing.T) *fixture {
	gin.SetMode(gin.TestMode)

	env := chain.NewEnv(big.NewInt(100), chain.NewManualClock(time.Unix(1_700_000_000, 0)))
	owner := common.RandEthAddress()
	user := common.RandEthAddress()
	validator, err := signers.NewRandomLocalSigner()
	require.NoError(t, err)

	token, err := ledger.New(env, &ledger.Config{Name: "Bridge Token", Symbol: "BT", Decimals: 18, Owner: owner})
	require.NoError(t, err)
	q := quorum.New(env)
	e := bridge.New(env)
	limits := &ratelimit.Limits{
		DailyLimit:          common.Ether(10),
		MaxPerTx:            common.Ether(5),
		MinPerTx:            common.Ether(1),
		ExecutionDailyLimit: common.Ether(10),
		ExecutionMaxPerTx:   common.Ether(5),
	}
	_, err = env.Transact(owner, func(c *chain.Call) error {
		if err := token.Mint(c, user, common.Ether(10)); err != nil {
			return err
		}
		if err := q.Initialize(c, 1, []ethcommon.Address{validator.Address()}, owner); err != nil {
			return err
		}
		if err := e.Initialize(c, &bridge.Config{
			Side:                       agreement.SideHome,
			Quorum:                     q,
			Limits:                     limits,
			Asset:                      bridge.NewMintBurnAsset(token),
			RequiredBlockConfirmations: 2,
			GasPrice:                   big.NewInt(7),
			Owner:                      owner,
		}); err != nil {
			return err
		}
		if err := token.SetBridgeContract(c, e.Address()); err != nil {
			return err
		}
		return token.TransferOwnership(c, e.Address())
	})
	require.NoError(t, err)

	sqlDB, err := database.Open(database.MemoryPath)
	require.NoError(t, err)
	db, err := state.NewStateDB(sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		sqlDB.Close()
	})

	indexer, err := state.New(db, &state.Config{
		Side:      agreement.SideHome,
		Env:       env,
		Endpoint:  e.Address(),
		Token:     token.Address(),
		BatchSize: 100,
	})
	require.NoError(t, err)

	home := &Chain{Env: env, Token: token, Endpoint: e}
	h := NewHttpReporter("127.0.0.1", "0", db, map[agreement.Side]*Chain{agreement.SideHome: home}, common.RandEthAddress())
	srv := httptest.NewServer(h.SetupRouter())
	t.Cleanup(srv.Close)

	return &fixture{
		home:      home,
		validator: validator,
		user:      user,
		indexer:   indexer,
		reader:    NewHttpReader(srv.URL),
	}
}

func (f *fixture) sync(t *testing.T) {
	_, err := f.indexer.Sync()
	require.NoError(t, err)
}

func decode(t *testing.T, body string) map[string]any {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return m
}

func signatureRequest(t *testing.T, s signers.Signer, msg *bridge.Message, endpoint ethcommon.Address) *SignatureRequest {
	att, err := bridge.Attest(s, msg, endpoint)
	require.NoError(t, err)
	return &SignatureRequest{
		ID:          msg.ID.String(),
		Recipient:   msg.Recipient.String(),
		Amount:      msg.Amount.String(),
		SourceChain: msg.SourceChain.String(),
		Signature:   common.Prepend0xPrefix(common.ByteSliceToPureHexStr(att.Signature)),
	}
}

func TestHello(t *testing.T) {
	f := newFixture(t)

	code, body, err := f.reader.GetHello()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "world", decode(t, body)["message"])
}

func TestChainRoutes(t *testing.T) {
	f := newFixture(t)

	code, body, err := f.reader.GetBalance(agreement.SideHome, f.user.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, common.Ether(10).String(), decode(t, body)["balance"])

	code, _, err = f.reader.GetBalance(agreement.SideHome, "not-an-address")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body, err = f.reader.GetSupply(agreement.SideHome)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	supply := decode(t, body)
	assert.Equal(t, "BT", supply["symbol"])
	assert.Equal(t, common.Ether(10).String(), supply["total_supply"])

	code, body, err = f.reader.GetBridge(agreement.SideHome)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	info := decode(t, body)
	assert.Equal(t, f.home.Endpoint.Address().String(), info["address"])
	assert.Equal(t, "home", info["side"])
	assert.Equal(t, "100", info["chain_id"])
	assert.Equal(t, "7", info["gas_price"])
	assert.EqualValues(t, 2, info["required_block_confirmations"])
	assert.Equal(t, common.Ether(5).String(), info["limits"].(map[string]any)["max_per_tx"])
	assert.Equal(t, "0", info["spent_outbound"])

	code, body, err = f.reader.GetValidators(agreement.SideHome)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	v := decode(t, body)
	assert.EqualValues(t, 1, v["required_signatures"])
	assert.Equal(t, []any{f.validator.Address().String()}, v["validators"])

	// configured only with the home side
	code, _, err = f.reader.GetSupply(agreement.SideForeign)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, code)
	code, _, err = f.reader.GetSupply("moon")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRequestsRoute(t *testing.T) {
	f := newFixture(t)

	_, err := f.home.Env.Transact(f.user, func(c *chain.Call) error {
		return f.home.Token.TransferAndCall(c, f.home.Endpoint.Address(), common.Ether(2), nil)
	})
	require.NoError(t, err)
	f.sync(t)

	code, body, err := f.reader.GetRequests(f.user.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	data := decode(t, body)["data"].([]any)
	require.Len(t, data, 1)
	req := data[0].(map[string]any)
	assert.Equal(t, common.Ether(2).String(), req["amount"])
	assert.Equal(t, "home", req["chain"])

	code, body, err = f.reader.GetBridge(agreement.SideHome)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, common.Ether(2).String(), decode(t, body)["spent_outbound"])

	code, _, err = f.reader.GetRequests("")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSubmitSignatureRoute(t *testing.T) {
	f := newFixture(t)
	endpoint := f.home.Endpoint.Address()
	recipient := common.RandEthAddress()

	msg := &bridge.Message{
		ID:          bridge.MessageID(big.NewInt(1), common.RandBytes32(), 0),
		Recipient:   recipient,
		Amount:      common.Ether(3),
		SourceChain: big.NewInt(1),
	}

	code, body, err := f.reader.PostSignature(agreement.SideHome, signatureRequest(t, f.validator, msg, endpoint))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, string(agreement.MessageStatusExecuted), decode(t, body)["status"])

	f.sync(t)

	code, body, err = f.reader.GetMessage(msg.ID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	stored := decode(t, body)["data"].(map[string]any)
	assert.Equal(t, "executed", stored["status"])
	assert.Equal(t, common.Ether(3).String(), stored["amount"])

	code, body, err = f.reader.GetMessages("executed")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, decode(t, body)["data"], 1)

	code, body, err = f.reader.GetSignatures(msg.ID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	sigs := decode(t, body)["data"].([]any)
	require.Len(t, sigs, 1)
	assert.Equal(t, f.validator.Address().String(), sigs[0].(map[string]any)["validator"])

	code, body, err = f.reader.GetBalance(agreement.SideHome, recipient.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, common.Ether(3).String(), decode(t, body)["balance"])

	// replay of an executed message
	code, _, err = f.reader.PostSignature(agreement.SideHome, signatureRequest(t, f.validator, msg, endpoint))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, code)
}

func TestSubmitSignatureRouteErrors(t *testing.T) {
	f := newFixture(t)
	endpoint := f.home.Endpoint.Address()
	msg := &bridge.Message{
		ID:          bridge.MessageID(big.NewInt(1), common.RandBytes32(), 0),
		Recipient:   common.RandEthAddress(),
		Amount:      common.Ether(1),
		SourceChain: big.NewInt(1),
	}

	outsider, err := signers.NewRandomLocalSigner()
	require.NoError(t, err)
	code, _, err := f.reader.PostSignature(agreement.SideHome, signatureRequest(t, outsider, msg, endpoint))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, code)

	req := signatureRequest(t, f.validator, msg, endpoint)
	req.Signature = "0x1234"
	code, _, err = f.reader.PostSignature(agreement.SideHome, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, code)

	req = signatureRequest(t, f.validator, msg, endpoint)
	req.Amount = "lots"
	code, _, err = f.reader.PostSignature(agreement.SideHome, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, err = f.reader.PostSignature(agreement.SideHome, &SignatureRequest{ID: msg.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, code)

	// nothing reached the chain
	assert.Equal(t, agreement.MessageStatusUnseen, f.home.Endpoint.Status(msg.ID))
}

func TestQueryValidation(t *testing.T) {
	f := newFixture(t)

	code, _, err := f.reader.GetMessage("0x12")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _, err = f.reader.GetMessage(ethcommon.Hash(common.RandBytes32()).String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, code)

	code, _, err = f.reader.GetMessages("lost")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body, err := f.reader.GetMessages("pending")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode(t, body)["data"])

	code, _, err = f.reader.GetSignatures("")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStartStops(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHttpReporter("127.0.0.1", "0", nil, nil, common.ZeroAddress)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("reporter did not stop")
	}
}
