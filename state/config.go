package state

import (
	"time"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/chain"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type Config struct {
	Side     agreement.Side
	Env      *chain.Env
	Endpoint ethcommon.Address // bridge endpoint whose events are indexed
	Token    ethcommon.Address // token whose transfers are indexed

	FrequencyToSync time.Duration
	BatchSize       int // max logs read per pass, <= 0 reads all
}
