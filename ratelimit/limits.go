package ratelimit

import (
	"fmt"
	"math/big"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/common"
)

// Limits bound the value an endpoint moves. The outbound side applies to
// deposits, the execution side to releases of inbound messages.
type Limits struct {
	DailyLimit *big.Int
	MaxPerTx   *big.Int
	MinPerTx   *big.Int

	ExecutionDailyLimit *big.Int
	ExecutionMaxPerTx   *big.Int
}

func (l *Limits) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: limits missing", agreement.ErrInvalidConfiguration)
	}

	for name, v := range map[string]*big.Int{
		"dailyLimit":          l.DailyLimit,
		"maxPerTx":            l.MaxPerTx,
		"minPerTx":            l.MinPerTx,
		"executionDailyLimit": l.ExecutionDailyLimit,
		"executionMaxPerTx":   l.ExecutionMaxPerTx,
	} {
		if v == nil || v.Sign() <= 0 {
			return fmt.Errorf("%w: %s must be positive", agreement.ErrInvalidConfiguration, name)
		}
		if v.BitLen() > 256 {
			return fmt.Errorf("%w: %s exceeds 256 bits", agreement.ErrInvalidConfiguration, name)
		}
	}

	if l.MinPerTx.Cmp(l.MaxPerTx) > 0 {
		return fmt.Errorf("%w: minPerTx=%s > maxPerTx=%s",
			agreement.ErrInvalidConfiguration, l.MinPerTx, l.MaxPerTx)
	}
	if l.MaxPerTx.Cmp(l.DailyLimit) > 0 {
		return fmt.Errorf("%w: maxPerTx=%s > dailyLimit=%s",
			agreement.ErrInvalidConfiguration, l.MaxPerTx, l.DailyLimit)
	}
	if l.ExecutionMaxPerTx.Cmp(l.ExecutionDailyLimit) > 0 {
		return fmt.Errorf("%w: executionMaxPerTx=%s > executionDailyLimit=%s",
			agreement.ErrInvalidConfiguration, l.ExecutionMaxPerTx, l.ExecutionDailyLimit)
	}

	return nil
}

func (l *Limits) Clone() *Limits {
	return &Limits{
		DailyLimit:          common.BigIntClone(l.DailyLimit),
		MaxPerTx:            common.BigIntClone(l.MaxPerTx),
		MinPerTx:            common.BigIntClone(l.MinPerTx),
		ExecutionDailyLimit: common.BigIntClone(l.ExecutionDailyLimit),
		ExecutionMaxPerTx:   common.BigIntClone(l.ExecutionMaxPerTx),
	}
}
