package ratelimit

import (
	"fmt"
	"math/big"
	"time"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/holiman/uint256"
)

const SecondsPerDay = 86400

// DayIndex is the day bucket t falls in. Times before the epoch map to
// day 0.
func DayIndex(t time.Time) uint64 {
	s := t.Unix()
	if s < 0 {
		return 0
	}
	return uint64(s / SecondsPerDay)
}

type direction int

const (
	outbound direction = iota
	inbound
)

func (d direction) String() string {
	if d == outbound {
		return "outbound"
	}
	return "inbound"
}

// Limiter keeps spent totals per day bucket for both directions. Buckets
// roll over lazily from the transaction time.
type Limiter struct {
	limits *Limits
	spent  [2]map[uint64]*uint256.Int
}

func New(limits *Limits) (*Limiter, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{
		limits: limits.Clone(),
		spent: [2]map[uint64]*uint256.Int{
			make(map[uint64]*uint256.Int),
			make(map[uint64]*uint256.Int),
		},
	}, nil
}

func (rl *Limiter) Limits() *Limits {
	return rl.limits.Clone()
}

func (rl *Limiter) SetLimits(c *chain.Call, limits *Limits) error {
	if err := limits.Validate(); err != nil {
		return err
	}
	prev := rl.limits
	rl.limits = limits.Clone()
	c.OnRevert(func() { rl.limits = prev })
	return nil
}

func (rl *Limiter) SpentOutbound(day uint64) *big.Int {
	return rl.spentOn(outbound, day).ToBig()
}

func (rl *Limiter) SpentInbound(day uint64) *big.Int {
	return rl.spentOn(inbound, day).ToBig()
}

// WithinOutbound reports why amount would be refused at time now, if at all.
func (rl *Limiter) WithinOutbound(now time.Time, amount *big.Int) error {
	_, err := rl.check(outbound, DayIndex(now), amount)
	return err
}

func (rl *Limiter) WithinInbound(now time.Time, amount *big.Int) error {
	_, err := rl.check(inbound, DayIndex(now), amount)
	return err
}

func (rl *Limiter) CheckAndRecordOutbound(c *chain.Call, amount *big.Int) error {
	return rl.checkAndRecord(c, outbound, amount)
}

func (rl *Limiter) CheckAndRecordInbound(c *chain.Call, amount *big.Int) error {
	return rl.checkAndRecord(c, inbound, amount)
}

func (rl *Limiter) checkAndRecord(c *chain.Call, d direction, amount *big.Int) error {
	day := DayIndex(c.Now())
	total, err := rl.check(d, day, amount)
	if err != nil {
		return err
	}

	bucket := rl.spent[d]
	prev, had := bucket[day]
	bucket[day] = total
	c.OnRevert(func() {
		if had {
			bucket[day] = prev
		} else {
			delete(bucket, day)
		}
	})
	return nil
}

// check returns the day total after adding amount.
func (rl *Limiter) check(d direction, day uint64, amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s amount must be positive", agreement.ErrBelowMinimum, d)
	}

	var minPerTx, maxPerTx, daily *big.Int
	if d == outbound {
		minPerTx, maxPerTx, daily = rl.limits.MinPerTx, rl.limits.MaxPerTx, rl.limits.DailyLimit
	} else {
		maxPerTx, daily = rl.limits.ExecutionMaxPerTx, rl.limits.ExecutionDailyLimit
	}

	if minPerTx != nil && amount.Cmp(minPerTx) < 0 {
		return nil, fmt.Errorf("%w: amount=%s, minPerTx=%s", agreement.ErrBelowMinimum, amount, minPerTx)
	}
	if amount.Cmp(maxPerTx) > 0 {
		return nil, fmt.Errorf("%w: amount=%s, maxPerTx=%s", agreement.ErrAboveMaxPerTx, amount, maxPerTx)
	}

	// amount <= maxPerTx, so it fits in 256 bits
	v, _ := uint256.FromBig(amount)
	total, overflow := new(uint256.Int).AddOverflow(rl.spentOn(d, day), v)
	if overflow || total.ToBig().Cmp(daily) > 0 {
		return nil, fmt.Errorf("%w: %s spent=%s, amount=%s, dailyLimit=%s",
			agreement.ErrDailyLimitExceeded, d, rl.spentOn(d, day).Dec(), amount, daily)
	}
	return total, nil
}

func (rl *Limiter) spentOn(d direction, day uint64) *uint256.Int {
	if v, ok := rl.spent[d][day]; ok {
		return v
	}
	return uint256.NewInt(0)
}
