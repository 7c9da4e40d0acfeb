package ratelimit

import (
	"math/big"
	"testing"
	"time"

	"github.com/TEENet-io/tokenbridge/agreement"
	"github.com/TEENet-io/tokenbridge/chain"
	"github.com/TEENet-io/tokenbridge/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimits() *Limits {
	return &Limits{
		DailyLimit:          common.Ether(10),
		MaxPerTx:            common.Ether(4),
		MinPerTx:            common.Ether(1),
		ExecutionDailyLimit: common.Ether(6),
		ExecutionMaxPerTx:   common.Ether(3),
	}
}

type fixture struct {
	env     *chain.Env
	clock   *chain.ManualClock
	limiter *Limiter
}

func newFixture(t *testing.T) *fixture {
	clock := chain.NewManualClock(time.Unix(20_000*SecondsPerDay+100, 0))
	limiter, err := New(testLimits())
	require.NoError(t, err)
	return &fixture{
		env:     chain.NewEnv(big.NewInt(1), clock),
		clock:   clock,
		limiter: limiter,
	}
}

func (f *fixture) outbound(amount *big.Int) error {
	_, err := f.env.Transact(common.RandEthAddress(), func(c *chain.Call) error {
		return f.limiter.CheckAndRecordOutbound(c, amount)
	})
	return err
}

func (f *fixture) inbound(amount *big.Int) error {
	_, err := f.env.Transact(common.RandEthAddress(), func(c *chain.Call) error {
		return f.limiter.CheckAndRecordInbound(c, amount)
	})
	return err
}

func TestValidate(t *testing.T) {
	assert.NoError(t, testLimits().Validate())

	var nilLimits *Limits
	assert.ErrorIs(t, nilLimits.Validate(), agreement.ErrInvalidConfiguration)

	tests := []struct {
		name   string
		modify func(l *Limits)
	}{
		{"min above max", func(l *Limits) { l.MinPerTx = common.Ether(5) }},
		{"max above daily", func(l *Limits) { l.MaxPerTx = common.Ether(11) }},
		{"execution max above daily", func(l *Limits) { l.ExecutionMaxPerTx = common.Ether(7) }},
		{"zero min", func(l *Limits) { l.MinPerTx = big.NewInt(0) }},
		{"missing daily", func(l *Limits) { l.DailyLimit = nil }},
		{"negative execution daily", func(l *Limits) { l.ExecutionDailyLimit = big.NewInt(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLimits()
			tt.modify(l)
			assert.ErrorIs(t, l.Validate(), agreement.ErrInvalidConfiguration)
		})
	}

	_, err := New(&Limits{})
	assert.ErrorIs(t, err, agreement.ErrInvalidConfiguration)
}

func TestOutbound(t *testing.T) {
	f := newFixture(t)
	day := DayIndex(f.clock.Now())

	assert.NoError(t, f.outbound(common.Ether(1)))
	assert.ErrorIs(t, f.outbound(new(big.Int).Div(common.Ether(1), big.NewInt(2))), agreement.ErrBelowMinimum)
	assert.ErrorIs(t, f.outbound(common.Ether(5)), agreement.ErrAboveMaxPerTx)
	assert.Equal(t, common.Ether(1), f.limiter.SpentOutbound(day))

	assert.NoError(t, f.outbound(common.Ether(4)))
	assert.NoError(t, f.outbound(common.Ether(4)))
	assert.ErrorIs(t, f.outbound(common.Ether(2)), agreement.ErrDailyLimitExceeded)
	assert.NoError(t, f.outbound(common.Ether(1)))
	assert.Equal(t, common.Ether(10), f.limiter.SpentOutbound(day))
	assert.ErrorIs(t, f.limiter.WithinOutbound(f.clock.Now(), common.Ether(1)), agreement.ErrDailyLimitExceeded)

	// next day starts from zero
	f.clock.Advance(24 * time.Hour)
	assert.NoError(t, f.limiter.WithinOutbound(f.clock.Now(), common.Ether(1)))
	assert.NoError(t, f.outbound(common.Ether(4)))
	assert.Equal(t, common.Ether(4), f.limiter.SpentOutbound(day+1))
	assert.Equal(t, common.Ether(10), f.limiter.SpentOutbound(day))
	assert.Equal(t, 0, f.limiter.SpentInbound(day+1).Sign())
}

func TestInbound(t *testing.T) {
	f := newFixture(t)
	day := DayIndex(f.clock.Now())

	// no floor on the execution side beyond a positive amount
	assert.NoError(t, f.inbound(big.NewInt(1)))
	assert.ErrorIs(t, f.inbound(big.NewInt(0)), agreement.ErrBelowMinimum)
	assert.ErrorIs(t, f.inbound(common.Ether(4)), agreement.ErrAboveMaxPerTx)
	assert.NoError(t, f.inbound(common.Ether(3)))
	assert.ErrorIs(t, f.inbound(common.Ether(3)), agreement.ErrDailyLimitExceeded)
	assert.Equal(t, new(big.Int).Add(common.Ether(3), big.NewInt(1)), f.limiter.SpentInbound(day))
	assert.Equal(t, 0, f.limiter.SpentOutbound(day).Sign())
}

func TestRecordReverts(t *testing.T) {
	f := newFixture(t)
	day := DayIndex(f.clock.Now())

	_, err := f.env.Transact(common.RandEthAddress(), func(c *chain.Call) error {
		if err := f.limiter.CheckAndRecordOutbound(c, common.Ether(2)); err != nil {
			return err
		}
		return agreement.ErrInsufficientBalance
	})
	assert.ErrorIs(t, err, agreement.ErrInsufficientBalance)
	assert.Equal(t, 0, f.limiter.SpentOutbound(day).Sign())
}

func TestSetLimits(t *testing.T) {
	f := newFixture(t)

	_, err := f.env.Transact(common.RandEthAddress(), func(c *chain.Call) error {
		return f.limiter.SetLimits(c, &Limits{})
	})
	assert.ErrorIs(t, err, agreement.ErrInvalidConfiguration)
	assert.Equal(t, testLimits(), f.limiter.Limits())

	next := testLimits()
	next.MinPerTx = common.Ether(2)
	_, err = f.env.Transact(common.RandEthAddress(), func(c *chain.Call) error {
		return f.limiter.SetLimits(c, next)
	})
	assert.NoError(t, err)
	assert.ErrorIs(t, f.outbound(common.Ether(1)), agreement.ErrBelowMinimum)

	// the limiter keeps its own copy
	next.MinPerTx = common.Ether(3)
	assert.Equal(t, common.Ether(2), f.limiter.Limits().MinPerTx)
}

func TestDayIndex(t *testing.T) {
	assert.Equal(t, uint64(0), DayIndex(time.Unix(SecondsPerDay-1, 0)))
	assert.Equal(t, uint64(1), DayIndex(time.Unix(SecondsPerDay, 0)))
	assert.Equal(t, uint64(0), DayIndex(time.Unix(-1, 0)))
	assert.Equal(t, uint64(0), DayIndex(time.Date(1969, time.July, 20, 20, 17, 0, 0, time.UTC)))
}
