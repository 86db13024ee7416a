package whirlpool

import (
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestSlippageBounds(t *testing.T) {
	cases := []struct {
		est      int64
		bps      uint16
		min, max int64
	}{
		{100, 100, 99, 101},
		{1000, 100, 990, 1010},
		{1, 100, 0, 2},
		{0, 100, 0, 0},
		{12345, 0, 12345, 12345},
		{500, 10000, 0, 1000},
	}
	for _, c := range cases {
		lo, hi := slippageBounds(cosmath.NewInt(c.est), c.bps)
		assert.Equal(t, c.min, lo.Int64(), "min for %d @ %d", c.est, c.bps)
		assert.Equal(t, c.max, hi.Int64(), "max for %d @ %d", c.est, c.bps)
	}
}

func TestSlippageBoundsCappedAtU64(t *testing.T) {
	_, hi := slippageBounds(maxU64, 100)
	assert.True(t, hi.Equal(maxU64))
}

func TestIncreaseQuoteByLiquidity(t *testing.T) {
	pool := newTestPool()

	q, err := IncreaseLiquidityQuote(ByLiquidity(cosmath.NewInt(1_000_000_000)), pool, -640, 640, DefaultSlippageBps)
	require.NoError(t, err)

	assert.Equal(t, PriceInRange, q.Status)
	assert.True(t, q.TokenEstA.IsPositive())
	assert.True(t, q.TokenEstB.IsPositive())
	assert.True(t, q.TokenEstA.LTE(q.TokenMaxA))
	assert.True(t, q.TokenEstB.LTE(q.TokenMaxB))
	assert.True(t, q.TokenMinA.LTE(q.TokenEstA))
	assert.Equal(t, DefaultSlippageBps, q.SlippageBps)
}

func TestDecreaseQuoteRoundsDown(t *testing.T) {
	pool := newTestPool()
	l := cosmath.NewInt(1_000_000_007)

	inc, err := IncreaseLiquidityQuote(ByLiquidity(l), pool, -640, 640, 100)
	require.NoError(t, err)
	dec, err := DecreaseLiquidityQuote(ByLiquidity(l), pool, -640, 640, 100)
	require.NoError(t, err)

	assert.True(t, dec.TokenEstA.LTE(inc.TokenEstA))
	assert.True(t, dec.TokenEstB.LTE(inc.TokenEstB))
	assert.True(t, inc.TokenEstA.Sub(dec.TokenEstA).LTE(cosmath.OneInt()))

	assert.True(t, dec.TokenMinA.LTE(dec.TokenEstA))
	assert.True(t, dec.TokenEstA.LTE(dec.TokenMaxA))
	assert.True(t, dec.TokenMinB.LTE(dec.TokenEstB))
	assert.True(t, dec.TokenEstB.LTE(dec.TokenMaxB))
}

func TestQuoteByTokenIsSelfConsistent(t *testing.T) {
	pool := newTestPool()
	amount := cosmath.NewInt(5_000_000)

	byA, err := IncreaseLiquidityQuote(ByTokenA(amount), pool, -640, 1280, 100)
	require.NoError(t, err)
	assert.True(t, byA.TokenEstA.LTE(amount))

	byL, err := IncreaseLiquidityQuote(ByLiquidity(byA.LiquidityDelta), pool, -640, 1280, 100)
	require.NoError(t, err)
	assert.True(t, byL.TokenEstA.Equal(byA.TokenEstA))
	assert.True(t, byL.TokenEstB.Equal(byA.TokenEstB))

	byB, err := DecreaseLiquidityQuote(ByTokenB(byA.TokenEstB), pool, -640, 1280, 100)
	require.NoError(t, err)
	assert.True(t, byB.TokenEstB.LTE(byA.TokenEstB))
}

func TestQuoteOutOfRange(t *testing.T) {
	pool := newTestPool()

	// range above the price holds token A only
	q, err := IncreaseLiquidityQuote(ByLiquidity(cosmath.NewInt(1_000_000)), pool, 640, 1280, 100)
	require.NoError(t, err)
	assert.Equal(t, PriceBelowRange, q.Status)
	assert.True(t, q.TokenEstA.IsPositive())
	assert.True(t, q.TokenEstB.IsZero())

	// token B cannot fund it
	_, err = IncreaseLiquidityQuote(ByTokenB(cosmath.NewInt(1_000_000)), pool, 640, 1280, 100)
	assert.ErrorIs(t, err, ErrZeroLiquidity)

	q, err = DecreaseLiquidityQuote(ByLiquidity(cosmath.NewInt(1_000_000)), pool, -1280, -640, 100)
	require.NoError(t, err)
	assert.Equal(t, PriceAboveRange, q.Status)
	assert.True(t, q.TokenEstA.IsZero())
}

func TestQuoteValidation(t *testing.T) {
	pool := newTestPool()
	one := cosmath.NewInt(1_000)
	overU128 := maxU128.Add(cosmath.OneInt())
	overU64 := maxU64.Add(cosmath.OneInt())

	cases := []struct {
		name    string
		input   QuoteInput
		lower   int32
		upper   int32
		bps     uint16
		wantErr error
	}{
		{"zero liquidity", ByLiquidity(cosmath.ZeroInt()), -640, 640, 100, ErrZeroLiquidity},
		{"liquidity overflow", ByLiquidity(overU128), -640, 640, 100, ErrLiquidityOverflow},
		{"token overflow", ByTokenA(overU64), -640, 640, 100, ErrTokenAmountOverflow},
		{"inverted range", ByLiquidity(one), 640, -640, 100, ErrInvalidTickRange},
		{"empty range", ByLiquidity(one), 640, 640, 100, ErrInvalidTickRange},
		{"unaligned tick", ByLiquidity(one), -100, 640, 100, ErrInvalidTickIndex},
		{"tick out of bounds", ByLiquidity(one), -640, 443648, 100, ErrInvalidTickIndex},
		{"slippage", ByLiquidity(one), -640, 640, 10001, ErrInvalidSlippage},
		{"unset input", QuoteInput{}, -640, 640, 100, ErrInvalidQuoteInput},
		{"negative", ByTokenB(cosmath.NewInt(-1)), -640, 640, 100, ErrInvalidQuoteInput},
		{"unknown kind", QuoteInput{Kind: 9, Amount: one}, -640, 640, 100, ErrInvalidQuoteInput},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := IncreaseLiquidityQuote(c.input, pool, c.lower, c.upper, c.bps)
			assert.ErrorIs(t, err, c.wantErr)
			_, err = DecreaseLiquidityQuote(c.input, pool, c.lower, c.upper, c.bps)
			assert.ErrorIs(t, err, c.wantErr)
		})
	}
}

func TestLiquidityForPercent(t *testing.T) {
	l, err := LiquidityForPercent(uint128.From64(1000), 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(300), l.Int64())

	l, err = LiquidityForPercent(uint128.From64(1001), 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(300), l.Int64())

	_, err = LiquidityForPercent(uint128.From64(1000), 10001)
	assert.ErrorIs(t, err, ErrInvalidPercent)
}

func TestCollectFeesQuote(t *testing.T) {
	pool := newTestPool()
	pool.FeeGrowthGlobalA = uint128.New(0, 10)
	pool.FeeGrowthGlobalB = uint128.New(0, 10)
	position := newTestPosition(pool, 1000)
	position.FeeGrowthCheckpointA = uint128.New(0, 1)
	position.FeeOwedA = 7

	lower := &Tick{Initialized: true, FeeGrowthOutsideA: uint128.New(0, 2)}
	upper := &Tick{Initialized: true, FeeGrowthOutsideA: uint128.New(0, 3)}

	q, err := CollectFeesQuote(pool, position, lower, upper)
	require.NoError(t, err)
	// inside A = 10 - 2 - 3 = 5, minus checkpoint 1 => 4 * 1000 + 7
	assert.Equal(t, "4007", q.FeeOwedA.String())
	// inside B = 10, checkpoint 0
	assert.Equal(t, "10000", q.FeeOwedB.String())
}

func TestCollectFeesQuoteBelowRange(t *testing.T) {
	pool := newTestPool()
	pool.TickCurrentIndex = -1000
	pool.FeeGrowthGlobalA = uint128.New(0, 10)
	position := newTestPosition(pool, 1000)

	// price left the range: growth below lower is global - outside
	lower := &Tick{Initialized: true, FeeGrowthOutsideA: uint128.New(0, 6)}
	upper := &Tick{Initialized: true, FeeGrowthOutsideA: uint128.New(0, 1)}

	q, err := CollectFeesQuote(pool, position, lower, upper)
	require.NoError(t, err)
	// below = 4, above = 1 => inside 5
	assert.Equal(t, "5000", q.FeeOwedA.String())
}

func TestCollectFeesQuoteChecksPool(t *testing.T) {
	pool := newTestPool()
	other := newTestPool()
	position := newTestPosition(other, 1)

	_, err := CollectFeesQuote(pool, position, &Tick{}, &Tick{})
	assert.ErrorIs(t, err, ErrPositionPoolMismatch)

	_, err = CollectFeesQuote(pool, newTestPosition(pool, 1), nil, &Tick{})
	assert.ErrorIs(t, err, ErrTickArrayMismatch)
}

func TestCollectRewardsQuote(t *testing.T) {
	pool := newTestPool()
	pool.Liquidity = uint128.From64(1000)
	pool.RewardLastUpdatedTimestamp = 100
	pool.RewardInfos[0].EmissionsPerSecondX64 = uint128.New(0, 100)
	position := newTestPosition(pool, 500)
	position.RewardInfos[0].AmountOwed = 3

	lower := &Tick{Initialized: true}
	upper := &Tick{Initialized: true}

	q, err := CollectRewardsQuote(pool, position, lower, upper, 110)
	require.NoError(t, err)
	require.Len(t, q.Rewards, 1)
	assert.Equal(t, uint8(0), q.Rewards[0].Index)
	assert.Equal(t, pool.RewardInfos[0].Mint, q.Rewards[0].Mint)
	// 100/s * 10s / 1000 pool liquidity = 1 growth, times 500 position liquidity
	assert.Equal(t, "503", q.Rewards[0].Amount.String())

	// a timestamp before the last update accrues nothing new
	q, err = CollectRewardsQuote(pool, position, lower, upper, 50)
	require.NoError(t, err)
	assert.Equal(t, "3", q.Rewards[0].Amount.String())
}

func TestAccrueSaturates(t *testing.T) {
	got := accrue(^uint64(0), uint128.New(0, 5), uint128.Zero, uint128.From64(1000))
	assert.True(t, got.Equal(maxU64))
}
