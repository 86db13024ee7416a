package clmm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestSqrtPriceAtTickZero(t *testing.T) {
	p, err := SqrtPriceAtTick(0)
	require.NoError(t, err)
	assert.Equal(t, uint128.New(0, 1), p)
}

func TestSqrtPriceAtTickBounds(t *testing.T) {
	_, err := SqrtPriceAtTick(MaxTick + 1)
	assert.ErrorIs(t, err, ErrTickOutOfBounds)

	_, err = SqrtPriceAtTick(MinTick - 1)
	assert.ErrorIs(t, err, ErrTickOutOfBounds)

	p, err := SqrtPriceAtTick(MinTick)
	require.NoError(t, err)
	assert.Equal(t, MinSqrtPrice, p)

	p, err = SqrtPriceAtTick(MaxTick)
	require.NoError(t, err)
	assert.Equal(t, MaxSqrtPrice, p)

	tick, err := TickAtSqrtPrice(MaxSqrtPrice)
	require.NoError(t, err)
	assert.Equal(t, MaxTick, tick)

	tick, err = TickAtSqrtPrice(MinSqrtPrice)
	require.NoError(t, err)
	assert.Equal(t, MinTick, tick)
}

func TestSqrtPriceAtTickRoundsDown(t *testing.T) {
	for _, tc := range []struct {
		tick int32
		want string
	}{
		{1, "18447666387855959850"},
		{-1, "18445821805675392311"},
		{2, "18448588748116922571"},
	} {
		p, err := SqrtPriceAtTick(tc.tick)
		require.NoError(t, err)
		assert.Equal(t, tc.want, p.String(), "tick %d", tc.tick)
	}
}

func TestSqrtPriceAtTickMonotonic(t *testing.T) {
	ticks := []int32{-400000, -100000, -5000, -1, 0, 1, 2, 5000, 100000, 400000}
	prev := uint128.Zero
	for _, tick := range ticks {
		p, err := SqrtPriceAtTick(tick)
		require.NoError(t, err)
		assert.True(t, p.Cmp(prev) > 0, "tick %d", tick)
		prev = p
	}
}

func TestSqrtPriceAtTickMatchesFloat(t *testing.T) {
	for _, tick := range []int32{-20000, -64, 1, 10000, 50000} {
		p, err := SqrtPriceAtTick(tick)
		require.NoError(t, err)

		got := PriceFromSqrtPrice(p, 0, 0).InexactFloat64()
		want := math.Pow(1.0001, float64(tick))
		assert.InEpsilon(t, want, got, 1e-9, "tick %d", tick)
	}
}

func TestTickAtSqrtPriceRoundTrip(t *testing.T) {
	for _, tick := range []int32{MinTick + 1, -300000, -100000, -1, 0, 1, 64, 12345, 300000, MaxTick} {
		p, err := SqrtPriceAtTick(tick)
		require.NoError(t, err)

		got, err := TickAtSqrtPrice(p)
		require.NoError(t, err)
		assert.Equal(t, tick, got)

		// one below the tick's price belongs to the previous tick
		got, err = TickAtSqrtPrice(p.Sub64(1))
		require.NoError(t, err)
		assert.Equal(t, tick-1, got)
	}
}

func TestTickAtSqrtPriceOutOfBounds(t *testing.T) {
	_, err := TickAtSqrtPrice(uint128.From64(1))
	assert.ErrorIs(t, err, ErrSqrtPriceOutOfBounds)

	_, err = TickAtSqrtPrice(MaxSqrtPrice.Add64(1))
	assert.ErrorIs(t, err, ErrSqrtPriceOutOfBounds)
}

func TestTickArrayStartIndex(t *testing.T) {
	cases := []struct {
		tick    int32
		spacing uint16
		want    int32
	}{
		{0, 64, 0},
		{5631, 64, 0},
		{5632, 64, 5632},
		{-1, 64, -5632},
		{-5632, 64, -5632},
		{-5633, 64, -11264},
		{-1, 1, -88},
		{87, 1, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, TickArrayStartIndex(c.tick, c.spacing), "tick %d spacing %d", c.tick, c.spacing)
	}
}

func TestIsValidTickArrayStart(t *testing.T) {
	assert.True(t, IsValidTickArrayStart(0, 64))
	assert.True(t, IsValidTickArrayStart(5632, 64))
	assert.True(t, IsValidTickArrayStart(-444928, 64))
	assert.False(t, IsValidTickArrayStart(-450560, 64))
	assert.False(t, IsValidTickArrayStart(100, 64))
	assert.False(t, IsValidTickArrayStart(0, 0))
}

func TestTickOffsetInArray(t *testing.T) {
	off, err := TickOffsetInArray(128, 0, 64)
	require.NoError(t, err)
	assert.Equal(t, 2, off)

	_, err = TickOffsetInArray(5632, 0, 64)
	assert.ErrorIs(t, err, ErrTickOutOfBounds)
	_, err = TickOffsetInArray(-64, 0, 64)
	assert.ErrorIs(t, err, ErrTickOutOfBounds)
}

func TestTickHelpers(t *testing.T) {
	lower, upper := FullRangeTicks(64)
	assert.Equal(t, int32(-443584), lower)
	assert.Equal(t, int32(443584), upper)

	assert.Equal(t, int32(128), InitializableTick(100, 64))
	assert.Equal(t, int32(64), InitializableTick(90, 64))
	assert.Equal(t, int32(-128), InitializableTick(-100, 64))

	assert.True(t, IsValidTick(-128, 64))
	assert.False(t, IsValidTick(-100, 64))
	assert.False(t, IsValidTick(MaxTick+64, 1))
	assert.False(t, IsValidTick(0, 0))

	// zero spacing never divides
	assert.Equal(t, int32(0), TickArrayStartIndex(640, 0))
	assert.Equal(t, int32(100), InitializableTick(100, 0))
	lower, upper = FullRangeTicks(0)
	assert.Equal(t, lower, upper)
}
