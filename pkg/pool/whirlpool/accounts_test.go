package whirlpool

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestWhirlpoolDecode(t *testing.T) {
	want := newTestPool()
	want.FeeGrowthGlobalA = uint128.New(7, 9)
	want.RewardLastUpdatedTimestamp = 1_700_000_000
	want.RewardInfos[0].EmissionsPerSecondX64 = uint128.New(0, 5)
	want.TickCurrentIndex = -12345

	got, err := ParseWhirlpool(want.PoolId, encodeWhirlpool(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []uint8{0}, got.InitializedRewards())
}

func TestWhirlpoolDecodeRejectsBadData(t *testing.T) {
	_, err := ParseWhirlpool(solana.PublicKey{}, make([]byte, 100))
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	// right size, wrong discriminator
	_, err = ParseWhirlpool(solana.PublicKey{}, make([]byte, WhirlpoolSize))
	assert.ErrorIs(t, err, ErrInvalidAccountData)

	pool := newTestPool()
	pool.TickSpacing = 0
	_, err = ParseWhirlpool(pool.PoolId, encodeWhirlpool(pool))
	assert.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestPositionDecode(t *testing.T) {
	pool := newTestPool()
	want := newTestPosition(pool, 123456)
	want.TickLowerIndex = -128
	want.FeeOwedA = 11
	want.FeeOwedB = 22
	want.FeeGrowthCheckpointB = uint128.New(1, 2)
	want.RewardInfos[2] = PositionRewardInfo{GrowthInsideCheckpoint: uint128.From64(3), AmountOwed: 4}

	got, err := ParsePosition(want.Address, encodePosition(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, got.IsEmpty())
}

func TestPositionIsEmpty(t *testing.T) {
	pool := newTestPool()
	p := newTestPosition(pool, 0)
	assert.True(t, p.IsEmpty())

	p.RewardInfos[1].AmountOwed = 1
	assert.False(t, p.IsEmpty())
}

func TestTickArrayDecode(t *testing.T) {
	pool := newTestPool()
	data := encodeTickArray(-5632, pool.PoolId, func(i int, tick []byte) {
		if i != 3 {
			return
		}
		tick[0] = 1
		// liquidity net -2 as i128
		for j := 1; j < 17; j++ {
			tick[j] = 0xff
		}
		tick[1] = 0xfe
		putU128(tick[17:33], uint128.From64(2))
		putU128(tick[33:49], uint128.From64(10))
		putU128(tick[97:113], uint128.From64(30))
	})

	ta, err := ParseTickArray(solana.PublicKey{}, data)
	require.NoError(t, err)
	assert.Equal(t, int32(-5632), ta.StartTickIndex)
	assert.Equal(t, pool.PoolId, ta.WhirlpoolAddress)

	tick, err := ta.TickAt(-5632+3*64, 64)
	require.NoError(t, err)
	assert.True(t, tick.Initialized)
	assert.Equal(t, 0, tick.LiquidityNet.Cmp(big.NewInt(-2)))
	assert.Equal(t, uint128.From64(2), tick.LiquidityGross)
	assert.Equal(t, uint128.From64(10), tick.FeeGrowthOutsideA)
	assert.Equal(t, uint128.From64(30), tick.RewardGrowthsOutside[2])

	_, err = ta.TickAt(0, 64)
	assert.ErrorIs(t, err, ErrTickArrayMismatch)
}

func TestTickArraysForRange(t *testing.T) {
	pool := newTestPool()

	arrays, err := TickArraysForRange(pool.PoolId, 64, -640, 6000)
	require.NoError(t, err)
	assert.Equal(t, int32(-5632), arrays.LowerStart)
	assert.Equal(t, int32(5632), arrays.UpperStart)

	want, err := TickArrayAddress(pool.PoolId, -5632)
	require.NoError(t, err)
	assert.Equal(t, want, arrays.Lower)
	assert.NotEqual(t, arrays.Lower, arrays.Upper)
}

func TestProgramErrorName(t *testing.T) {
	assert.Equal(t, "ClosePositionNotEmpty", ProgramErrorName(6005))
	assert.Equal(t, "LiquidityZero", ProgramErrorName(CodeLiquidityZero))
	assert.Equal(t, "TokenMinSubceeded", ProgramErrorName(6018))
	assert.Equal(t, "DuplicateTwoHopPool", ProgramErrorName(6042))
	assert.Equal(t, "Unknown(6043)", ProgramErrorName(6043))
	assert.True(t, IsSlippageError(6017))
	assert.False(t, IsSlippageError(6005))
}

func TestTickArrayEncodeMatchesDecode(t *testing.T) {
	pool := newTestPool()
	ta := &TickArray{StartTickIndex: 5632, WhirlpoolAddress: pool.PoolId}
	for i := range ta.Ticks {
		ta.Ticks[i].LiquidityNet = new(big.Int)
	}
	ta.Ticks[1] = Tick{
		Initialized:       true,
		LiquidityNet:      big.NewInt(-1_000_000),
		LiquidityGross:    uint128.From64(1_000_000),
		FeeGrowthOutsideB: uint128.New(1, 2),
	}

	data, err := ta.Encode()
	require.NoError(t, err)
	require.Len(t, data, TickArraySize)

	got, err := ParseTickArray(solana.PublicKey{}, data)
	require.NoError(t, err)
	tick, err := got.TickAt(5632+64, 64)
	require.NoError(t, err)
	assert.True(t, tick.Initialized)
	assert.Equal(t, 0, tick.LiquidityNet.Cmp(big.NewInt(-1_000_000)))
	assert.Equal(t, uint128.New(1, 2), tick.FeeGrowthOutsideB)
	assert.Equal(t, pool.PoolId, got.WhirlpoolAddress)
}

func TestWhirlpoolIdentity(t *testing.T) {
	pool := newTestPool()
	assert.Equal(t, WhirlpoolProgramID, pool.GetProgramID())
	assert.Equal(t, pool.PoolId.String(), pool.GetID())

	a, b := pool.GetTokens()
	assert.Equal(t, pool.TokenMintA.String(), a)
	assert.Equal(t, pool.TokenMintB.String(), b)
}
