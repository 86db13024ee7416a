package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lpmanager/pkg/pool/whirlpool"
	"lpmanager/pkg/pool/whirlpool/whirlpooltest"
	"lpmanager/pkg/sol"
	"lpmanager/pkg/sol/soltest"
)

func TestFetchPositionState(t *testing.T) {
	r := soltest.NewRPC()
	pool := whirlpooltest.NewPool()
	position := whirlpooltest.NewPosition(pool, 5_000_000)
	whirlpooltest.SeedPosition(r, pool, position)

	state, err := NewWhirlpool(r).FetchPositionState(context.Background(), position.PositionMint)
	require.NoError(t, err)
	assert.Equal(t, pool.PoolId, state.Pool.PoolId)
	assert.Equal(t, pool.SqrtPrice, state.Pool.SqrtPrice)
	assert.Equal(t, position.Address, state.Position.Address)
	assert.Equal(t, position.Liquidity, state.Position.Liquidity)
	assert.Equal(t, int32(-5632), state.LowerArray.StartTickIndex)
	assert.Equal(t, int32(0), state.UpperArray.StartTickIndex)
	assert.True(t, state.LowerTick.Initialized)
	assert.True(t, state.UpperTick.Initialized)
}

func TestFetchPositionNotFound(t *testing.T) {
	_, err := NewWhirlpool(soltest.NewRPC()).FetchPosition(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrPositionNotFound)
	assert.False(t, sol.IsRetryable(err))
}

func TestFetchPoolTransportError(t *testing.T) {
	r := soltest.NewRPC()
	r.AccountErr = errors.New("503 service unavailable")

	_, err := NewWhirlpool(r).FetchPool(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.True(t, sol.IsRetryable(err))
}

func TestFetchPoolWrongOwner(t *testing.T) {
	r := soltest.NewRPC()
	pool := whirlpooltest.NewPool()
	data, err := pool.Encode()
	require.NoError(t, err)
	r.SetAccount(pool.PoolId, solana.SystemProgramID, data)

	_, err = NewWhirlpool(r).FetchPool(context.Background(), pool.PoolId)
	assert.ErrorIs(t, err, whirlpool.ErrInvalidAccountData)
}

func TestFetchPositionStateMissingTickArray(t *testing.T) {
	r := soltest.NewRPC()
	pool := whirlpooltest.NewPool()
	position := whirlpooltest.NewPosition(pool, 1)
	whirlpooltest.SeedPool(r, pool)
	data, err := position.Encode()
	require.NoError(t, err)
	r.SetAccount(position.Address, whirlpool.WhirlpoolProgramID, data)

	_, err = NewWhirlpool(r).FetchPositionState(context.Background(), position.PositionMint)
	assert.ErrorIs(t, err, ErrTickArrayNotFound)
}

func TestFetchMissingTickArrays(t *testing.T) {
	r := soltest.NewRPC()
	pool := whirlpooltest.NewPool()
	whirlpooltest.SeedPool(r, pool)
	whirlpooltest.SeedTickArray(r, whirlpooltest.NewTickArray(pool, 0))
	p := NewWhirlpool(r)

	missing, err := p.FetchMissingTickArrays(context.Background(), pool, -640, 640)
	require.NoError(t, err)
	assert.Equal(t, []int32{-5632}, missing)

	missing, err = p.FetchMissingTickArrays(context.Background(), pool, 64, 640)
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = p.FetchMissingTickArrays(context.Background(), pool, 0, 500000)
	assert.ErrorIs(t, err, whirlpool.ErrTickArrayOutOfRange)
}

func TestFetchPoolsByPair(t *testing.T) {
	r := soltest.NewRPC()
	pool := whirlpooltest.NewPool()
	whirlpooltest.SeedPool(r, pool)

	other := whirlpooltest.NewPool()
	whirlpooltest.SeedPool(r, other)

	p := NewWhirlpool(r)
	pools, err := p.FetchPoolsByPair(context.Background(), pool.TokenMintA.String(), pool.TokenMintB.String())
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, pool.PoolId, pools[0].PoolId)

	// reverse order finds the same pool
	pools, err = p.FetchPoolsByPair(context.Background(), pool.TokenMintB.String(), pool.TokenMintA.String())
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, 4, r.ProgramCalls)

	_, err = p.FetchPoolsByPair(context.Background(), "not-a-key", pool.TokenMintB.String())
	assert.Error(t, err)
}

func TestFetchPositionsByPool(t *testing.T) {
	r := soltest.NewRPC()
	pool := whirlpooltest.NewPool()
	a := whirlpooltest.NewPosition(pool, 10)
	b := whirlpooltest.NewPosition(pool, 20)
	whirlpooltest.SeedPosition(r, pool, a)
	whirlpooltest.SeedPosition(r, pool, b)

	positions, err := NewWhirlpool(r).FetchPositionsByPool(context.Background(), pool.PoolId)
	require.NoError(t, err)
	assert.Len(t, positions, 2)
}

func TestFetchMintDecimals(t *testing.T) {
	r := soltest.NewRPC()
	mint := solana.NewWallet().PublicKey()
	data := make([]byte, 82)
	data[44] = 6
	data[45] = 1
	r.SetAccount(mint, solana.TokenProgramID, data)

	decimals, err := NewWhirlpool(r).FetchMintDecimals(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)

	// Token-2022 mints carry extensions after the base layout
	ext := solana.NewWallet().PublicKey()
	data2022 := make([]byte, 170)
	data2022[44] = 9
	data2022[45] = 1
	r.SetAccount(ext, solana.Token2022ProgramID, data2022)
	decimals, err = NewWhirlpool(r).FetchMintDecimals(context.Background(), ext)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), decimals)

	_, err = NewWhirlpool(r).FetchMintDecimals(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrMintNotFound)

	wrongOwner := solana.NewWallet().PublicKey()
	r.SetAccount(wrongOwner, whirlpool.WhirlpoolProgramID, data)
	_, err = NewWhirlpool(r).FetchMintDecimals(context.Background(), wrongOwner)
	assert.ErrorIs(t, err, whirlpool.ErrInvalidAccountData)
}
