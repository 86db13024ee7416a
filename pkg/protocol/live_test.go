package protocol

import (
	"context"
	"testing"
	"time"

	cosmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lpmanager/pkg/clmm"
	"lpmanager/pkg/config"
	"lpmanager/pkg/pool/whirlpool"
	"lpmanager/pkg/sol"
)

const (
	wsolMint = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	// Whirlpool SOL/USDC
	solUsdcPool = "FpCMFDFGYotvufJ7HrFHsWEiiQCGbkLCtwHiDnh7o28Q"
)

// Runs against mainnet when RPC_ENDPOINTS is set.
func TestLiveWhirlpoolFetch(t *testing.T) {
	_ = config.LoadEnv("../../.env")
	endpoints := config.GetRPCEndpoints()
	if len(endpoints) == 0 {
		t.Skip("No RPC endpoints configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := sol.NewClient(ctx, endpoints[0], "", 20)
	require.NoError(t, err)
	p := NewWhirlpool(client)

	pool, err := p.FetchPoolByID(ctx, solUsdcPool)
	require.NoError(t, err)
	tokenA, tokenB := pool.GetTokens()
	assert.ElementsMatch(t, []string{wsolMint, usdcMint}, []string{tokenA, tokenB})

	decA, err := p.FetchMintDecimals(ctx, pool.TokenMintA)
	require.NoError(t, err)
	decB, err := p.FetchMintDecimals(ctx, pool.TokenMintB)
	require.NoError(t, err)
	t.Logf("pool %s tick %d price %s", pool.GetID(), pool.TickCurrentIndex, clmm.PriceFromSqrtPrice(pool.SqrtPrice, decA, decB).StringFixed(4))

	lower, upper := clmm.FullRangeTicks(pool.TickSpacing)
	q, err := whirlpool.IncreaseLiquidityQuote(whirlpool.ByTokenA(cosmath.NewInt(1_000_000_000)), pool, lower, upper, whirlpool.DefaultSlippageBps)
	require.NoError(t, err)
	assert.True(t, q.LiquidityDelta.IsPositive())
	assert.True(t, q.TokenMaxB.GTE(q.TokenEstB))

	missing, err := p.FetchMissingTickArrays(ctx, pool, lower, upper)
	require.NoError(t, err)
	t.Logf("full range needs %d uninitialized tick arrays", len(missing))
}
