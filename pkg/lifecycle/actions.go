package lifecycle

import (
	"context"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lpmanager/pkg/pool/whirlpool"
)

// IncreaseLiquidity quotes against live state and adds liquidity to the
// position, bounded by the quote's maximum token amounts.
func (m *Manager) IncreaseLiquidity(ctx context.Context, positionMint solana.PublicKey, input whirlpool.QuoteInput, slippageBps uint16) (*Result, error) {
	opts, err := m.buildOptions()
	if err != nil {
		return nil, err
	}
	state, err := m.fetchState(ctx, positionMint)
	if err != nil {
		return nil, err
	}
	quote, err := whirlpool.IncreaseLiquidityQuote(input, state.Pool, state.Position.TickLowerIndex, state.Position.TickUpperIndex, m.slippage(slippageBps))
	m.observeQuote(ActionIncrease, err)
	if err != nil {
		return nil, err
	}
	plan, err := whirlpool.BuildIncreaseLiquidity(state.Pool, state.Position, quote, opts)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, &Result{
		Action:       ActionIncrease,
		Pool:         state.Pool.PoolId,
		PositionMint: positionMint,
		Plan:         plan,
		Quote:        &quote,
	})
}

// DecreaseLiquidity withdraws liquidity, bounded by the quote's minimum token
// amounts. Requests above the position's liquidity are rejected.
func (m *Manager) DecreaseLiquidity(ctx context.Context, positionMint solana.PublicKey, input whirlpool.QuoteInput, slippageBps uint16) (*Result, error) {
	state, err := m.fetchState(ctx, positionMint)
	if err != nil {
		return nil, err
	}
	return m.decrease(ctx, state.Pool, state.Position, input, slippageBps)
}

// DecreaseLiquidityPercent withdraws bps/10000 of the position's current
// liquidity, e.g. 3000 for 30%.
func (m *Manager) DecreaseLiquidityPercent(ctx context.Context, positionMint solana.PublicKey, bps uint16, slippageBps uint16) (*Result, error) {
	state, err := m.fetchState(ctx, positionMint)
	if err != nil {
		return nil, err
	}
	liquidity, err := whirlpool.LiquidityForPercent(state.Position.Liquidity, bps)
	if err != nil {
		return nil, err
	}
	return m.decrease(ctx, state.Pool, state.Position, whirlpool.ByLiquidity(liquidity), slippageBps)
}

func (m *Manager) decrease(ctx context.Context, pool *whirlpool.Whirlpool, position *whirlpool.Position, input whirlpool.QuoteInput, slippageBps uint16) (*Result, error) {
	opts, err := m.buildOptions()
	if err != nil {
		return nil, err
	}
	quote, err := decreaseQuote(pool, position, input, m.slippage(slippageBps))
	m.observeQuote(ActionDecrease, err)
	if err != nil {
		return nil, err
	}
	plan, err := whirlpool.BuildDecreaseLiquidity(pool, position, quote, opts)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, &Result{
		Action:       ActionDecrease,
		Pool:         pool.PoolId,
		PositionMint: position.PositionMint,
		Plan:         plan,
		Quote:        &quote,
	})
}

// HarvestPosition collects fees and every initialized reward.
func (m *Manager) HarvestPosition(ctx context.Context, positionMint solana.PublicKey) (*Result, error) {
	opts, err := m.buildOptions()
	if err != nil {
		return nil, err
	}
	state, err := m.fetchState(ctx, positionMint)
	if err != nil {
		return nil, err
	}
	plan, err := whirlpool.BuildHarvestPosition(state.Pool, state.Position, opts)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, &Result{
		Action:       ActionHarvest,
		Pool:         state.Pool.PoolId,
		PositionMint: positionMint,
		Plan:         plan,
	})
}

// ClosePosition collects everything owed, withdraws all liquidity and closes
// the position in one transaction.
func (m *Manager) ClosePosition(ctx context.Context, positionMint solana.PublicKey, slippageBps uint16) (*Result, error) {
	opts, err := m.buildOptions()
	if err != nil {
		return nil, err
	}
	state, err := m.fetchState(ctx, positionMint)
	if err != nil {
		return nil, err
	}

	var quote *whirlpool.LiquidityQuote
	if !state.Position.Liquidity.IsZero() {
		full := whirlpool.ByLiquidity(cosmath.NewIntFromBigInt(state.Position.Liquidity.Big()))
		q, err := decreaseQuote(state.Pool, state.Position, full, m.slippage(slippageBps))
		m.observeQuote(ActionClose, err)
		if err != nil {
			return nil, err
		}
		quote = &q
	}

	plan, err := whirlpool.BuildClosePosition(state.Pool, state.Position, quote, opts)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, &Result{
		Action:       ActionClose,
		Pool:         state.Pool.PoolId,
		PositionMint: positionMint,
		Plan:         plan,
		Quote:        quote,
	})
}

// OpenRequest describes a position to open. A nil Input opens it empty.
// SlippageBps takes DefaultSlippage for the configured tolerance; 0 is exact.
type OpenRequest struct {
	Pool        solana.PublicKey
	TickLower   int32
	TickUpper   int32
	Input       *whirlpool.QuoteInput
	SlippageBps uint16
}

// OpenPosition initializes any missing tick arrays, opens a position under a
// fresh mint and optionally deposits into it, all in one transaction.
func (m *Manager) OpenPosition(ctx context.Context, req OpenRequest) (*Result, error) {
	opts, err := m.buildOptions()
	if err != nil {
		return nil, err
	}
	pool, err := m.chain.FetchPool(ctx, req.Pool)
	if err != nil {
		return nil, fmt.Errorf("fetch pool %s: %w", req.Pool, err)
	}
	missing, err := m.chain.FetchMissingTickArrays(ctx, pool, req.TickLower, req.TickUpper)
	if err != nil {
		return nil, err
	}

	var quote *whirlpool.LiquidityQuote
	if req.Input != nil {
		q, err := whirlpool.IncreaseLiquidityQuote(*req.Input, pool, req.TickLower, req.TickUpper, m.slippage(req.SlippageBps))
		m.observeQuote(ActionOpen, err)
		if err != nil {
			return nil, err
		}
		quote = &q
	}

	mint, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate position mint: %w", err)
	}

	plan, err := whirlpool.BuildOpenPosition(pool, whirlpool.OpenPositionRequest{
		TickLower:         req.TickLower,
		TickUpper:         req.TickUpper,
		PositionMint:      mint,
		MissingTickArrays: missing,
		Quote:             quote,
	}, opts)
	if err != nil {
		return nil, err
	}
	return m.execute(ctx, &Result{
		Action:       ActionOpen,
		Pool:         pool.PoolId,
		PositionMint: mint.PublicKey(),
		Plan:         plan,
		Quote:        quote,
	})
}
