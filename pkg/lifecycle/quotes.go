package lifecycle

import (
	"context"
	"fmt"
	"math"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lpmanager/pkg/metrics"
	"lpmanager/pkg/pool/whirlpool"
)

// PositionFees are the fees and rewards a harvest would collect now.
type PositionFees struct {
	Fees    whirlpool.FeesQuote
	Rewards whirlpool.RewardsQuote
}

// DefaultSlippage selects the manager's configured slippage tolerance. Any
// other value, zero included, is used as given.
const DefaultSlippage uint16 = math.MaxUint16

func (m *Manager) slippage(bps uint16) uint16 {
	if bps == DefaultSlippage {
		return m.slippageBps
	}
	return bps
}

func (m *Manager) observeQuote(kind string, err error) {
	if m.metrics == nil {
		return
	}
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeInvalid
	}
	m.metrics.ObserveQuote(kind, outcome)
}

// QuoteIncrease quotes adding liquidity to a position at the live price.
// DefaultSlippage uses the configured tolerance.
func (m *Manager) QuoteIncrease(ctx context.Context, positionMint solana.PublicKey, input whirlpool.QuoteInput, slippageBps uint16) (whirlpool.LiquidityQuote, error) {
	state, err := m.fetchState(ctx, positionMint)
	if err != nil {
		return whirlpool.LiquidityQuote{}, err
	}
	q, err := whirlpool.IncreaseLiquidityQuote(input, state.Pool, state.Position.TickLowerIndex, state.Position.TickUpperIndex, m.slippage(slippageBps))
	m.observeQuote(ActionIncrease, err)
	return q, err
}

// QuoteDecrease quotes withdrawing liquidity from a position.
func (m *Manager) QuoteDecrease(ctx context.Context, positionMint solana.PublicKey, input whirlpool.QuoteInput, slippageBps uint16) (whirlpool.LiquidityQuote, error) {
	state, err := m.fetchState(ctx, positionMint)
	if err != nil {
		return whirlpool.LiquidityQuote{}, err
	}
	q, err := decreaseQuote(state.Pool, state.Position, input, m.slippage(slippageBps))
	m.observeQuote(ActionDecrease, err)
	return q, err
}

func decreaseQuote(pool *whirlpool.Whirlpool, position *whirlpool.Position, input whirlpool.QuoteInput, slippageBps uint16) (whirlpool.LiquidityQuote, error) {
	q, err := whirlpool.DecreaseLiquidityQuote(input, pool, position.TickLowerIndex, position.TickUpperIndex, slippageBps)
	if err != nil {
		return q, err
	}
	if q.LiquidityDelta.GT(cosmath.NewIntFromBigInt(position.Liquidity.Big())) {
		return q, fmt.Errorf("%w: %s > %s", whirlpool.ErrLiquidityExceedsPosition, q.LiquidityDelta, position.Liquidity)
	}
	return q, nil
}

// QuoteOpen quotes the initial deposit of a new position on pool.
func (m *Manager) QuoteOpen(ctx context.Context, poolAddress solana.PublicKey, tickLower, tickUpper int32, input whirlpool.QuoteInput, slippageBps uint16) (whirlpool.LiquidityQuote, error) {
	pool, err := m.chain.FetchPool(ctx, poolAddress)
	if err != nil {
		return whirlpool.LiquidityQuote{}, fmt.Errorf("fetch pool %s: %w", poolAddress, err)
	}
	q, err := whirlpool.IncreaseLiquidityQuote(input, pool, tickLower, tickUpper, m.slippage(slippageBps))
	m.observeQuote(ActionOpen, err)
	return q, err
}

// QuotePositionFees computes fees and rewards owed as of now, including
// growth since the position's last checkpoint.
func (m *Manager) QuotePositionFees(ctx context.Context, positionMint solana.PublicKey) (PositionFees, error) {
	state, err := m.fetchState(ctx, positionMint)
	if err != nil {
		return PositionFees{}, err
	}
	fees, err := whirlpool.CollectFeesQuote(state.Pool, state.Position, state.LowerTick, state.UpperTick)
	if err != nil {
		m.observeQuote("fees", err)
		return PositionFees{}, err
	}
	rewards, err := whirlpool.CollectRewardsQuote(state.Pool, state.Position, state.LowerTick, state.UpperTick, uint64(m.now().Unix()))
	m.observeQuote("fees", err)
	if err != nil {
		return PositionFees{}, err
	}
	m.logger.Debug("fees quoted",
		zap.Stringer("position_mint", positionMint),
		zap.Stringer("fee_a", fees.FeeOwedA),
		zap.Stringer("fee_b", fees.FeeOwedB),
		zap.Int("rewards", len(rewards.Rewards)))
	return PositionFees{Fees: fees, Rewards: rewards}, nil
}
