package whirlpool

import (
	"fmt"
	"math/big"

	cosmath "cosmossdk.io/math"
	"lpmanager/pkg/clmm"
	"lukechampine.com/uint128"
)

const bpsDenominator = 10000

var (
	maxU64  = cosmath.NewIntFromUint64(^uint64(0))
	maxU128 = cosmath.NewIntFromBigInt(uint128.Max.Big())
)

// QuoteInputKind selects which quantity a quote is derived from.
type QuoteInputKind uint8

const (
	inputUnset QuoteInputKind = iota
	InputLiquidity
	InputTokenA
	InputTokenB
)

func (k QuoteInputKind) String() string {
	switch k {
	case InputLiquidity:
		return "liquidity"
	case InputTokenA:
		return "tokenA"
	case InputTokenB:
		return "tokenB"
	default:
		return "unset"
	}
}

// QuoteInput is exactly one of liquidity, token A amount or token B amount.
// The zero value is invalid; build one with ByLiquidity, ByTokenA or ByTokenB.
type QuoteInput struct {
	Kind   QuoteInputKind
	Amount cosmath.Int
}

func ByLiquidity(liquidity cosmath.Int) QuoteInput {
	return QuoteInput{Kind: InputLiquidity, Amount: liquidity}
}

func ByTokenA(amount cosmath.Int) QuoteInput {
	return QuoteInput{Kind: InputTokenA, Amount: amount}
}

func ByTokenB(amount cosmath.Int) QuoteInput {
	return QuoteInput{Kind: InputTokenB, Amount: amount}
}

// PositionStatus locates the pool price relative to a position range.
type PositionStatus uint8

const (
	PriceBelowRange PositionStatus = iota
	PriceInRange
	PriceAboveRange
)

func (s PositionStatus) String() string {
	switch s {
	case PriceBelowRange:
		return "below_range"
	case PriceAboveRange:
		return "above_range"
	default:
		return "in_range"
	}
}

// LiquidityQuote is the result of an increase or decrease quote. For an
// increase TokenMax bounds what the program may take; for a decrease TokenMin
// bounds what it must return.
type LiquidityQuote struct {
	LiquidityDelta cosmath.Int
	TokenEstA      cosmath.Int
	TokenEstB      cosmath.Int
	TokenMinA      cosmath.Int
	TokenMinB      cosmath.Int
	TokenMaxA      cosmath.Int
	TokenMaxB      cosmath.Int
	SlippageBps    uint16
	Status         PositionStatus
}

// IncreaseLiquidityQuote quotes adding liquidity to [tickLower, tickUpper].
// Token estimates round up.
func IncreaseLiquidityQuote(input QuoteInput, pool *Whirlpool, tickLower, tickUpper int32, slippageBps uint16) (LiquidityQuote, error) {
	return liquidityQuote(input, pool, tickLower, tickUpper, slippageBps, true)
}

// DecreaseLiquidityQuote quotes removing liquidity from [tickLower, tickUpper].
// Token estimates round down.
func DecreaseLiquidityQuote(input QuoteInput, pool *Whirlpool, tickLower, tickUpper int32, slippageBps uint16) (LiquidityQuote, error) {
	return liquidityQuote(input, pool, tickLower, tickUpper, slippageBps, false)
}

func liquidityQuote(input QuoteInput, pool *Whirlpool, tickLower, tickUpper int32, slippageBps uint16, roundUp bool) (LiquidityQuote, error) {
	if slippageBps > bpsDenominator {
		return LiquidityQuote{}, fmt.Errorf("%w: %d", ErrInvalidSlippage, slippageBps)
	}
	if input.Amount.IsNil() || input.Amount.IsNegative() {
		return LiquidityQuote{}, ErrInvalidQuoteInput
	}
	if err := validateTickRange(tickLower, tickUpper, pool.TickSpacing); err != nil {
		return LiquidityQuote{}, err
	}

	sqrtLower, err := clmm.SqrtPriceAtTick(tickLower)
	if err != nil {
		return LiquidityQuote{}, fmt.Errorf("%w: %v", ErrInvalidTickIndex, err)
	}
	sqrtUpper, err := clmm.SqrtPriceAtTick(tickUpper)
	if err != nil {
		return LiquidityQuote{}, fmt.Errorf("%w: %v", ErrInvalidTickIndex, err)
	}
	current := pool.SqrtPrice

	var liquidity cosmath.Int
	switch input.Kind {
	case InputLiquidity:
		liquidity = input.Amount
	case InputTokenA:
		if input.Amount.GT(maxU64) {
			return LiquidityQuote{}, fmt.Errorf("%w: token A %s", ErrTokenAmountOverflow, input.Amount)
		}
		liquidity = clmm.LiquidityFromTokenA(current, sqrtLower, sqrtUpper, input.Amount)
	case InputTokenB:
		if input.Amount.GT(maxU64) {
			return LiquidityQuote{}, fmt.Errorf("%w: token B %s", ErrTokenAmountOverflow, input.Amount)
		}
		liquidity = clmm.LiquidityFromTokenB(current, sqrtLower, sqrtUpper, input.Amount)
	default:
		return LiquidityQuote{}, ErrInvalidQuoteInput
	}

	if liquidity.IsZero() {
		return LiquidityQuote{}, ErrZeroLiquidity
	}
	if liquidity.GT(maxU128) {
		return LiquidityQuote{}, fmt.Errorf("%w: %s", ErrLiquidityOverflow, liquidity)
	}

	estA, estB := clmm.TokenAmountsFromLiquidity(current, sqrtLower, sqrtUpper, liquidity, roundUp)
	if estA.GT(maxU64) || estB.GT(maxU64) {
		return LiquidityQuote{}, fmt.Errorf("%w: estimates %s / %s", ErrTokenAmountOverflow, estA, estB)
	}

	minA, maxA := slippageBounds(estA, slippageBps)
	minB, maxB := slippageBounds(estB, slippageBps)

	return LiquidityQuote{
		LiquidityDelta: liquidity,
		TokenEstA:      estA,
		TokenEstB:      estB,
		TokenMinA:      minA,
		TokenMinB:      minB,
		TokenMaxA:      maxA,
		TokenMaxB:      maxB,
		SlippageBps:    slippageBps,
		Status:         positionStatus(current, sqrtLower, sqrtUpper),
	}, nil
}

func validateTickRange(tickLower, tickUpper int32, tickSpacing uint16) error {
	if tickLower >= tickUpper {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidTickRange, tickLower, tickUpper)
	}
	for _, tick := range []int32{tickLower, tickUpper} {
		if !clmm.IsValidTick(tick, tickSpacing) {
			return fmt.Errorf("%w: %d (spacing %d)", ErrInvalidTickIndex, tick, tickSpacing)
		}
		start := clmm.TickArrayStartIndex(tick, tickSpacing)
		if !clmm.IsValidTickArrayStart(start, tickSpacing) {
			return fmt.Errorf("%w: tick %d start %d", ErrTickArrayOutOfRange, tick, start)
		}
	}
	return nil
}

func positionStatus(current, lower, upper uint128.Uint128) PositionStatus {
	switch {
	case current.Cmp(lower) <= 0:
		return PriceBelowRange
	case current.Cmp(upper) >= 0:
		return PriceAboveRange
	default:
		return PriceInRange
	}
}

// slippageBounds returns floor(est*(1-bps)) and ceil(est*(1+bps)), the upper
// bound capped at u64.
func slippageBounds(est cosmath.Int, bps uint16) (cosmath.Int, cosmath.Int) {
	den := big.NewInt(bpsDenominator)

	lo := new(big.Int).Mul(est.BigInt(), big.NewInt(int64(bpsDenominator-int(bps))))
	lo.Quo(lo, den)

	hi := new(big.Int).Mul(est.BigInt(), big.NewInt(int64(bpsDenominator+int(bps))))
	hi.Add(hi, big.NewInt(bpsDenominator-1))
	hi.Quo(hi, den)

	upper := cosmath.NewIntFromBigInt(hi)
	if upper.GT(maxU64) {
		upper = maxU64
	}
	return cosmath.NewIntFromBigInt(lo), upper
}

// LiquidityForPercent returns floor(liquidity * bps / 10000), e.g. 3000 bps
// for a 30% decrease.
func LiquidityForPercent(liquidity uint128.Uint128, bps uint16) (cosmath.Int, error) {
	if bps > bpsDenominator {
		return cosmath.ZeroInt(), fmt.Errorf("%w: %d", ErrInvalidPercent, bps)
	}
	v := new(big.Int).Mul(liquidity.Big(), big.NewInt(int64(bps)))
	v.Quo(v, big.NewInt(bpsDenominator))
	return cosmath.NewIntFromBigInt(v), nil
}
