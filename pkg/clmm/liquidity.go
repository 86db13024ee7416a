package clmm

import (
	"math/big"

	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"
)

var q64 = new(big.Int).Lsh(big.NewInt(1), 64)

func orderSqrtPrices(a, b uint128.Uint128) (uint128.Uint128, uint128.Uint128) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}

func quo(num, den *big.Int, roundUp bool) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if roundUp && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// AmountADelta returns L * (sqrtB - sqrtA) * 2^64 / (sqrtA * sqrtB).
func AmountADelta(sqrtA, sqrtB uint128.Uint128, liquidity cosmath.Int, roundUp bool) cosmath.Int {
	lo, hi := orderSqrtPrices(sqrtA, sqrtB)
	if lo.IsZero() || liquidity.IsZero() {
		return cosmath.ZeroInt()
	}

	num := new(big.Int).Mul(liquidity.BigInt(), new(big.Int).Sub(hi.Big(), lo.Big()))
	num.Lsh(num, 64)
	den := new(big.Int).Mul(lo.Big(), hi.Big())
	return cosmath.NewIntFromBigInt(quo(num, den, roundUp))
}

// AmountBDelta returns L * (sqrtB - sqrtA) / 2^64.
func AmountBDelta(sqrtA, sqrtB uint128.Uint128, liquidity cosmath.Int, roundUp bool) cosmath.Int {
	lo, hi := orderSqrtPrices(sqrtA, sqrtB)
	if liquidity.IsZero() {
		return cosmath.ZeroInt()
	}

	num := new(big.Int).Mul(liquidity.BigInt(), new(big.Int).Sub(hi.Big(), lo.Big()))
	return cosmath.NewIntFromBigInt(quo(num, q64, roundUp))
}

// LiquidityFromAmountA is the liquidity that amount of token A provides over
// [sqrtA, sqrtB]. Rounds down.
func LiquidityFromAmountA(sqrtA, sqrtB uint128.Uint128, amount cosmath.Int) cosmath.Int {
	lo, hi := orderSqrtPrices(sqrtA, sqrtB)
	diff := new(big.Int).Sub(hi.Big(), lo.Big())
	if diff.Sign() == 0 {
		return cosmath.ZeroInt()
	}

	num := new(big.Int).Mul(amount.BigInt(), lo.Big())
	num.Mul(num, hi.Big())
	den := new(big.Int).Lsh(diff, 64)
	return cosmath.NewIntFromBigInt(quo(num, den, false))
}

// LiquidityFromAmountB is the liquidity that amount of token B provides over
// [sqrtA, sqrtB]. Rounds down.
func LiquidityFromAmountB(sqrtA, sqrtB uint128.Uint128, amount cosmath.Int) cosmath.Int {
	lo, hi := orderSqrtPrices(sqrtA, sqrtB)
	diff := new(big.Int).Sub(hi.Big(), lo.Big())
	if diff.Sign() == 0 {
		return cosmath.ZeroInt()
	}

	num := new(big.Int).Lsh(amount.BigInt(), 64)
	return cosmath.NewIntFromBigInt(quo(num, diff, false))
}

// TokenAmountsFromLiquidity splits liquidity into token A and B amounts for a
// position over [sqrtLower, sqrtUpper] at the current price.
func TokenAmountsFromLiquidity(sqrtCurrent, sqrtLower, sqrtUpper uint128.Uint128, liquidity cosmath.Int, roundUp bool) (cosmath.Int, cosmath.Int) {
	switch {
	case sqrtCurrent.Cmp(sqrtLower) <= 0:
		return AmountADelta(sqrtLower, sqrtUpper, liquidity, roundUp), cosmath.ZeroInt()
	case sqrtCurrent.Cmp(sqrtUpper) >= 0:
		return cosmath.ZeroInt(), AmountBDelta(sqrtLower, sqrtUpper, liquidity, roundUp)
	default:
		return AmountADelta(sqrtCurrent, sqrtUpper, liquidity, roundUp),
			AmountBDelta(sqrtLower, sqrtCurrent, liquidity, roundUp)
	}
}

// LiquidityFromTokenA is the liquidity obtainable from amount of token A at the
// current price. Zero when the range lies entirely below the price.
func LiquidityFromTokenA(sqrtCurrent, sqrtLower, sqrtUpper uint128.Uint128, amount cosmath.Int) cosmath.Int {
	switch {
	case sqrtCurrent.Cmp(sqrtUpper) >= 0:
		return cosmath.ZeroInt()
	case sqrtCurrent.Cmp(sqrtLower) <= 0:
		return LiquidityFromAmountA(sqrtLower, sqrtUpper, amount)
	default:
		return LiquidityFromAmountA(sqrtCurrent, sqrtUpper, amount)
	}
}

// LiquidityFromTokenB is the liquidity obtainable from amount of token B at the
// current price. Zero when the range lies entirely above the price.
func LiquidityFromTokenB(sqrtCurrent, sqrtLower, sqrtUpper uint128.Uint128, amount cosmath.Int) cosmath.Int {
	switch {
	case sqrtCurrent.Cmp(sqrtLower) <= 0:
		return cosmath.ZeroInt()
	case sqrtCurrent.Cmp(sqrtUpper) >= 0:
		return LiquidityFromAmountB(sqrtLower, sqrtUpper, amount)
	default:
		return LiquidityFromAmountB(sqrtLower, sqrtCurrent, amount)
	}
}
