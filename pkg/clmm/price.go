package clmm

import (
	"math/big"

	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"
)

const pricePrecision = 24

var q128Dec = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)

// PriceFromSqrtPrice converts a Q64.64 sqrt price into a human price of token A
// denominated in token B.
func PriceFromSqrtPrice(sqrtPrice uint128.Uint128, decimalsA, decimalsB uint8) decimal.Decimal {
	sq := new(big.Int).Mul(sqrtPrice.Big(), sqrtPrice.Big())
	return decimal.NewFromBigInt(sq, 0).
		DivRound(q128Dec, pricePrecision).
		Shift(int32(decimalsA) - int32(decimalsB))
}

// SqrtPriceFromPrice is the inverse of PriceFromSqrtPrice, truncated.
func SqrtPriceFromPrice(price decimal.Decimal, decimalsA, decimalsB uint8) uint128.Uint128 {
	if !price.IsPositive() {
		return uint128.Zero
	}
	x := price.Shift(int32(decimalsB) - int32(decimalsA)).Mul(q128Dec).BigInt()
	root := new(big.Int).Sqrt(x)
	if root.BitLen() > 128 {
		return uint128.Max
	}
	return uint128.FromBig(root)
}

// PriceToTickIndex returns the initializable tick nearest to price.
func PriceToTickIndex(price decimal.Decimal, decimalsA, decimalsB uint8, tickSpacing uint16) (int32, error) {
	if tickSpacing == 0 {
		return 0, ErrInvalidTickSpacing
	}
	sqrtPrice := SqrtPriceFromPrice(price, decimalsA, decimalsB)
	if sqrtPrice.Cmp(MinSqrtPrice) < 0 {
		sqrtPrice = MinSqrtPrice
	}
	if sqrtPrice.Cmp(MaxSqrtPrice) > 0 {
		sqrtPrice = MaxSqrtPrice
	}
	tick, err := TickAtSqrtPrice(sqrtPrice)
	if err != nil {
		return 0, err
	}

	tick = InitializableTick(tick, tickSpacing)
	lower, upper := FullRangeTicks(tickSpacing)
	if tick < lower {
		tick = lower
	}
	if tick > upper {
		tick = upper
	}
	return tick, nil
}

// TickIndexToPrice is the human price at tick.
func TickIndexToPrice(tick int32, decimalsA, decimalsB uint8) (decimal.Decimal, error) {
	sqrtPrice, err := SqrtPriceAtTick(tick)
	if err != nil {
		return decimal.Zero, err
	}
	return PriceFromSqrtPrice(sqrtPrice, decimalsA, decimalsB), nil
}
