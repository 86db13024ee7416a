package clmm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// Tick constants of the Whirlpool program
const (
	MinTick       int32 = -443636
	MaxTick       int32 = 443636
	TickArraySize int32 = 88
)

var (
	ErrTickOutOfBounds      = errors.New("tick index out of bounds")
	ErrSqrtPriceOutOfBounds = errors.New("sqrt price out of bounds")
	ErrInvalidTickSpacing   = errors.New("invalid tick spacing")
)

var (
	// MinSqrtPrice and MaxSqrtPrice are the Q64.64 bounds accepted by the program.
	MinSqrtPrice = uint128.From64(4295048016)
	MaxSqrtPrice = mustUint128("79226673515401279992447579055")

	// Q96 values of sqrt(1.0001)^(2^i) for non-negative ticks.
	positiveTickRatios = []*uint256.Int{
		mustDec("79232123823359799118286999567"),
		mustDec("79236085330515764027303304731"),
		mustDec("79244008939048815603706035061"),
		mustDec("79259858533276714757314932305"),
		mustDec("79291567232598584799939703904"),
		mustDec("79355022692464371645785046466"),
		mustDec("79482085999252804386437311141"),
		mustDec("79736823300114093921829183326"),
		mustDec("80248749790819932309965073892"),
		mustDec("81282483887344747381513967011"),
		mustDec("83390072131320151908154831281"),
		mustDec("87770609709833776024991924138"),
		mustDec("97234110755111693312479820773"),
		mustDec("119332217159966728226237229890"),
		mustDec("179736315981702064433883588727"),
		mustDec("407748233172238350107850275304"),
		mustDec("2098478828474011932436660412517"),
		mustDec("55581415166113811149459800483533"),
		mustDec("38992368544603139932233054999993551"),
	}

	// Q64 values of 1/sqrt(1.0001)^(2^i) for negative ticks.
	negativeTickRatios = []uint64{
		18445821805675392311,
		18444899583751176498,
		18443055278223354162,
		18439367220385604838,
		18431993317065449817,
		18417254355718160513,
		18387811781193591352,
		18329067761203520168,
		18212142134806087854,
		17980523815641551639,
		17526086738831147013,
		16651378430235024244,
		15030750278693429944,
		12247334978882834399,
		8131365268884726200,
		3584323654723342297,
		696457651847595233,
		26294789957452057,
		37481735321082,
	}
)

func mustDec(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

func mustUint128(s string) uint128.Uint128 {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid uint128 literal " + s)
	}
	return uint128.FromBig(v)
}

// SqrtPriceAtTick returns sqrt(1.0001^tick) as a Q64.64 fixed point number,
// rounded down exactly as the Whirlpool program computes it.
func SqrtPriceAtTick(tick int32) (uint128.Uint128, error) {
	if tick < MinTick || tick > MaxTick {
		return uint128.Zero, fmt.Errorf("%w: %d", ErrTickOutOfBounds, tick)
	}
	if tick >= 0 {
		return sqrtPricePositiveTick(tick), nil
	}
	return sqrtPriceNegativeTick(-tick), nil
}

func sqrtPricePositiveTick(tick int32) uint128.Uint128 {
	ratio := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	if tick&1 != 0 {
		ratio.Set(positiveTickRatios[0])
	}
	for i := 1; i < len(positiveTickRatios); i++ {
		if tick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, positiveTickRatios[i])
			ratio.Rsh(ratio, 96)
		}
	}
	// Q96 -> Q64
	ratio.Rsh(ratio, 32)
	return uint128.New(ratio[0], ratio[1])
}

func sqrtPriceNegativeTick(absTick int32) uint128.Uint128 {
	ratio := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	if absTick&1 != 0 {
		ratio.SetUint64(negativeTickRatios[0])
	}
	for i := 1; i < len(negativeTickRatios); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, uint256.NewInt(negativeTickRatios[i]))
			ratio.Rsh(ratio, 64)
		}
	}
	return uint128.New(ratio[0], ratio[1])
}

// TickAtSqrtPrice returns the greatest tick whose sqrt price is <= sqrtPrice.
func TickAtSqrtPrice(sqrtPrice uint128.Uint128) (int32, error) {
	if sqrtPrice.Cmp(MinSqrtPrice) < 0 || sqrtPrice.Cmp(MaxSqrtPrice) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrSqrtPriceOutOfBounds, sqrtPrice.String())
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		p, err := SqrtPriceAtTick(mid)
		if err != nil {
			return 0, err
		}
		if p.Cmp(sqrtPrice) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// IsValidTick reports whether tick is in range and aligned to tickSpacing.
func IsValidTick(tick int32, tickSpacing uint16) bool {
	if tickSpacing == 0 || tick < MinTick || tick > MaxTick {
		return false
	}
	return tick%int32(tickSpacing) == 0
}

// TickArrayStartIndex returns the start tick of the tick array holding tick.
// A zero tickSpacing yields 0, which IsValidTickArrayStart rejects.
func TickArrayStartIndex(tick int32, tickSpacing uint16) int32 {
	if tickSpacing == 0 {
		return 0
	}
	ticksInArray := int64(TickArraySize) * int64(tickSpacing)
	return int32(floorDiv(int64(tick), ticksInArray) * ticksInArray)
}

// IsValidTickArrayStart reports whether a tick array starting at start can exist.
func IsValidTickArrayStart(start int32, tickSpacing uint16) bool {
	if tickSpacing == 0 {
		return false
	}
	ticksInArray := int64(TickArraySize) * int64(tickSpacing)
	if int64(start)%ticksInArray != 0 {
		return false
	}
	minStart := floorDiv(int64(MinTick), ticksInArray) * ticksInArray
	return int64(start) >= minStart && int64(start) <= int64(MaxTick)
}

// TickOffsetInArray is the index of tick within the array starting at start.
func TickOffsetInArray(tick, start int32, tickSpacing uint16) (int, error) {
	if tickSpacing == 0 {
		return 0, ErrInvalidTickSpacing
	}
	offset := (int64(tick) - int64(start)) / int64(tickSpacing)
	if int64(tick) < int64(start) || offset >= int64(TickArraySize) {
		return 0, fmt.Errorf("%w: tick %d not in array starting at %d", ErrTickOutOfBounds, tick, start)
	}
	return int(offset), nil
}

// FullRangeTicks returns the widest initializable tick range for tickSpacing.
func FullRangeTicks(tickSpacing uint16) (int32, int32) {
	if tickSpacing == 0 {
		return 0, 0
	}
	spacing := int64(tickSpacing)
	lower := ceilDiv(int64(MinTick), spacing) * spacing
	upper := floorDiv(int64(MaxTick), spacing) * spacing
	return int32(lower), int32(upper)
}

// InitializableTick snaps tick to a multiple of tickSpacing, rounding to nearest.
func InitializableTick(tick int32, tickSpacing uint16) int32 {
	if tickSpacing == 0 {
		return tick
	}
	spacing := int64(tickSpacing)
	t := int64(tick)
	down := floorDiv(t, spacing) * spacing
	up := down + spacing
	if t-down < up-t {
		return int32(down)
	}
	return int32(up)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	return -floorDiv(-a, b)
}
