package whirlpool

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"lpmanager/pkg/clmm"
)

// PositionAddress derives the position account of a position mint.
func PositionAddress(positionMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(PositionSeed), positionMint.Bytes()},
		WhirlpoolProgramID,
	)
}

// TickArrayAddress derives the tick array account starting at startTick.
func TickArrayAddress(whirlpool solana.PublicKey, startTick int32) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(TickArraySeed), whirlpool.Bytes(), []byte(strconv.FormatInt(int64(startTick), 10))},
		WhirlpoolProgramID,
	)
	return addr, err
}

// TickArrayAddressForTick derives the tick array account holding tick.
func TickArrayAddressForTick(whirlpool solana.PublicKey, tick int32, tickSpacing uint16) (solana.PublicKey, int32, error) {
	if tickSpacing == 0 {
		return solana.PublicKey{}, 0, clmm.ErrInvalidTickSpacing
	}
	start := clmm.TickArrayStartIndex(tick, tickSpacing)
	if !clmm.IsValidTickArrayStart(start, tickSpacing) {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: start %d", ErrTickArrayOutOfRange, start)
	}
	addr, err := TickArrayAddress(whirlpool, start)
	return addr, start, err
}

// PositionTickArrays are the tick arrays holding a position's bounds.
type PositionTickArrays struct {
	Lower      solana.PublicKey
	LowerStart int32
	Upper      solana.PublicKey
	UpperStart int32
}

// TickArraysForRange derives the tick arrays referenced by instructions on a
// position over [tickLower, tickUpper].
func TickArraysForRange(whirlpool solana.PublicKey, tickSpacing uint16, tickLower, tickUpper int32) (PositionTickArrays, error) {
	lower, lowerStart, err := TickArrayAddressForTick(whirlpool, tickLower, tickSpacing)
	if err != nil {
		return PositionTickArrays{}, err
	}
	upper, upperStart, err := TickArrayAddressForTick(whirlpool, tickUpper, tickSpacing)
	if err != nil {
		return PositionTickArrays{}, err
	}
	return PositionTickArrays{Lower: lower, LowerStart: lowerStart, Upper: upper, UpperStart: upperStart}, nil
}
