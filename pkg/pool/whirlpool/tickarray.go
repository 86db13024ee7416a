package whirlpool

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"lpmanager/pkg/clmm"
	"lukechampine.com/uint128"
)

type TickArray struct {
	StartTickIndex   int32                    // 4
	Ticks            [clmm.TickArraySize]Tick // 88 * 113 bytes
	WhirlpoolAddress solana.PublicKey         // 32

	Address solana.PublicKey
}

type Tick struct {
	Initialized          bool                        // 1
	LiquidityNet         *big.Int                    // 16 (i128)
	LiquidityGross       uint128.Uint128             // 16
	FeeGrowthOutsideA    uint128.Uint128             // 16
	FeeGrowthOutsideB    uint128.Uint128             // 16
	RewardGrowthsOutside [NumRewards]uint128.Uint128 // 48
}

var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

func (ta *TickArray) Decode(data []byte) error {
	if len(data) < TickArraySize {
		return fmt.Errorf("%w: tick array expected %d bytes, got %d", ErrInvalidAccountData, TickArraySize, len(data))
	}
	if !bytes.Equal(data[0:8], tickArrayDiscriminator) {
		return fmt.Errorf("%w: not a tick array account", ErrInvalidAccountData)
	}

	r := newFieldReader(data)
	ta.StartTickIndex = r.int32(8)
	for i := range ta.Ticks {
		off := 12 + i*TickSize
		t := &ta.Ticks[i]
		t.Initialized = data[off] != 0
		t.LiquidityNet = decodeI128(data[off+1 : off+17])
		t.LiquidityGross = r.uint128(off + 17)
		t.FeeGrowthOutsideA = r.uint128(off + 33)
		t.FeeGrowthOutsideB = r.uint128(off + 49)
		for j := 0; j < NumRewards; j++ {
			t.RewardGrowthsOutside[j] = r.uint128(off + 65 + j*16)
		}
	}
	end := 12 + len(ta.Ticks)*TickSize
	ta.WhirlpoolAddress = solana.PublicKeyFromBytes(data[end : end+32])
	return r.err
}

// ParseTickArray decodes a tick array account fetched from address.
func ParseTickArray(address solana.PublicKey, data []byte) (*TickArray, error) {
	ta := &TickArray{Address: address}
	if err := ta.Decode(data); err != nil {
		return nil, err
	}
	return ta, nil
}

// TickAt returns the tick at index, which must fall inside this array.
func (ta *TickArray) TickAt(index int32, tickSpacing uint16) (*Tick, error) {
	off, err := clmm.TickOffsetInArray(index, ta.StartTickIndex, tickSpacing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTickArrayMismatch, err)
	}
	return &ta.Ticks[off], nil
}

func decodeI128(b []byte) *big.Int {
	v := uint128.FromBytes(b).Big()
	if b[15]&0x80 != 0 {
		v.Sub(v, two128)
	}
	return v
}
