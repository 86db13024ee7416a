package whirlpool

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Position is a liquidity position, owned by whoever holds PositionMint.
type Position struct {
	Whirlpool            solana.PublicKey // 32
	PositionMint         solana.PublicKey // 32
	Liquidity            uint128.Uint128  // 16
	TickLowerIndex       int32            // 4
	TickUpperIndex       int32            // 4
	FeeGrowthCheckpointA uint128.Uint128  // 16
	FeeOwedA             uint64           // 8
	FeeGrowthCheckpointB uint128.Uint128  // 16
	FeeOwedB             uint64           // 8

	RewardInfos [NumRewards]PositionRewardInfo // 3 * 24 = 72

	Address solana.PublicKey
}

type PositionRewardInfo struct {
	GrowthInsideCheckpoint uint128.Uint128 // 16
	AmountOwed             uint64          // 8
}

func (p *Position) Decode(data []byte) error {
	if len(data) < PositionSize {
		return fmt.Errorf("%w: position expected %d bytes, got %d", ErrInvalidAccountData, PositionSize, len(data))
	}
	if !bytes.Equal(data[0:8], positionDiscriminator) {
		return fmt.Errorf("%w: not a position account", ErrInvalidAccountData)
	}

	r := newFieldReader(data)
	p.Whirlpool = solana.PublicKeyFromBytes(data[8:40])
	p.PositionMint = solana.PublicKeyFromBytes(data[40:72])
	p.Liquidity = r.uint128(72)
	p.TickLowerIndex = r.int32(88)
	p.TickUpperIndex = r.int32(92)
	p.FeeGrowthCheckpointA = r.uint128(96)
	p.FeeOwedA = r.uint64(112)
	p.FeeGrowthCheckpointB = r.uint128(120)
	p.FeeOwedB = r.uint64(136)
	for i := 0; i < NumRewards; i++ {
		off := 144 + i*24
		p.RewardInfos[i] = PositionRewardInfo{
			GrowthInsideCheckpoint: r.uint128(off),
			AmountOwed:             r.uint64(off + 16),
		}
	}
	return r.err
}

// ParsePosition decodes a position account fetched from address.
func ParsePosition(address solana.PublicKey, data []byte) (*Position, error) {
	p := &Position{Address: address}
	if err := p.Decode(data); err != nil {
		return nil, err
	}
	return p, nil
}

// IsEmpty reports whether the position can be closed as is: no liquidity and
// nothing owed according to its last checkpoint.
func (p *Position) IsEmpty() bool {
	if !p.Liquidity.IsZero() || p.FeeOwedA != 0 || p.FeeOwedB != 0 {
		return false
	}
	for _, r := range p.RewardInfos {
		if r.AmountOwed != 0 {
			return false
		}
	}
	return true
}

// InRange reports whether the pool's current tick lies inside the position.
func (p *Position) InRange(pool *Whirlpool) bool {
	return pool.TickCurrentIndex >= p.TickLowerIndex && pool.TickCurrentIndex < p.TickUpperIndex
}
