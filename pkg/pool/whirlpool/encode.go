package whirlpool

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// fieldWriter is the encoding counterpart of fieldReader. It writes the
// account layout in order and keeps the first error.
type fieldWriter struct {
	buf *bytes.Buffer
	enc *bin.Encoder
	err error
}

func newFieldWriter(size int) *fieldWriter {
	buf := bytes.NewBuffer(make([]byte, 0, size))
	return &fieldWriter{buf: buf, enc: bin.NewBinEncoder(buf)}
}

func (w *fieldWriter) do(f func() error) {
	if w.err == nil {
		w.err = f()
	}
}

func (w *fieldWriter) bytes(b []byte) {
	w.do(func() error { return w.enc.WriteBytes(b, false) })
}

func (w *fieldWriter) key(k solana.PublicKey) {
	w.bytes(k[:])
}

func (w *fieldWriter) bool(v bool) {
	w.do(func() error { return w.enc.WriteBool(v) })
}

func (w *fieldWriter) uint16(v uint16) {
	w.do(func() error { return w.enc.WriteUint16(v, binary.LittleEndian) })
}

func (w *fieldWriter) int32(v int32) {
	w.do(func() error { return w.enc.WriteInt32(v, binary.LittleEndian) })
}

func (w *fieldWriter) uint64(v uint64) {
	w.do(func() error { return w.enc.WriteUint64(v, binary.LittleEndian) })
}

func (w *fieldWriter) uint128(v uint128.Uint128) {
	w.do(func() error { return writeUint128(w.enc, v) })
}

// int128 writes v as two's complement.
func (w *fieldWriter) int128(v *big.Int) {
	if v == nil {
		v = new(big.Int)
	}
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, two128)
	}
	if u.BitLen() > 128 || v.BitLen() > 127 {
		w.do(func() error { return fmt.Errorf("%w: i128 %s", ErrLiquidityOverflow, v) })
		return
	}
	w.uint128(uint128.FromBig(u))
}

func (w *fieldWriter) finish(size int) ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.buf.Len() != size {
		return nil, fmt.Errorf("encoded %d bytes, layout is %d", w.buf.Len(), size)
	}
	return w.buf.Bytes(), nil
}

// Encode writes the pool in its on-chain account layout.
func (pool *Whirlpool) Encode() ([]byte, error) {
	w := newFieldWriter(WhirlpoolSize)
	w.bytes(whirlpoolDiscriminator)
	w.key(pool.WhirlpoolsConfig)
	w.bytes(pool.WhirlpoolBump[:])
	w.uint16(pool.TickSpacing)
	w.bytes(pool.TickSpacingSeed[:])
	w.uint16(pool.FeeRate)
	w.uint16(pool.ProtocolFeeRate)
	w.uint128(pool.Liquidity)
	w.uint128(pool.SqrtPrice)
	w.int32(pool.TickCurrentIndex)
	w.uint64(pool.ProtocolFeeOwedA)
	w.uint64(pool.ProtocolFeeOwedB)
	w.key(pool.TokenMintA)
	w.key(pool.TokenVaultA)
	w.uint128(pool.FeeGrowthGlobalA)
	w.key(pool.TokenMintB)
	w.key(pool.TokenVaultB)
	w.uint128(pool.FeeGrowthGlobalB)
	w.uint64(pool.RewardLastUpdatedTimestamp)
	for _, r := range pool.RewardInfos {
		w.key(r.Mint)
		w.key(r.Vault)
		w.key(r.Authority)
		w.uint128(r.EmissionsPerSecondX64)
		w.uint128(r.GrowthGlobalX64)
	}
	return w.finish(WhirlpoolSize)
}

// Encode writes the position in its on-chain account layout.
func (p *Position) Encode() ([]byte, error) {
	w := newFieldWriter(PositionSize)
	w.bytes(positionDiscriminator)
	w.key(p.Whirlpool)
	w.key(p.PositionMint)
	w.uint128(p.Liquidity)
	w.int32(p.TickLowerIndex)
	w.int32(p.TickUpperIndex)
	w.uint128(p.FeeGrowthCheckpointA)
	w.uint64(p.FeeOwedA)
	w.uint128(p.FeeGrowthCheckpointB)
	w.uint64(p.FeeOwedB)
	for _, r := range p.RewardInfos {
		w.uint128(r.GrowthInsideCheckpoint)
		w.uint64(r.AmountOwed)
	}
	return w.finish(PositionSize)
}

// Encode writes the tick array in its on-chain account layout.
func (ta *TickArray) Encode() ([]byte, error) {
	w := newFieldWriter(TickArraySize)
	w.bytes(tickArrayDiscriminator)
	w.int32(ta.StartTickIndex)
	for i := range ta.Ticks {
		t := &ta.Ticks[i]
		w.bool(t.Initialized)
		w.int128(t.LiquidityNet)
		w.uint128(t.LiquidityGross)
		w.uint128(t.FeeGrowthOutsideA)
		w.uint128(t.FeeGrowthOutsideB)
		for _, g := range t.RewardGrowthsOutside {
			w.uint128(g)
		}
	}
	w.key(ta.WhirlpoolAddress)
	return w.finish(TickArraySize)
}
