package whirlpool

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lpmanager/pkg/anchor"
	"lukechampine.com/uint128"
)

var (
	whirlpoolDiscriminator = anchor.AccountDiscriminator("Whirlpool")
	positionDiscriminator  = anchor.AccountDiscriminator("Position")
	tickArrayDiscriminator = anchor.AccountDiscriminator("TickArray")
)

// Whirlpool is the decoded state of an Orca Whirlpool CLMM pool
type Whirlpool struct {
	// Whirlpool config
	WhirlpoolsConfig solana.PublicKey // 32
	WhirlpoolBump    [1]uint8         // 1
	TickSpacing      uint16           // 2
	TickSpacingSeed  [2]uint8         // 2

	// Price and liquidity
	FeeRate          uint16          // 2
	ProtocolFeeRate  uint16          // 2
	Liquidity        uint128.Uint128 // 16
	SqrtPrice        uint128.Uint128 // 16
	TickCurrentIndex int32           // 4
	ProtocolFeeOwedA uint64          // 8
	ProtocolFeeOwedB uint64          // 8

	// Token info
	TokenMintA       solana.PublicKey // 32
	TokenVaultA      solana.PublicKey // 32
	FeeGrowthGlobalA uint128.Uint128  // 16
	TokenMintB       solana.PublicKey // 32
	TokenVaultB      solana.PublicKey // 32
	FeeGrowthGlobalB uint128.Uint128  // 16

	// Reward info (3 rewards)
	RewardLastUpdatedTimestamp uint64                 // 8
	RewardInfos                [NumRewards]RewardInfo // 3 * 128 = 384

	PoolId solana.PublicKey
}

type RewardInfo struct {
	Mint                  solana.PublicKey // 32
	Vault                 solana.PublicKey // 32
	Authority             solana.PublicKey // 32
	EmissionsPerSecondX64 uint128.Uint128  // 16
	GrowthGlobalX64       uint128.Uint128  // 16
}

// Initialized reports whether the reward slot has been set up by the pool authority.
func (r RewardInfo) Initialized() bool {
	return !r.Mint.IsZero()
}

func (pool *Whirlpool) GetProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (pool *Whirlpool) GetID() string {
	return pool.PoolId.String()
}

func (pool *Whirlpool) GetTokens() (string, string) {
	return pool.TokenMintA.String(), pool.TokenMintB.String()
}

// InitializedRewards returns the indexes of reward slots in use.
func (pool *Whirlpool) InitializedRewards() []uint8 {
	var out []uint8
	for i, r := range pool.RewardInfos {
		if r.Initialized() {
			out = append(out, uint8(i))
		}
	}
	return out
}

func (pool *Whirlpool) Decode(data []byte) error {
	if len(data) < WhirlpoolSize {
		return fmt.Errorf("%w: whirlpool expected %d bytes, got %d", ErrInvalidAccountData, WhirlpoolSize, len(data))
	}
	if !bytes.Equal(data[0:8], whirlpoolDiscriminator) {
		return fmt.Errorf("%w: not a whirlpool account", ErrInvalidAccountData)
	}

	// https://github.com/orca-so/whirlpools/blob/main/programs/whirlpool/src/state/whirlpool.rs
	pool.WhirlpoolsConfig = solana.PublicKeyFromBytes(data[8:40])
	pool.WhirlpoolBump[0] = data[40]

	r := newFieldReader(data)
	pool.TickSpacing = r.uint16(41)
	copy(pool.TickSpacingSeed[:], data[43:45])
	pool.FeeRate = r.uint16(45)
	pool.ProtocolFeeRate = r.uint16(47)
	pool.Liquidity = r.uint128(49)
	pool.SqrtPrice = r.uint128(65)
	pool.TickCurrentIndex = r.int32(81)
	pool.ProtocolFeeOwedA = r.uint64(85)
	pool.ProtocolFeeOwedB = r.uint64(93)

	pool.TokenMintA = solana.PublicKeyFromBytes(data[101:133])
	pool.TokenVaultA = solana.PublicKeyFromBytes(data[133:165])
	pool.FeeGrowthGlobalA = r.uint128(165)
	pool.TokenMintB = solana.PublicKeyFromBytes(data[181:213])
	pool.TokenVaultB = solana.PublicKeyFromBytes(data[213:245])
	pool.FeeGrowthGlobalB = r.uint128(245)

	pool.RewardLastUpdatedTimestamp = r.uint64(261)
	for i := 0; i < NumRewards; i++ {
		off := 269 + i*128
		pool.RewardInfos[i] = RewardInfo{
			Mint:                  solana.PublicKeyFromBytes(data[off : off+32]),
			Vault:                 solana.PublicKeyFromBytes(data[off+32 : off+64]),
			Authority:             solana.PublicKeyFromBytes(data[off+64 : off+96]),
			EmissionsPerSecondX64: r.uint128(off + 96),
			GrowthGlobalX64:       r.uint128(off + 112),
		}
	}

	if r.err != nil {
		return r.err
	}
	if pool.TickSpacing == 0 {
		return fmt.Errorf("%w: zero tick spacing", ErrInvalidAccountData)
	}
	return nil
}

// ParseWhirlpool decodes a whirlpool account fetched from address.
func ParseWhirlpool(address solana.PublicKey, data []byte) (*Whirlpool, error) {
	pool := &Whirlpool{PoolId: address}
	if err := pool.Decode(data); err != nil {
		return nil, err
	}
	return pool, nil
}

// fieldReader decodes little endian fields at fixed offsets, keeping the
// first error.
type fieldReader struct {
	data []byte
	err  error
}

func newFieldReader(data []byte) *fieldReader {
	return &fieldReader{data: data}
}

func (r *fieldReader) decode(off, size int, v interface{}) {
	if r.err != nil {
		return
	}
	if off+size > len(r.data) {
		r.err = fmt.Errorf("%w: field at offset %d overruns %d bytes", ErrInvalidAccountData, off, len(r.data))
		return
	}
	if err := bin.NewBinDecoder(r.data[off : off+size]).Decode(v); err != nil {
		r.err = fmt.Errorf("decode field at offset %d: %w", off, err)
	}
}

func (r *fieldReader) uint16(off int) (v uint16) {
	r.decode(off, 2, &v)
	return
}

func (r *fieldReader) int32(off int) (v int32) {
	r.decode(off, 4, &v)
	return
}

func (r *fieldReader) uint64(off int) (v uint64) {
	r.decode(off, 8, &v)
	return
}

func (r *fieldReader) uint128(off int) uint128.Uint128 {
	if r.err != nil {
		return uint128.Zero
	}
	if off+16 > len(r.data) {
		r.err = fmt.Errorf("%w: field at offset %d overruns %d bytes", ErrInvalidAccountData, off, len(r.data))
		return uint128.Zero
	}
	return uint128.FromBytes(r.data[off : off+16])
}
