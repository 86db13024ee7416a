package whirlpool

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

func newTestPool() *Whirlpool {
	return &Whirlpool{
		PoolId:           solana.NewWallet().PublicKey(),
		WhirlpoolsConfig: WhirlpoolsConfigID,
		TickSpacing:      64,
		FeeRate:          3000,
		Liquidity:        uint128.From64(1_000_000_000),
		SqrtPrice:        uint128.New(0, 1), // price 1
		TickCurrentIndex: 0,
		TokenMintA:       solana.NewWallet().PublicKey(),
		TokenVaultA:      solana.NewWallet().PublicKey(),
		TokenMintB:       solana.NewWallet().PublicKey(),
		TokenVaultB:      solana.NewWallet().PublicKey(),
		RewardInfos: [NumRewards]RewardInfo{
			{
				Mint:      solana.NewWallet().PublicKey(),
				Vault:     solana.NewWallet().PublicKey(),
				Authority: solana.NewWallet().PublicKey(),
			},
		},
	}
}

func newTestPosition(pool *Whirlpool, liquidity uint64) *Position {
	mint := solana.NewWallet().PublicKey()
	addr, _, err := PositionAddress(mint)
	if err != nil {
		panic(err)
	}
	return &Position{
		Whirlpool:      pool.PoolId,
		PositionMint:   mint,
		Liquidity:      uint128.From64(liquidity),
		TickLowerIndex: -640,
		TickUpperIndex: 640,
		Address:        addr,
	}
}

func putU128(b []byte, v uint128.Uint128) {
	v.PutBytes(b)
}

func encodeWhirlpool(p *Whirlpool) []byte {
	data, err := p.Encode()
	if err != nil {
		panic(err)
	}
	return data
}

func encodePosition(p *Position) []byte {
	data, err := p.Encode()
	if err != nil {
		panic(err)
	}
	return data
}

func encodeTickArray(start int32, whirlpool solana.PublicKey, set func(i int, tick []byte)) []byte {
	data := make([]byte, TickArraySize)
	copy(data[0:8], tickArrayDiscriminator)
	binary.LittleEndian.PutUint32(data[8:12], uint32(start))
	for i := 0; i < 88; i++ {
		off := 12 + i*TickSize
		if set != nil {
			set(i, data[off:off+TickSize])
		}
	}
	copy(data[TickArraySize-32:], whirlpool[:])
	return data
}
