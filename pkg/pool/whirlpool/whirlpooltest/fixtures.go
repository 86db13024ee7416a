// Package whirlpooltest builds whirlpool accounts and seeds them into an
// in-memory RPC.
package whirlpooltest

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"lpmanager/pkg/clmm"
	"lpmanager/pkg/pool/whirlpool"
	"lpmanager/pkg/sol/soltest"
	"lukechampine.com/uint128"
)

// NewPool returns a pool at price 1.0 (tick 0) with tick spacing 64 and one
// initialized reward.
func NewPool() *whirlpool.Whirlpool {
	return &whirlpool.Whirlpool{
		PoolId:           solana.NewWallet().PublicKey(),
		WhirlpoolsConfig: whirlpool.WhirlpoolsConfigID,
		TickSpacing:      64,
		FeeRate:          3000,
		Liquidity:        uint128.From64(1_000_000_000),
		SqrtPrice:        uint128.New(0, 1),
		TickCurrentIndex: 0,
		TokenMintA:       solana.NewWallet().PublicKey(),
		TokenVaultA:      solana.NewWallet().PublicKey(),
		TokenMintB:       solana.NewWallet().PublicKey(),
		TokenVaultB:      solana.NewWallet().PublicKey(),
		RewardInfos: [whirlpool.NumRewards]whirlpool.RewardInfo{
			{
				Mint:      solana.NewWallet().PublicKey(),
				Vault:     solana.NewWallet().PublicKey(),
				Authority: solana.NewWallet().PublicKey(),
			},
		},
	}
}

// NewPosition returns a position over [-640, 640] holding liquidity.
func NewPosition(pool *whirlpool.Whirlpool, liquidity uint64) *whirlpool.Position {
	mint := solana.NewWallet().PublicKey()
	addr, _, err := whirlpool.PositionAddress(mint)
	if err != nil {
		panic(err)
	}
	return &whirlpool.Position{
		Whirlpool:      pool.PoolId,
		PositionMint:   mint,
		Liquidity:      uint128.From64(liquidity),
		TickLowerIndex: -640,
		TickUpperIndex: 640,
		Address:        addr,
	}
}

// NewTickArray returns an empty tick array of pool starting at start.
func NewTickArray(pool *whirlpool.Whirlpool, start int32) *whirlpool.TickArray {
	addr, err := whirlpool.TickArrayAddress(pool.PoolId, start)
	if err != nil {
		panic(err)
	}
	ta := &whirlpool.TickArray{StartTickIndex: start, WhirlpoolAddress: pool.PoolId, Address: addr}
	for i := range ta.Ticks {
		ta.Ticks[i].LiquidityNet = new(big.Int)
	}
	return ta
}

// SeedPool stores pool in r.
func SeedPool(r *soltest.RPC, pool *whirlpool.Whirlpool) {
	data, err := pool.Encode()
	if err != nil {
		panic(err)
	}
	r.AddProgramAccount(pool.PoolId, whirlpool.WhirlpoolProgramID, data)
}

// SeedTickArray stores ta in r.
func SeedTickArray(r *soltest.RPC, ta *whirlpool.TickArray) {
	data, err := ta.Encode()
	if err != nil {
		panic(err)
	}
	r.SetAccount(ta.Address, whirlpool.WhirlpoolProgramID, data)
}

// SeedPosition stores position, its pool and the tick arrays holding its
// bounds, with both bound ticks initialized.
func SeedPosition(r *soltest.RPC, pool *whirlpool.Whirlpool, position *whirlpool.Position) {
	SeedPool(r, pool)

	data, err := position.Encode()
	if err != nil {
		panic(err)
	}
	r.AddProgramAccount(position.Address, whirlpool.WhirlpoolProgramID, data)

	arrays := map[int32]*whirlpool.TickArray{}
	for _, tick := range []int32{position.TickLowerIndex, position.TickUpperIndex} {
		start := clmm.TickArrayStartIndex(tick, pool.TickSpacing)
		ta, ok := arrays[start]
		if !ok {
			ta = NewTickArray(pool, start)
			arrays[start] = ta
		}
		t, err := ta.TickAt(tick, pool.TickSpacing)
		if err != nil {
			panic(err)
		}
		t.Initialized = true
		t.LiquidityGross = position.Liquidity
	}
	for _, ta := range arrays {
		SeedTickArray(r, ta)
	}
}
