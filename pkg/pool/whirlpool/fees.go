package whirlpool

import (
	"fmt"
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// FeesQuote is the fee a position would collect right now.
type FeesQuote struct {
	FeeOwedA cosmath.Int
	FeeOwedB cosmath.Int
}

// RewardQuote is the amount claimable from one reward slot.
type RewardQuote struct {
	Index  uint8
	Mint   solana.PublicKey
	Amount cosmath.Int
}

// RewardsQuote holds one entry per initialized reward slot.
type RewardsQuote struct {
	Rewards []RewardQuote
}

// CollectFeesQuote projects the position's owed fees from current pool and
// tick state, as update_fees_and_rewards would.
func CollectFeesQuote(pool *Whirlpool, position *Position, tickLower, tickUpper *Tick) (FeesQuote, error) {
	if err := checkQuoteAccounts(pool, position, tickLower, tickUpper); err != nil {
		return FeesQuote{}, err
	}

	insideA := growthInside(pool.TickCurrentIndex, position,
		tickLower.Initialized, tickLower.FeeGrowthOutsideA,
		tickUpper.Initialized, tickUpper.FeeGrowthOutsideA,
		pool.FeeGrowthGlobalA)
	insideB := growthInside(pool.TickCurrentIndex, position,
		tickLower.Initialized, tickLower.FeeGrowthOutsideB,
		tickUpper.Initialized, tickUpper.FeeGrowthOutsideB,
		pool.FeeGrowthGlobalB)

	return FeesQuote{
		FeeOwedA: accrue(position.FeeOwedA, insideA, position.FeeGrowthCheckpointA, position.Liquidity),
		FeeOwedB: accrue(position.FeeOwedB, insideB, position.FeeGrowthCheckpointB, position.Liquidity),
	}, nil
}

// CollectRewardsQuote projects claimable rewards at unixTimestamp. Emissions
// since the pool's last reward update are folded into the global growth first.
func CollectRewardsQuote(pool *Whirlpool, position *Position, tickLower, tickUpper *Tick, unixTimestamp uint64) (RewardsQuote, error) {
	if err := checkQuoteAccounts(pool, position, tickLower, tickUpper); err != nil {
		return RewardsQuote{}, err
	}

	var elapsed uint64
	if unixTimestamp > pool.RewardLastUpdatedTimestamp {
		elapsed = unixTimestamp - pool.RewardLastUpdatedTimestamp
	}

	var out RewardsQuote
	for i, info := range pool.RewardInfos {
		if !info.Initialized() {
			continue
		}

		global := info.GrowthGlobalX64
		if !pool.Liquidity.IsZero() && elapsed > 0 {
			delta := new(big.Int).Mul(info.EmissionsPerSecondX64.Big(), new(big.Int).SetUint64(elapsed))
			delta.Quo(delta, pool.Liquidity.Big())
			global = global.AddWrap(truncate128(delta))
		}

		inside := growthInside(pool.TickCurrentIndex, position,
			tickLower.Initialized, tickLower.RewardGrowthsOutside[i],
			tickUpper.Initialized, tickUpper.RewardGrowthsOutside[i],
			global)

		pr := position.RewardInfos[i]
		out.Rewards = append(out.Rewards, RewardQuote{
			Index:  uint8(i),
			Mint:   info.Mint,
			Amount: accrue(pr.AmountOwed, inside, pr.GrowthInsideCheckpoint, position.Liquidity),
		})
	}
	return out, nil
}

func checkQuoteAccounts(pool *Whirlpool, position *Position, tickLower, tickUpper *Tick) error {
	if position.Whirlpool != pool.PoolId {
		return fmt.Errorf("%w: position %s pool %s", ErrPositionPoolMismatch, position.Whirlpool, pool.PoolId)
	}
	if tickLower == nil || tickUpper == nil {
		return ErrTickArrayMismatch
	}
	return nil
}

// growthInside splits a global growth counter into the part accrued inside
// the position range. All arithmetic wraps at 2^128.
func growthInside(current int32, position *Position,
	lowerInit bool, outsideLower uint128.Uint128,
	upperInit bool, outsideUpper uint128.Uint128,
	global uint128.Uint128) uint128.Uint128 {

	var below uint128.Uint128
	switch {
	case !lowerInit:
		below = global
	case current < position.TickLowerIndex:
		below = global.SubWrap(outsideLower)
	default:
		below = outsideLower
	}

	var above uint128.Uint128
	switch {
	case !upperInit:
		above = uint128.Zero
	case current < position.TickUpperIndex:
		above = outsideUpper
	default:
		above = global.SubWrap(outsideUpper)
	}

	return global.SubWrap(below).SubWrap(above)
}

// accrue returns owed + ((inside - checkpoint) * liquidity) >> 64, saturating at u64.
func accrue(owed uint64, inside, checkpoint, liquidity uint128.Uint128) cosmath.Int {
	delta := new(big.Int).Mul(inside.SubWrap(checkpoint).Big(), liquidity.Big())
	delta.Rsh(delta, 64)
	total := cosmath.NewIntFromBigInt(delta).Add(cosmath.NewIntFromUint64(owed))
	if total.GT(maxU64) {
		return maxU64
	}
	return total
}

func truncate128(v *big.Int) uint128.Uint128 {
	return uint128.FromBig(new(big.Int).And(v, uint128.Max.Big()))
}
