package whirlpool

import "github.com/gagliardetto/solana-go"

// Whirlpool (Orca) program IDs
const (
	// WHIRLPOOL_PROGRAM_ID is the Orca Whirlpool CLMM program
	WHIRLPOOL_PROGRAM_ID = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	// WHIRLPOOLS_CONFIG is the mainnet config account owning the public pools
	WHIRLPOOLS_CONFIG = "2LecshUwdy9xi7meFgHtFJQNSKk4KdTrcpvaB56dP2NQ"
)

var (
	WhirlpoolProgramID = solana.MustPublicKeyFromBase58(WHIRLPOOL_PROGRAM_ID)
	WhirlpoolsConfigID = solana.MustPublicKeyFromBase58(WHIRLPOOLS_CONFIG)
)

// Account sizes in bytes, discriminator included
const (
	WhirlpoolSize = 653
	PositionSize  = 216
	TickArraySize = 9988
	TickSize      = 113
	NumRewards    = 3
)

// Offsets used by getProgramAccounts filters
const (
	WhirlpoolMintAOffset = 101
	WhirlpoolMintBOffset = 181
	PositionPoolOffset   = 8
)

// PDA seeds
const (
	PositionSeed  = "position"
	TickArraySeed = "tick_array"
)

// Instruction names, hashed into Anchor discriminators
const (
	ixUpdateFeesAndRewards = "update_fees_and_rewards"
	ixCollectFees          = "collect_fees"
	ixCollectReward        = "collect_reward"
	ixIncreaseLiquidity    = "increase_liquidity"
	ixDecreaseLiquidity    = "decrease_liquidity"
	ixClosePosition        = "close_position"
	ixOpenPosition         = "open_position"
	ixInitializeTickArray  = "initialize_tick_array"
)

// Fee tiers (basis points)
const (
	FEE_RATE_BPS_0_01 = 1   // 0.01%
	FEE_RATE_BPS_0_05 = 5   // 0.05%
	FEE_RATE_BPS_0_25 = 25  // 0.25%
	FEE_RATE_BPS_1_00 = 100 // 1.00%
)

// Tick spacings of the public fee tiers
const (
	TICK_SPACING_STABLE = 1
	TICK_SPACING_LOW    = 64
	TICK_SPACING_MED    = 128
)

// DefaultSlippageBps is 1%
const DefaultSlippageBps uint16 = 100
