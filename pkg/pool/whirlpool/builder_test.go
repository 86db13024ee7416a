package whirlpool

import (
	"bytes"
	"encoding/binary"
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lpmanager/pkg/anchor"
	"lpmanager/pkg/clmm"
	"lukechampine.com/uint128"
)

func fullDecrease(t *testing.T, pool *Whirlpool, position *Position) *LiquidityQuote {
	t.Helper()
	q, err := DecreaseLiquidityQuote(
		ByLiquidity(cosmath.NewIntFromBigInt(position.Liquidity.Big())),
		pool, position.TickLowerIndex, position.TickUpperIndex, 100)
	require.NoError(t, err)
	return &q
}

func TestBuildClosePositionOrdering(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 1_000_000)
	authority := solana.NewWallet().PublicKey()

	plan, err := BuildClosePosition(pool, position, fullDecrease(t, pool, position), BuildOptions{Authority: authority})
	require.NoError(t, err)

	assert.Equal(t, []StepKind{
		StepUpdateFeesAndRewards,
		StepCollectFees,
		StepCollectReward,
		StepDecreaseLiquidity,
		StepClosePosition,
	}, plan.Kinds())

	steps := plan.Steps()
	assert.Equal(t, position.Liquidity, steps[3].Liquidity)

	// receiver defaults to the authority
	closeAccounts := steps[4].Instruction.Accounts()
	assert.Equal(t, authority, closeAccounts[0].PublicKey)
	assert.True(t, closeAccounts[0].IsSigner)
	assert.Equal(t, authority, closeAccounts[1].PublicKey)
	assert.Equal(t, position.Address, closeAccounts[2].PublicKey)
	assert.Empty(t, plan.ExtraSigners())
}

func TestBuildClosePositionEmptyLiquidity(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 0)
	receiver := solana.NewWallet().PublicKey()

	plan, err := BuildClosePosition(pool, position, nil, BuildOptions{
		Authority: solana.NewWallet().PublicKey(),
		Receiver:  receiver,
	})
	require.NoError(t, err)

	assert.Equal(t, []StepKind{StepCollectFees, StepCollectReward, StepClosePosition}, plan.Kinds())
	assert.Equal(t, receiver, plan.Steps()[2].Instruction.Accounts()[1].PublicKey)
}

func TestBuildClosePositionOneCollectPerReward(t *testing.T) {
	pool := newTestPool()
	pool.RewardInfos[2] = RewardInfo{Mint: solana.NewWallet().PublicKey(), Vault: solana.NewWallet().PublicKey()}
	position := newTestPosition(pool, 0)

	plan, err := BuildClosePosition(pool, position, nil, BuildOptions{Authority: solana.NewWallet().PublicKey()})
	require.NoError(t, err)

	var indexes []uint8
	for _, s := range plan.Steps() {
		if s.Kind == StepCollectReward {
			indexes = append(indexes, s.RewardIndex)
			data, err := s.Instruction.Data()
			require.NoError(t, err)
			assert.Equal(t, s.RewardIndex, data[8])
		}
	}
	assert.Equal(t, []uint8{0, 2}, indexes)
}

func TestBuildClosePositionRequiresFullDecrease(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 1_000_000)
	opts := BuildOptions{Authority: solana.NewWallet().PublicKey()}

	_, err := BuildClosePosition(pool, position, nil, opts)
	assert.ErrorIs(t, err, ErrMissingQuote)

	partial, err := DecreaseLiquidityQuote(ByLiquidity(cosmath.NewInt(300_000)), pool, -640, 640, 100)
	require.NoError(t, err)
	_, err = BuildClosePosition(pool, position, &partial, opts)
	assert.ErrorIs(t, err, ErrPartialCloseDecrease)
}

func TestBuildClosePositionEnsureTokenAccounts(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 1_000_000)

	plan, err := BuildClosePosition(pool, position, fullDecrease(t, pool, position), BuildOptions{
		Authority:           solana.NewWallet().PublicKey(),
		EnsureTokenAccounts: true,
	})
	require.NoError(t, err)

	// token A, token B and the reward mint, each created once
	kinds := plan.Kinds()
	assert.Equal(t, []StepKind{
		StepCreateTokenAccount,
		StepCreateTokenAccount,
		StepCreateTokenAccount,
		StepUpdateFeesAndRewards,
		StepCollectFees,
		StepCollectReward,
		StepDecreaseLiquidity,
		StepClosePosition,
	}, kinds)

	data, err := plan.Steps()[0].Instruction.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, plan.Steps()[0].Instruction.ProgramID())
}

func TestBuildRejectsMissingAuthorityAndForeignPosition(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 0)

	_, err := BuildHarvestPosition(pool, position, BuildOptions{})
	assert.ErrorIs(t, err, ErrMissingAuthority)

	foreign := newTestPosition(newTestPool(), 0)
	_, err = BuildHarvestPosition(pool, foreign, BuildOptions{Authority: solana.NewWallet().PublicKey()})
	assert.ErrorIs(t, err, ErrPositionPoolMismatch)
}

func TestBuildHarvestPosition(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 1_000)

	plan, err := BuildHarvestPosition(pool, position, BuildOptions{Authority: solana.NewWallet().PublicKey()})
	require.NoError(t, err)
	assert.Equal(t, []StepKind{StepUpdateFeesAndRewards, StepCollectFees, StepCollectReward}, plan.Kinds())
}

func TestBuildRejectsZeroTickSpacing(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 1_000)
	pool.TickSpacing = 0

	_, err := BuildHarvestPosition(pool, position, BuildOptions{Authority: solana.NewWallet().PublicKey()})
	assert.ErrorIs(t, err, clmm.ErrInvalidTickSpacing)

	_, err = TickArraysForRange(pool.PoolId, 0, -640, 640)
	assert.ErrorIs(t, err, clmm.ErrInvalidTickSpacing)
}

func TestBuildDecreaseThirtyPercent(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 1_000_000)
	opts := BuildOptions{Authority: solana.NewWallet().PublicKey()}

	part, err := LiquidityForPercent(position.Liquidity, 3000)
	require.NoError(t, err)
	q, err := DecreaseLiquidityQuote(ByLiquidity(part), pool, position.TickLowerIndex, position.TickUpperIndex, 100)
	require.NoError(t, err)

	plan, err := BuildDecreaseLiquidity(pool, position, q, opts)
	require.NoError(t, err)
	require.Equal(t, []StepKind{StepDecreaseLiquidity}, plan.Kinds())
	assert.Equal(t, uint128.From64(300_000), plan.Steps()[0].Liquidity)

	inst := plan.Steps()[0].Instruction.(*DecreaseLiquidityInstruction)
	assert.Equal(t, q.TokenMinA.Uint64(), inst.TokenMinA)
	assert.Equal(t, q.TokenMinB.Uint64(), inst.TokenMinB)

	// liquidity remains, so closing still needs a full decrease
	remaining := position.Liquidity.Sub(plan.Steps()[0].Liquidity)
	after := *position
	after.Liquidity = remaining
	_, err = BuildClosePosition(pool, &after, nil, opts)
	assert.ErrorIs(t, err, ErrMissingQuote)

	closePlan, err := BuildClosePosition(pool, &after, fullDecrease(t, pool, &after), opts)
	require.NoError(t, err)
	assert.Equal(t, StepClosePosition, closePlan.Kinds()[closePlan.Len()-1])
}

func TestBuildDecreaseValidation(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 1_000)
	opts := BuildOptions{Authority: solana.NewWallet().PublicKey()}

	_, err := BuildDecreaseLiquidity(pool, position, LiquidityQuote{LiquidityDelta: cosmath.ZeroInt()}, opts)
	assert.ErrorIs(t, err, ErrZeroLiquidity)

	q, err := DecreaseLiquidityQuote(ByLiquidity(cosmath.NewInt(5_000)), pool, -640, 640, 100)
	require.NoError(t, err)
	_, err = BuildDecreaseLiquidity(pool, position, q, opts)
	assert.ErrorIs(t, err, ErrLiquidityExceedsPosition)
}

func TestBuildIncreaseLiquidityData(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 0)
	authority := solana.NewWallet().PublicKey()

	q, err := IncreaseLiquidityQuote(ByLiquidity(cosmath.NewInt(777_777)), pool, -640, 640, 100)
	require.NoError(t, err)

	plan, err := BuildIncreaseLiquidity(pool, position, q, BuildOptions{Authority: authority})
	require.NoError(t, err)
	require.Equal(t, []StepKind{StepIncreaseLiquidity}, plan.Kinds())

	inst := plan.Instructions()[0]
	assert.Equal(t, WhirlpoolProgramID, inst.ProgramID())

	data, err := inst.Data()
	require.NoError(t, err)
	require.Len(t, data, 40)
	assert.True(t, bytes.Equal(anchor.GetDiscriminator("global", "increase_liquidity"), data[:8]))
	assert.Equal(t, uint128.From64(777_777), uint128.FromBytes(data[8:24]))
	assert.Equal(t, q.TokenMaxA.Uint64(), binary.LittleEndian.Uint64(data[24:32]))
	assert.Equal(t, q.TokenMaxB.Uint64(), binary.LittleEndian.Uint64(data[32:40]))

	accounts := inst.Accounts()
	require.Len(t, accounts, 11)
	assert.Equal(t, pool.PoolId, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, authority, accounts[2].PublicKey)
	assert.True(t, accounts[2].IsSigner)
	assert.Equal(t, pool.TokenVaultA, accounts[7].PublicKey)
}

func TestBuildOpenPosition(t *testing.T) {
	pool := newTestPool()
	mint := solana.NewWallet().PrivateKey
	q, err := IncreaseLiquidityQuote(ByTokenA(cosmath.NewInt(1_000_000)), pool, -640, 640, 100)
	require.NoError(t, err)

	plan, err := BuildOpenPosition(pool, OpenPositionRequest{
		TickLower:         -640,
		TickUpper:         640,
		PositionMint:      mint,
		MissingTickArrays: []int32{-5632},
		Quote:             &q,
	}, BuildOptions{Authority: solana.NewWallet().PublicKey()})
	require.NoError(t, err)

	assert.Equal(t, []StepKind{StepInitializeTickArray, StepOpenPosition, StepIncreaseLiquidity}, plan.Kinds())
	require.Len(t, plan.ExtraSigners(), 1)
	assert.Equal(t, mint.PublicKey(), plan.ExtraSigners()[0].PublicKey())

	open := plan.Steps()[1].Instruction.(*OpenPositionInstruction)
	wantAddr, bump, err := PositionAddress(mint.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, bump, open.PositionBump)
	assert.Equal(t, wantAddr, open.Accounts()[2].PublicKey)

	data, err := open.Data()
	require.NoError(t, err)
	require.Len(t, data, 17)
	assert.Equal(t, int32(-640), int32(binary.LittleEndian.Uint32(data[9:13])))
	assert.Equal(t, int32(640), int32(binary.LittleEndian.Uint32(data[13:17])))

	// the deposit goes to the new position
	inc := plan.Steps()[2].Instruction.(*IncreaseLiquidityInstruction)
	assert.Equal(t, wantAddr, inc.Accounts()[3].PublicKey)

	_, err = BuildOpenPosition(pool, OpenPositionRequest{TickLower: -640, TickUpper: 640, PositionMint: mint, MissingTickArrays: []int32{100}},
		BuildOptions{Authority: solana.NewWallet().PublicKey()})
	assert.ErrorIs(t, err, ErrTickArrayOutOfRange)
}

func TestPlanIsImmutable(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 0)

	plan, err := BuildClosePosition(pool, position, nil, BuildOptions{Authority: solana.NewWallet().PublicKey()})
	require.NoError(t, err)

	steps := plan.Steps()
	steps[0].Kind = StepClosePosition
	kinds := plan.Kinds()
	kinds[0] = StepOpenPosition

	assert.Equal(t, StepCollectFees, plan.Steps()[0].Kind)
}

func TestValidateClosePlan(t *testing.T) {
	pool := newTestPool()
	position := newTestPosition(pool, 1_000)
	step := func(kind StepKind) Step { return Step{Kind: kind} }
	reward0 := Step{Kind: StepCollectReward, RewardIndex: 0}
	decrease := Step{Kind: StepDecreaseLiquidity, Liquidity: position.Liquidity}

	good := newPlan([]Step{step(StepUpdateFeesAndRewards), step(StepCollectFees), reward0, decrease, step(StepClosePosition)})
	assert.NoError(t, ValidateClosePlan(good, pool, position))

	bad := map[string]*Plan{
		"no close":         newPlan([]Step{step(StepCollectFees), reward0, decrease}),
		"close first":      newPlan([]Step{step(StepClosePosition), step(StepCollectFees), reward0, decrease}),
		"decrease first":   newPlan([]Step{decrease, step(StepCollectFees), reward0, step(StepClosePosition)}),
		"missing reward":   newPlan([]Step{step(StepCollectFees), decrease, step(StepClosePosition)}),
		"missing decrease": newPlan([]Step{step(StepCollectFees), reward0, step(StepClosePosition)}),
		"partial decrease": newPlan([]Step{step(StepCollectFees), reward0,
			Step{Kind: StepDecreaseLiquidity, Liquidity: uint128.From64(10)}, step(StepClosePosition)}),
		"rewards after decrease": newPlan([]Step{step(StepCollectFees), decrease, reward0, step(StepClosePosition)}),
	}
	for name, plan := range bad {
		assert.ErrorIs(t, ValidateClosePlan(plan, pool, position), ErrCloseOrdering, name)
	}
}
