package whirlpool

import (
	"errors"
	"fmt"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lpmanager/pkg/clmm"
	"lukechampine.com/uint128"
)

var (
	ErrMissingQuote             = errors.New("liquidity quote required")
	ErrPartialCloseDecrease     = errors.New("close must decrease the full position liquidity")
	ErrLiquidityExceedsPosition = errors.New("decrease exceeds position liquidity")
	ErrMissingAuthority         = errors.New("authority required")
)

// StepKind tags each instruction of a Plan.
type StepKind uint8

const (
	StepCreateTokenAccount StepKind = iota + 1
	StepInitializeTickArray
	StepOpenPosition
	StepUpdateFeesAndRewards
	StepCollectFees
	StepCollectReward
	StepIncreaseLiquidity
	StepDecreaseLiquidity
	StepClosePosition
)

var stepNames = map[StepKind]string{
	StepCreateTokenAccount:   "create_token_account",
	StepInitializeTickArray:  ixInitializeTickArray,
	StepOpenPosition:         ixOpenPosition,
	StepUpdateFeesAndRewards: ixUpdateFeesAndRewards,
	StepCollectFees:          ixCollectFees,
	StepCollectReward:        ixCollectReward,
	StepIncreaseLiquidity:    ixIncreaseLiquidity,
	StepDecreaseLiquidity:    ixDecreaseLiquidity,
	StepClosePosition:        ixClosePosition,
}

func (k StepKind) String() string {
	if name, ok := stepNames[k]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", uint8(k))
}

// Step is one instruction of a Plan. Liquidity is set for increase and
// decrease steps, RewardIndex for collect reward steps.
type Step struct {
	Kind        StepKind
	Instruction solana.Instruction
	Liquidity   uint128.Uint128
	RewardIndex uint8
}

// Plan is an ordered instruction sequence. It is built once and never
// modified; accessors return copies.
type Plan struct {
	steps   []Step
	signers []solana.PrivateKey
}

func newPlan(steps []Step, signers ...solana.PrivateKey) *Plan {
	return &Plan{steps: steps, signers: signers}
}

func (p *Plan) Len() int {
	return len(p.steps)
}

func (p *Plan) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

func (p *Plan) Kinds() []StepKind {
	out := make([]StepKind, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.Kind
	}
	return out
}

func (p *Plan) Instructions() []solana.Instruction {
	out := make([]solana.Instruction, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.Instruction
	}
	return out
}

// ExtraSigners are keys besides the authority the plan needs, such as a new
// position mint.
func (p *Plan) ExtraSigners() []solana.PrivateKey {
	return append([]solana.PrivateKey(nil), p.signers...)
}

// BuildOptions identify who signs, pays and receives.
type BuildOptions struct {
	Authority solana.PublicKey
	// Receiver gets collected tokens and the closed position's rent. Defaults to Authority.
	Receiver solana.PublicKey
	// Funder pays for created accounts. Defaults to Authority.
	Funder solana.PublicKey
	// PositionTokenAccount defaults to the authority's associated account for the position mint.
	PositionTokenAccount solana.PublicKey
	// EnsureTokenAccounts prefixes idempotent creations of every token account the plan writes to.
	EnsureTokenAccounts bool
}

func (o BuildOptions) withDefaults() (BuildOptions, error) {
	if o.Authority.IsZero() {
		return o, ErrMissingAuthority
	}
	if o.Receiver.IsZero() {
		o.Receiver = o.Authority
	}
	if o.Funder.IsZero() {
		o.Funder = o.Authority
	}
	return o, nil
}

// positionAccounts are the addresses shared by every instruction on a position.
type positionAccounts struct {
	pool          *Whirlpool
	position      *Position
	positionAddr  solana.PublicKey
	positionToken solana.PublicKey
	tickArrays    PositionTickArrays
	opts          BuildOptions
	prefix        []Step
	created       map[solana.PublicKey]bool
}

func resolvePosition(pool *Whirlpool, position *Position, opts BuildOptions) (*positionAccounts, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if position.Whirlpool != pool.PoolId {
		return nil, fmt.Errorf("%w: position %s pool %s", ErrPositionPoolMismatch, position.Whirlpool, pool.PoolId)
	}

	positionAddr := position.Address
	if positionAddr.IsZero() {
		positionAddr, _, err = PositionAddress(position.PositionMint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive position address: %w", err)
		}
	}

	positionToken := opts.PositionTokenAccount
	if positionToken.IsZero() {
		positionToken, _, err = solana.FindAssociatedTokenAddress(opts.Authority, position.PositionMint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive position token account: %w", err)
		}
	}

	arrays, err := TickArraysForRange(pool.PoolId, pool.TickSpacing, position.TickLowerIndex, position.TickUpperIndex)
	if err != nil {
		return nil, err
	}

	return &positionAccounts{
		pool:          pool,
		position:      position,
		positionAddr:  positionAddr,
		positionToken: positionToken,
		tickArrays:    arrays,
		opts:          opts,
		created:       make(map[solana.PublicKey]bool),
	}, nil
}

// tokenAccount returns owner's associated account for mint, queueing an
// idempotent creation when EnsureTokenAccounts is set.
func (pa *positionAccounts) tokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	if !pa.opts.EnsureTokenAccounts {
		ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("failed to derive token account: %w", err)
		}
		return ata, nil
	}

	inst, ata, err := NewCreateATAIdempotentInstruction(pa.opts.Funder, owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if !pa.created[ata] {
		pa.created[ata] = true
		pa.prefix = append(pa.prefix, Step{Kind: StepCreateTokenAccount, Instruction: inst})
	}
	return ata, nil
}

func (pa *positionAccounts) modifyAccounts(owner solana.PublicKey) (ModifyLiquidityAccounts, error) {
	ownerA, err := pa.tokenAccount(owner, pa.pool.TokenMintA)
	if err != nil {
		return ModifyLiquidityAccounts{}, err
	}
	ownerB, err := pa.tokenAccount(owner, pa.pool.TokenMintB)
	if err != nil {
		return ModifyLiquidityAccounts{}, err
	}
	return ModifyLiquidityAccounts{
		Whirlpool:            pa.pool.PoolId,
		Authority:            pa.opts.Authority,
		Position:             pa.positionAddr,
		PositionTokenAccount: pa.positionToken,
		OwnerAccountA:        ownerA,
		OwnerAccountB:        ownerB,
		VaultA:               pa.pool.TokenVaultA,
		VaultB:               pa.pool.TokenVaultB,
		TickArrayLower:       pa.tickArrays.Lower,
		TickArrayUpper:       pa.tickArrays.Upper,
	}, nil
}

// collectSteps returns update (when the position holds liquidity), collect
// fees and one collect reward per initialized reward.
func (pa *positionAccounts) collectSteps() ([]Step, error) {
	var steps []Step
	if !pa.position.Liquidity.IsZero() {
		steps = append(steps, Step{
			Kind:        StepUpdateFeesAndRewards,
			Instruction: NewUpdateFeesAndRewardsInstruction(pa.pool.PoolId, pa.positionAddr, pa.tickArrays.Lower, pa.tickArrays.Upper),
		})
	}

	ownerA, err := pa.tokenAccount(pa.opts.Receiver, pa.pool.TokenMintA)
	if err != nil {
		return nil, err
	}
	ownerB, err := pa.tokenAccount(pa.opts.Receiver, pa.pool.TokenMintB)
	if err != nil {
		return nil, err
	}
	steps = append(steps, Step{
		Kind: StepCollectFees,
		Instruction: NewCollectFeesInstruction(
			pa.pool.PoolId,
			pa.opts.Authority,
			pa.positionAddr,
			pa.positionToken,
			ownerA,
			pa.pool.TokenVaultA,
			ownerB,
			pa.pool.TokenVaultB,
		),
	})

	for _, idx := range pa.pool.InitializedRewards() {
		reward := pa.pool.RewardInfos[idx]
		rewardOwner, err := pa.tokenAccount(pa.opts.Receiver, reward.Mint)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{
			Kind:        StepCollectReward,
			RewardIndex: idx,
			Instruction: NewCollectRewardInstruction(
				idx,
				pa.pool.PoolId,
				pa.opts.Authority,
				pa.positionAddr,
				pa.positionToken,
				rewardOwner,
				reward.Vault,
			),
		})
	}
	return steps, nil
}

func (pa *positionAccounts) decreaseStep(quote LiquidityQuote) (Step, error) {
	liquidity, err := toUint128(quote.LiquidityDelta)
	if err != nil {
		return Step{}, err
	}
	minA, err := toUint64(quote.TokenMinA)
	if err != nil {
		return Step{}, err
	}
	minB, err := toUint64(quote.TokenMinB)
	if err != nil {
		return Step{}, err
	}
	accounts, err := pa.modifyAccounts(pa.opts.Receiver)
	if err != nil {
		return Step{}, err
	}
	return Step{
		Kind:        StepDecreaseLiquidity,
		Liquidity:   liquidity,
		Instruction: NewDecreaseLiquidityInstruction(liquidity, minA, minB, accounts),
	}, nil
}

func (pa *positionAccounts) plan(steps []Step, signers ...solana.PrivateKey) *Plan {
	all := make([]Step, 0, len(pa.prefix)+len(steps))
	all = append(all, pa.prefix...)
	all = append(all, steps...)
	return newPlan(all, signers...)
}

// BuildClosePosition assembles collect fees, collect rewards, a decrease of the
// whole remaining liquidity and close position, in that order. decrease may be
// nil only when the position holds no liquidity.
func BuildClosePosition(pool *Whirlpool, position *Position, decrease *LiquidityQuote, opts BuildOptions) (*Plan, error) {
	pa, err := resolvePosition(pool, position, opts)
	if err != nil {
		return nil, err
	}

	steps, err := pa.collectSteps()
	if err != nil {
		return nil, err
	}

	if !position.Liquidity.IsZero() {
		if decrease == nil {
			return nil, ErrMissingQuote
		}
		if !decrease.LiquidityDelta.Equal(cosmath.NewIntFromBigInt(position.Liquidity.Big())) {
			return nil, fmt.Errorf("%w: quote %s position %s", ErrPartialCloseDecrease, decrease.LiquidityDelta, position.Liquidity)
		}
		step, err := pa.decreaseStep(*decrease)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	steps = append(steps, Step{
		Kind: StepClosePosition,
		Instruction: NewClosePositionInstruction(
			pa.opts.Authority,
			pa.opts.Receiver,
			pa.positionAddr,
			position.PositionMint,
			pa.positionToken,
		),
	})

	plan := pa.plan(steps)
	if err := ValidateClosePlan(plan, pool, position); err != nil {
		return nil, err
	}
	return plan, nil
}

// BuildHarvestPosition collects fees and rewards without touching liquidity.
func BuildHarvestPosition(pool *Whirlpool, position *Position, opts BuildOptions) (*Plan, error) {
	pa, err := resolvePosition(pool, position, opts)
	if err != nil {
		return nil, err
	}
	steps, err := pa.collectSteps()
	if err != nil {
		return nil, err
	}
	return pa.plan(steps), nil
}

// BuildIncreaseLiquidity emits a single increase_liquidity bounded by the
// quote's maximum token amounts.
func BuildIncreaseLiquidity(pool *Whirlpool, position *Position, quote LiquidityQuote, opts BuildOptions) (*Plan, error) {
	if quote.LiquidityDelta.IsNil() || quote.LiquidityDelta.IsZero() {
		return nil, ErrZeroLiquidity
	}
	pa, err := resolvePosition(pool, position, opts)
	if err != nil {
		return nil, err
	}
	step, err := pa.increaseStep(quote, pa.positionAddr)
	if err != nil {
		return nil, err
	}
	return pa.plan([]Step{step}), nil
}

func (pa *positionAccounts) increaseStep(quote LiquidityQuote, positionAddr solana.PublicKey) (Step, error) {
	liquidity, err := toUint128(quote.LiquidityDelta)
	if err != nil {
		return Step{}, err
	}
	maxA, err := toUint64(quote.TokenMaxA)
	if err != nil {
		return Step{}, err
	}
	maxB, err := toUint64(quote.TokenMaxB)
	if err != nil {
		return Step{}, err
	}
	accounts, err := pa.modifyAccounts(pa.opts.Authority)
	if err != nil {
		return Step{}, err
	}
	accounts.Position = positionAddr
	return Step{
		Kind:        StepIncreaseLiquidity,
		Liquidity:   liquidity,
		Instruction: NewIncreaseLiquidityInstruction(liquidity, maxA, maxB, accounts),
	}, nil
}

// BuildDecreaseLiquidity emits a single decrease_liquidity bounded by the
// quote's minimum token amounts.
func BuildDecreaseLiquidity(pool *Whirlpool, position *Position, quote LiquidityQuote, opts BuildOptions) (*Plan, error) {
	if quote.LiquidityDelta.IsNil() || quote.LiquidityDelta.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if quote.LiquidityDelta.GT(cosmath.NewIntFromBigInt(position.Liquidity.Big())) {
		return nil, fmt.Errorf("%w: %s > %s", ErrLiquidityExceedsPosition, quote.LiquidityDelta, position.Liquidity)
	}
	pa, err := resolvePosition(pool, position, opts)
	if err != nil {
		return nil, err
	}
	step, err := pa.decreaseStep(quote)
	if err != nil {
		return nil, err
	}
	return pa.plan([]Step{step}), nil
}

// OpenPositionRequest describes a new position.
type OpenPositionRequest struct {
	TickLower int32
	TickUpper int32
	// PositionMint is a fresh keypair; it signs the transaction.
	PositionMint solana.PrivateKey
	// MissingTickArrays are start indexes of tick arrays to initialize first.
	MissingTickArrays []int32
	// Quote, when set, deposits liquidity in the same transaction.
	Quote *LiquidityQuote
}

// BuildOpenPosition emits initialize_tick_array for each missing array,
// open_position and, when a quote is given, increase_liquidity.
func BuildOpenPosition(pool *Whirlpool, req OpenPositionRequest, opts BuildOptions) (*Plan, error) {
	if err := validateTickRange(req.TickLower, req.TickUpper, pool.TickSpacing); err != nil {
		return nil, err
	}
	if req.PositionMint == nil {
		return nil, errors.New("position mint keypair required")
	}

	mint := req.PositionMint.PublicKey()
	position := &Position{
		Whirlpool:      pool.PoolId,
		PositionMint:   mint,
		TickLowerIndex: req.TickLower,
		TickUpperIndex: req.TickUpper,
	}
	positionAddr, bump, err := PositionAddress(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive position address: %w", err)
	}
	position.Address = positionAddr

	pa, err := resolvePosition(pool, position, opts)
	if err != nil {
		return nil, err
	}

	var steps []Step
	for _, start := range req.MissingTickArrays {
		if !clmm.IsValidTickArrayStart(start, pool.TickSpacing) {
			return nil, fmt.Errorf("%w: start %d", ErrTickArrayOutOfRange, start)
		}
		addr, err := TickArrayAddress(pool.PoolId, start)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{
			Kind:        StepInitializeTickArray,
			Instruction: NewInitializeTickArrayInstruction(start, pool.PoolId, pa.opts.Funder, addr),
		})
	}

	steps = append(steps, Step{
		Kind: StepOpenPosition,
		Instruction: NewOpenPositionInstruction(
			bump,
			req.TickLower,
			req.TickUpper,
			pa.opts.Funder,
			pa.opts.Authority,
			positionAddr,
			mint,
			pa.positionToken,
			pool.PoolId,
		),
	})

	if req.Quote != nil {
		if req.Quote.LiquidityDelta.IsNil() || req.Quote.LiquidityDelta.IsZero() {
			return nil, ErrZeroLiquidity
		}
		step, err := pa.increaseStep(*req.Quote, positionAddr)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	return pa.plan(steps, req.PositionMint), nil
}

// ValidateClosePlan checks that a plan ending in close_position collects fees,
// collects every initialized reward and decreases the full liquidity first,
// in that order.
func ValidateClosePlan(plan *Plan, pool *Whirlpool, position *Position) error {
	steps := plan.Steps()

	closeAt := -1
	for i, s := range steps {
		if s.Kind == StepClosePosition {
			if closeAt >= 0 {
				return fmt.Errorf("%w: duplicate close_position", ErrCloseOrdering)
			}
			closeAt = i
		}
	}
	if closeAt < 0 {
		return fmt.Errorf("%w: no close_position step", ErrCloseOrdering)
	}
	if closeAt != len(steps)-1 {
		return fmt.Errorf("%w: close_position is not the last step", ErrCloseOrdering)
	}

	// expected core sequence once setup steps are skipped
	var core []Step
	for _, s := range steps[:closeAt] {
		switch s.Kind {
		case StepCreateTokenAccount, StepUpdateFeesAndRewards:
			continue
		}
		core = append(core, s)
	}

	i := 0
	if i >= len(core) || core[i].Kind != StepCollectFees {
		return fmt.Errorf("%w: collect_fees must come first", ErrCloseOrdering)
	}
	i++

	for _, idx := range pool.InitializedRewards() {
		if i >= len(core) || core[i].Kind != StepCollectReward || core[i].RewardIndex != idx {
			return fmt.Errorf("%w: missing collect_reward for reward %d", ErrCloseOrdering, idx)
		}
		i++
	}

	if !position.Liquidity.IsZero() {
		if i >= len(core) || core[i].Kind != StepDecreaseLiquidity {
			return fmt.Errorf("%w: missing decrease_liquidity before close", ErrCloseOrdering)
		}
		if !core[i].Liquidity.Equals(position.Liquidity) {
			return fmt.Errorf("%w: decrease %s leaves liquidity in position %s", ErrCloseOrdering, core[i].Liquidity, position.Liquidity)
		}
		i++
	}

	if i != len(core) {
		return fmt.Errorf("%w: unexpected %s before close", ErrCloseOrdering, core[i].Kind)
	}
	return nil
}

func toUint128(v cosmath.Int) (uint128.Uint128, error) {
	if v.IsNil() || v.IsNegative() || v.GT(maxU128) {
		return uint128.Zero, fmt.Errorf("%w: %s", ErrLiquidityOverflow, v)
	}
	return uint128.FromBig(v.BigInt()), nil
}

func toUint64(v cosmath.Int) (uint64, error) {
	if v.IsNil() || v.IsNegative() || !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrTokenAmountOverflow, v)
	}
	return v.Uint64(), nil
}
