package whirlpool

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lpmanager/pkg/anchor"
	"lukechampine.com/uint128"
)

// encodeData writes the Anchor discriminator of name followed by the Borsh
// encoded arguments.
func encodeData(name string, args func(enc *bin.Encoder) error) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.Write(anchor.GetDiscriminator("global", name)); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if args != nil {
		if err := args(bin.NewBorshEncoder(buf)); err != nil {
			return nil, fmt.Errorf("failed to encode %s args: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

func writeUint128(enc *bin.Encoder, v uint128.Uint128) error {
	b := make([]byte, 16)
	v.PutBytes(b)
	return enc.WriteBytes(b, false)
}

type UpdateFeesAndRewardsInstruction struct {
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewUpdateFeesAndRewardsInstruction(whirlpool, position, tickArrayLower, tickArrayUpper solana.PublicKey) *UpdateFeesAndRewardsInstruction {
	return &UpdateFeesAndRewardsInstruction{
		AccountMetaSlice: solana.AccountMetaSlice{
			solana.NewAccountMeta(whirlpool, true, false),
			solana.NewAccountMeta(position, true, false),
			solana.NewAccountMeta(tickArrayLower, false, false),
			solana.NewAccountMeta(tickArrayUpper, false, false),
		},
	}
}

func (inst *UpdateFeesAndRewardsInstruction) ProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (inst *UpdateFeesAndRewardsInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *UpdateFeesAndRewardsInstruction) Data() ([]byte, error) {
	return encodeData(ixUpdateFeesAndRewards, nil)
}

type CollectFeesInstruction struct {
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewCollectFeesInstruction(
	whirlpool solana.PublicKey,
	authority solana.PublicKey,
	position solana.PublicKey,
	positionTokenAccount solana.PublicKey,
	ownerAccountA solana.PublicKey,
	vaultA solana.PublicKey,
	ownerAccountB solana.PublicKey,
	vaultB solana.PublicKey,
) *CollectFeesInstruction {
	return &CollectFeesInstruction{
		AccountMetaSlice: solana.AccountMetaSlice{
			solana.NewAccountMeta(whirlpool, false, false),
			solana.NewAccountMeta(authority, false, true),
			solana.NewAccountMeta(position, true, false),
			solana.NewAccountMeta(positionTokenAccount, false, false),
			solana.NewAccountMeta(ownerAccountA, true, false),
			solana.NewAccountMeta(vaultA, true, false),
			solana.NewAccountMeta(ownerAccountB, true, false),
			solana.NewAccountMeta(vaultB, true, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
		},
	}
}

func (inst *CollectFeesInstruction) ProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (inst *CollectFeesInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *CollectFeesInstruction) Data() ([]byte, error) {
	return encodeData(ixCollectFees, nil)
}

type CollectRewardInstruction struct {
	RewardIndex             uint8
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewCollectRewardInstruction(
	rewardIndex uint8,
	whirlpool solana.PublicKey,
	authority solana.PublicKey,
	position solana.PublicKey,
	positionTokenAccount solana.PublicKey,
	rewardOwnerAccount solana.PublicKey,
	rewardVault solana.PublicKey,
) *CollectRewardInstruction {
	return &CollectRewardInstruction{
		RewardIndex: rewardIndex,
		AccountMetaSlice: solana.AccountMetaSlice{
			solana.NewAccountMeta(whirlpool, false, false),
			solana.NewAccountMeta(authority, false, true),
			solana.NewAccountMeta(position, true, false),
			solana.NewAccountMeta(positionTokenAccount, false, false),
			solana.NewAccountMeta(rewardOwnerAccount, true, false),
			solana.NewAccountMeta(rewardVault, true, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
		},
	}
}

func (inst *CollectRewardInstruction) ProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (inst *CollectRewardInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *CollectRewardInstruction) Data() ([]byte, error) {
	return encodeData(ixCollectReward, func(enc *bin.Encoder) error {
		return enc.WriteUint8(inst.RewardIndex)
	})
}

// ModifyLiquidityAccounts are shared by increase_liquidity and decrease_liquidity.
type ModifyLiquidityAccounts struct {
	Whirlpool            solana.PublicKey
	Authority            solana.PublicKey
	Position             solana.PublicKey
	PositionTokenAccount solana.PublicKey
	OwnerAccountA        solana.PublicKey
	OwnerAccountB        solana.PublicKey
	VaultA               solana.PublicKey
	VaultB               solana.PublicKey
	TickArrayLower       solana.PublicKey
	TickArrayUpper       solana.PublicKey
}

func (a ModifyLiquidityAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Whirlpool, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(a.Authority, false, true),
		solana.NewAccountMeta(a.Position, true, false),
		solana.NewAccountMeta(a.PositionTokenAccount, false, false),
		solana.NewAccountMeta(a.OwnerAccountA, true, false),
		solana.NewAccountMeta(a.OwnerAccountB, true, false),
		solana.NewAccountMeta(a.VaultA, true, false),
		solana.NewAccountMeta(a.VaultB, true, false),
		solana.NewAccountMeta(a.TickArrayLower, true, false),
		solana.NewAccountMeta(a.TickArrayUpper, true, false),
	}
}

type IncreaseLiquidityInstruction struct {
	LiquidityAmount         uint128.Uint128
	TokenMaxA               uint64
	TokenMaxB               uint64
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewIncreaseLiquidityInstruction(liquidity uint128.Uint128, tokenMaxA, tokenMaxB uint64, accounts ModifyLiquidityAccounts) *IncreaseLiquidityInstruction {
	return &IncreaseLiquidityInstruction{
		LiquidityAmount:  liquidity,
		TokenMaxA:        tokenMaxA,
		TokenMaxB:        tokenMaxB,
		AccountMetaSlice: accounts.metas(),
	}
}

func (inst *IncreaseLiquidityInstruction) ProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (inst *IncreaseLiquidityInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *IncreaseLiquidityInstruction) Data() ([]byte, error) {
	return encodeData(ixIncreaseLiquidity, func(enc *bin.Encoder) error {
		if err := writeUint128(enc, inst.LiquidityAmount); err != nil {
			return err
		}
		if err := enc.WriteUint64(inst.TokenMaxA, binary.LittleEndian); err != nil {
			return err
		}
		return enc.WriteUint64(inst.TokenMaxB, binary.LittleEndian)
	})
}

type DecreaseLiquidityInstruction struct {
	LiquidityAmount         uint128.Uint128
	TokenMinA               uint64
	TokenMinB               uint64
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewDecreaseLiquidityInstruction(liquidity uint128.Uint128, tokenMinA, tokenMinB uint64, accounts ModifyLiquidityAccounts) *DecreaseLiquidityInstruction {
	return &DecreaseLiquidityInstruction{
		LiquidityAmount:  liquidity,
		TokenMinA:        tokenMinA,
		TokenMinB:        tokenMinB,
		AccountMetaSlice: accounts.metas(),
	}
}

func (inst *DecreaseLiquidityInstruction) ProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (inst *DecreaseLiquidityInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *DecreaseLiquidityInstruction) Data() ([]byte, error) {
	return encodeData(ixDecreaseLiquidity, func(enc *bin.Encoder) error {
		if err := writeUint128(enc, inst.LiquidityAmount); err != nil {
			return err
		}
		if err := enc.WriteUint64(inst.TokenMinA, binary.LittleEndian); err != nil {
			return err
		}
		return enc.WriteUint64(inst.TokenMinB, binary.LittleEndian)
	})
}

type ClosePositionInstruction struct {
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewClosePositionInstruction(
	authority solana.PublicKey,
	receiver solana.PublicKey,
	position solana.PublicKey,
	positionMint solana.PublicKey,
	positionTokenAccount solana.PublicKey,
) *ClosePositionInstruction {
	return &ClosePositionInstruction{
		AccountMetaSlice: solana.AccountMetaSlice{
			solana.NewAccountMeta(authority, false, true),
			solana.NewAccountMeta(receiver, true, false),
			solana.NewAccountMeta(position, true, false),
			solana.NewAccountMeta(positionMint, true, false),
			solana.NewAccountMeta(positionTokenAccount, true, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
		},
	}
}

func (inst *ClosePositionInstruction) ProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (inst *ClosePositionInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *ClosePositionInstruction) Data() ([]byte, error) {
	return encodeData(ixClosePosition, nil)
}

type OpenPositionInstruction struct {
	PositionBump            uint8
	TickLowerIndex          int32
	TickUpperIndex          int32
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewOpenPositionInstruction(
	positionBump uint8,
	tickLower, tickUpper int32,
	funder solana.PublicKey,
	owner solana.PublicKey,
	position solana.PublicKey,
	positionMint solana.PublicKey,
	positionTokenAccount solana.PublicKey,
	whirlpool solana.PublicKey,
) *OpenPositionInstruction {
	return &OpenPositionInstruction{
		PositionBump:   positionBump,
		TickLowerIndex: tickLower,
		TickUpperIndex: tickUpper,
		AccountMetaSlice: solana.AccountMetaSlice{
			solana.NewAccountMeta(funder, true, true),
			solana.NewAccountMeta(owner, false, false),
			solana.NewAccountMeta(position, true, false),
			solana.NewAccountMeta(positionMint, true, true),
			solana.NewAccountMeta(positionTokenAccount, true, false),
			solana.NewAccountMeta(whirlpool, false, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
			solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
			solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		},
	}
}

func (inst *OpenPositionInstruction) ProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (inst *OpenPositionInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *OpenPositionInstruction) Data() ([]byte, error) {
	return encodeData(ixOpenPosition, func(enc *bin.Encoder) error {
		if err := enc.WriteUint8(inst.PositionBump); err != nil {
			return err
		}
		if err := enc.WriteInt32(inst.TickLowerIndex, binary.LittleEndian); err != nil {
			return err
		}
		return enc.WriteInt32(inst.TickUpperIndex, binary.LittleEndian)
	})
}

type InitializeTickArrayInstruction struct {
	StartTickIndex          int32
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewInitializeTickArrayInstruction(startTick int32, whirlpool, funder, tickArray solana.PublicKey) *InitializeTickArrayInstruction {
	return &InitializeTickArrayInstruction{
		StartTickIndex: startTick,
		AccountMetaSlice: solana.AccountMetaSlice{
			solana.NewAccountMeta(whirlpool, false, false),
			solana.NewAccountMeta(funder, true, true),
			solana.NewAccountMeta(tickArray, true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
	}
}

func (inst *InitializeTickArrayInstruction) ProgramID() solana.PublicKey {
	return WhirlpoolProgramID
}

func (inst *InitializeTickArrayInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *InitializeTickArrayInstruction) Data() ([]byte, error) {
	return encodeData(ixInitializeTickArray, func(enc *bin.Encoder) error {
		return enc.WriteInt32(inst.StartTickIndex, binary.LittleEndian)
	})
}

// CreateATAIdempotentInstruction creates an associated token account unless
// it already exists.
type CreateATAIdempotentInstruction struct {
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewCreateATAIdempotentInstruction(payer, owner, mint solana.PublicKey) (*CreateATAIdempotentInstruction, solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to derive ATA: %w", err)
	}
	return &CreateATAIdempotentInstruction{
		AccountMetaSlice: solana.AccountMetaSlice{
			solana.NewAccountMeta(payer, true, true),
			solana.NewAccountMeta(ata, true, false),
			solana.NewAccountMeta(owner, false, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
			solana.NewAccountMeta(solana.TokenProgramID, false, false),
		},
	}, ata, nil
}

func (inst *CreateATAIdempotentInstruction) ProgramID() solana.PublicKey {
	return solana.SPLAssociatedTokenAccountProgramID
}

func (inst *CreateATAIdempotentInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice.GetAccounts()
}

func (inst *CreateATAIdempotentInstruction) Data() ([]byte, error) {
	return []byte{1}, nil
}
