package whirlpool

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAccountData = errors.New("invalid account data")

	// Quote input validation. None of these are worth retrying.
	ErrZeroLiquidity        = errors.New("liquidity is zero")
	ErrLiquidityOverflow    = errors.New("liquidity exceeds u128")
	ErrTokenAmountOverflow  = errors.New("token amount exceeds u64")
	ErrInvalidTickRange     = errors.New("lower tick must be below upper tick")
	ErrInvalidTickIndex     = errors.New("tick index out of bounds or not aligned to tick spacing")
	ErrTickArrayOutOfRange  = errors.New("tick array outside addressable range")
	ErrInvalidSlippage      = errors.New("slippage tolerance above 10000 bps")
	ErrInvalidPercent       = errors.New("percent above 10000 bps")
	ErrInvalidQuoteInput    = errors.New("quote input must set exactly one of liquidity, token A, token B")
	ErrPositionPoolMismatch = errors.New("position does not belong to pool")
	ErrTickArrayMismatch    = errors.New("tick array does not cover position tick")

	// Plan validation
	ErrCloseOrdering = errors.New("close position not preceded by collect and full decrease")
)

// ProgramErrorBase is the first custom error code of Anchor programs.
const ProgramErrorBase = 6000

var programErrorNames = []string{
	"InvalidEnum",
	"InvalidStartTick",
	"TickArrayExistInPool",
	"TickArrayIndexOutofBounds",
	"InvalidTickSpacing",
	"ClosePositionNotEmpty",
	"DivideByZero",
	"NumberCastError",
	"NumberDownCastError",
	"TickNotFound",
	"InvalidTickIndex",
	"SqrtPriceOutOfBounds",
	"LiquidityZero",
	"LiquidityTooHigh",
	"LiquidityOverflow",
	"LiquidityUnderflow",
	"LiquidityNetError",
	"TokenMaxExceeded",
	"TokenMinSubceeded",
	"MissingOrInvalidDelegate",
	"InvalidPositionTokenAmount",
	"InvalidTimestampConversion",
	"InvalidTimestamp",
	"InvalidTickArraySequence",
	"InvalidTokenMintOrder",
	"RewardNotInitialized",
	"InvalidRewardIndex",
	"RewardVaultAmountInsufficient",
	"FeeRateMaxExceeded",
	"ProtocolFeeRateMaxExceeded",
	"MultiplicationShiftRightOverflow",
	"MulDivOverflow",
	"MulDivInvalidInput",
	"MultiplicationOverflow",
	"InvalidSqrtPriceLimitDirection",
	"ZeroTradableAmount",
	"AmountOutBelowMinimum",
	"AmountInAboveMaximum",
	"TickArraySequenceInvalidIndex",
	"AmountCalcOverflow",
	"AmountRemainingOverflow",
	"InvalidIntermediaryMint",
	"DuplicateTwoHopPool",
}

// Program error codes the client reacts to
const (
	CodeClosePositionNotEmpty = 6005
	CodeLiquidityZero         = 6012
	CodeTokenMaxExceeded      = 6017
	CodeTokenMinSubceeded     = 6018
)

// ProgramErrorName maps a Whirlpool custom error code to its name.
func ProgramErrorName(code uint32) string {
	if code >= ProgramErrorBase && int(code-ProgramErrorBase) < len(programErrorNames) {
		return programErrorNames[code-ProgramErrorBase]
	}
	return fmt.Sprintf("Unknown(%d)", code)
}

// IsSlippageError reports whether code is a slippage bound violation, meaning
// the caller should re-quote against fresh pool state.
func IsSlippageError(code uint32) bool {
	return code == CodeTokenMaxExceeded || code == CodeTokenMinSubceeded
}
