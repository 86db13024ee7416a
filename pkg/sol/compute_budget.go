package sol

import (
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

var ComputeBudgetProgramID = computebudget.ProgramID

func NewSetComputeUnitLimitInstruction(units uint32) solana.Instruction {
	return computebudget.NewSetComputeUnitLimitInstruction(units).Build()
}

func NewSetComputeUnitPriceInstruction(microLamports uint64) solana.Instruction {
	return computebudget.NewSetComputeUnitPriceInstruction(microLamports).Build()
}

// withComputeBudget prefixes limit and price instructions when set.
func withComputeBudget(instructions []solana.Instruction, unitLimit uint32, microLamports uint64) []solana.Instruction {
	out := make([]solana.Instruction, 0, len(instructions)+2)
	if unitLimit > 0 {
		out = append(out, NewSetComputeUnitLimitInstruction(unitLimit))
	}
	if microLamports > 0 {
		out = append(out, NewSetComputeUnitPriceInstruction(microLamports))
	}
	return append(out, instructions...)
}
