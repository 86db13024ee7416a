// Package soltest provides an in-memory Solana RPC for tests.
package soltest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPC serves accounts from memory and records sent transactions. Unset
// failure hooks mean success.
type RPC struct {
	mu sync.Mutex

	Accounts map[solana.PublicKey]*rpc.Account

	BlockhashErr error
	AccountErr   error
	SimErr       interface{}
	SimLogs      []string
	SendErr      error
	Status       *rpc.SignatureStatusesResult
	// Program accounts returned for any getProgramAccounts call, filtered by
	// dataSize and memcmp.
	ProgramAccounts rpc.GetProgramAccountsResult

	BlockhashCalls int
	SimCalls       int
	SendCalls      int
	StatusCalls    int
	ProgramCalls   int
	Sent           []*solana.Transaction
}

func NewRPC() *RPC {
	return &RPC{Accounts: map[solana.PublicKey]*rpc.Account{}}
}

// SetAccount stores data owned by owner at address.
func (f *RPC) SetAccount(address, owner solana.PublicKey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accounts[address] = &rpc.Account{
		Lamports: 1,
		Owner:    owner,
		Data:     rpc.DataBytesOrJSONFromBytes(data),
	}
}

// AddProgramAccount makes address visible to getProgramAccounts.
func (f *RPC) AddProgramAccount(address, owner solana.PublicKey, data []byte) {
	f.SetAccount(address, owner, data)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ka := range f.ProgramAccounts {
		if ka.Pubkey.Equals(address) {
			ka.Account = f.Accounts[address]
			return
		}
	}
	f.ProgramAccounts = append(f.ProgramAccounts, &rpc.KeyedAccount{Pubkey: address, Account: f.Accounts[address]})
}

// Confirm makes every signature status confirmed.
func (f *RPC) Confirm() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Status = &rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
}

// SentCount returns the number of transactions broadcast.
func (f *RPC) SentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}

func (f *RPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BlockhashCalls++
	if f.BlockhashErr != nil {
		return nil, f.BlockhashErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{1, 2, 3}, LastValidBlockHeight: 100},
	}, nil
}

func (f *RPC) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AccountErr != nil {
		return nil, f.AccountErr
	}
	acc, ok := f.Accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (f *RPC) GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AccountErr != nil {
		return nil, f.AccountErr
	}
	out := &rpc.GetMultipleAccountsResult{Value: make([]*rpc.Account, len(accounts))}
	for i, a := range accounts {
		out.Value[i] = f.Accounts[a]
	}
	return out, nil
}

func (f *RPC) GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ProgramCalls++
	if f.AccountErr != nil {
		return nil, f.AccountErr
	}

	var out rpc.GetProgramAccountsResult
	for _, ka := range f.ProgramAccounts {
		if !ka.Account.Owner.Equals(program) {
			continue
		}
		if opts == nil || matches(ka.Account.Data.GetBinary(), opts.Filters) {
			out = append(out, ka)
		}
	}
	return out, nil
}

func matches(data []byte, filters []rpc.RPCFilter) bool {
	for _, f := range filters {
		if f.DataSize != 0 && uint64(len(data)) != f.DataSize {
			return false
		}
		if f.Memcmp != nil {
			off := int(f.Memcmp.Offset)
			want := []byte(f.Memcmp.Bytes)
			if off+len(want) > len(data) || string(data[off:off+len(want)]) != string(want) {
				return false
			}
		}
	}
	return true
}

func (f *RPC) SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SimCalls++
	return &rpc.SimulateTransactionResponse{
		Value: &rpc.SimulateTransactionResult{Err: f.SimErr, Logs: f.SimLogs},
	}, nil
}

func (f *RPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SendCalls++
	if f.SendErr != nil {
		return solana.Signature{}, f.SendErr
	}
	f.Sent = append(f.Sent, tx)
	return tx.Signatures[0], nil
}

func (f *RPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StatusCalls++
	out := &rpc.GetSignatureStatusesResult{Value: make([]*rpc.SignatureStatusesResult, len(signatures))}
	for i := range signatures {
		out.Value[i] = f.Status
	}
	return out, nil
}

// BundleSender records the last bundle.
type BundleSender struct {
	Bundles [][]string
	Err     error
}

func (b *BundleSender) SendBundle(bundleTransactions [][]string) (json.RawMessage, error) {
	b.Bundles = bundleTransactions
	if b.Err != nil {
		return nil, b.Err
	}
	return json.RawMessage(`"bundle-1"`), nil
}

// CustomError builds a transaction error as the node reports a custom
// program error, e.g. {"InstructionError":[idx,{"Custom":code}]}.
func CustomError(instructionIndex int, code int) map[string]interface{} {
	return map[string]interface{}{
		"InstructionError": []interface{}{float64(instructionIndex), map[string]interface{}{"Custom": float64(code)}},
	}
}
