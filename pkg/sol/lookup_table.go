package sol

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
)

const lookupTableMetaSize = addresslookuptable.LOOKUP_TABLE_META_SIZE

var (
	AddressLookupTableProgramID = solana.MustPublicKeyFromBase58("AddressLookupTab1e1111111111111111111111111")

	ErrLookupTableNotFound = errors.New("address lookup table not found")
)

// DecodeLookupTableAddresses returns the addresses stored in a lookup table account.
func DecodeLookupTableAddresses(data []byte) (solana.PublicKeySlice, error) {
	if len(data) < lookupTableMetaSize || (len(data)-lookupTableMetaSize)%32 != 0 {
		return nil, fmt.Errorf("invalid lookup table data length %d", len(data))
	}
	state, err := addresslookuptable.DecodeAddressLookupTableState(data)
	if err != nil {
		return nil, err
	}
	return state.Addresses, nil
}

// FetchLookupTables resolves lookup table accounts into the map expected by
// solana.TransactionAddressTables.
func FetchLookupTables(ctx context.Context, client RPC, tables []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	if len(tables) == 0 {
		return nil, nil
	}

	res, err := client.GetMultipleAccountsWithOpts(ctx, tables, &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, transportErr("get lookup tables", err)
	}
	if res == nil || len(res.Value) != len(tables) {
		return nil, transportErr("get lookup tables", fmt.Errorf("expected %d accounts", len(tables)))
	}

	out := make(map[solana.PublicKey]solana.PublicKeySlice, len(tables))
	for i, acc := range res.Value {
		if acc == nil {
			return nil, fmt.Errorf("%w: %s", ErrLookupTableNotFound, tables[i])
		}
		if !acc.Owner.Equals(AddressLookupTableProgramID) {
			return nil, fmt.Errorf("account %s is not a lookup table", tables[i])
		}
		addrs, err := DecodeLookupTableAddresses(acc.Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("lookup table %s: %w", tables[i], err)
		}
		out[tables[i]] = addrs
	}
	return out, nil
}
