package protocol

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"lpmanager/pkg/pool/whirlpool"
	"lpmanager/pkg/sol"
)

var (
	ErrPoolNotFound      = errors.New("whirlpool account not found")
	ErrPositionNotFound  = errors.New("position account not found")
	ErrTickArrayNotFound = errors.New("tick array not initialized")
	ErrMintNotFound      = errors.New("mint account not found")
)

// base mint layout, Token-2022 extensions follow it
const mintSize = 82

type WhirlpoolProtocol struct {
	SolClient  sol.RPC
	Commitment rpc.CommitmentType
}

func NewWhirlpool(solClient sol.RPC) *WhirlpoolProtocol {
	return &WhirlpoolProtocol{
		SolClient:  solClient,
		Commitment: rpc.CommitmentConfirmed,
	}
}

func (p *WhirlpoolProtocol) ProtocolName() string {
	return "whirlpool"
}

// PositionState is everything quoting and building need for one position,
// fetched in one pass.
type PositionState struct {
	Pool       *whirlpool.Whirlpool
	Position   *whirlpool.Position
	TickArrays whirlpool.PositionTickArrays
	LowerArray *whirlpool.TickArray
	UpperArray *whirlpool.TickArray
	LowerTick  *whirlpool.Tick
	UpperTick  *whirlpool.Tick
}

func (p *WhirlpoolProtocol) getAccount(ctx context.Context, address solana.PublicKey, notFound error) ([]byte, error) {
	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: p.Commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", notFound, address)
		}
		return nil, &sol.TransportError{Op: "get account " + address.String(), Err: err}
	}
	if account == nil || account.Value == nil || account.Value.Data == nil {
		return nil, fmt.Errorf("%w: %s", notFound, address)
	}
	if !account.Value.Owner.Equals(whirlpool.WhirlpoolProgramID) {
		return nil, fmt.Errorf("%w: %s owned by %s", whirlpool.ErrInvalidAccountData, address, account.Value.Owner)
	}
	return account.Value.Data.GetBinary(), nil
}

func (p *WhirlpoolProtocol) FetchPoolByID(ctx context.Context, poolId string) (*whirlpool.Whirlpool, error) {
	poolPubkey, err := solana.PublicKeyFromBase58(poolId)
	if err != nil {
		return nil, fmt.Errorf("invalid pool ID: %w", err)
	}
	return p.FetchPool(ctx, poolPubkey)
}

// FetchPool reads the live pool state. Pools are never cached.
func (p *WhirlpoolProtocol) FetchPool(ctx context.Context, address solana.PublicKey) (*whirlpool.Whirlpool, error) {
	data, err := p.getAccount(ctx, address, ErrPoolNotFound)
	if err != nil {
		return nil, err
	}
	pool, err := whirlpool.ParseWhirlpool(address, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool data for pool %s: %w", address, err)
	}
	return pool, nil
}

// FetchPosition reads the position identified by its mint.
func (p *WhirlpoolProtocol) FetchPosition(ctx context.Context, positionMint solana.PublicKey) (*whirlpool.Position, error) {
	address, _, err := whirlpool.PositionAddress(positionMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive position address: %w", err)
	}
	data, err := p.getAccount(ctx, address, ErrPositionNotFound)
	if err != nil {
		return nil, err
	}
	position, err := whirlpool.ParsePosition(address, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse position %s: %w", address, err)
	}
	if !position.PositionMint.Equals(positionMint) {
		return nil, fmt.Errorf("%w: position %s has mint %s", whirlpool.ErrInvalidAccountData, address, position.PositionMint)
	}
	return position, nil
}

// FetchTickArrays reads the tick arrays at the given addresses. Missing
// accounts fail with ErrTickArrayNotFound.
func (p *WhirlpoolProtocol) FetchTickArrays(ctx context.Context, addresses ...solana.PublicKey) ([]*whirlpool.TickArray, error) {
	res, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, addresses, &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: p.Commitment,
	})
	if err != nil {
		return nil, &sol.TransportError{Op: "get tick arrays", Err: err}
	}
	if res == nil || len(res.Value) != len(addresses) {
		return nil, &sol.TransportError{Op: "get tick arrays", Err: fmt.Errorf("expected %d accounts", len(addresses))}
	}

	out := make([]*whirlpool.TickArray, len(addresses))
	for i, acc := range res.Value {
		if acc == nil || acc.Data == nil {
			return nil, fmt.Errorf("%w: %s", ErrTickArrayNotFound, addresses[i])
		}
		ta, err := whirlpool.ParseTickArray(addresses[i], acc.Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("failed to parse tick array %s: %w", addresses[i], err)
		}
		out[i] = ta
	}
	return out, nil
}

// FetchPositionState reads the position, its pool and the two bounding ticks.
func (p *WhirlpoolProtocol) FetchPositionState(ctx context.Context, positionMint solana.PublicKey) (*PositionState, error) {
	position, err := p.FetchPosition(ctx, positionMint)
	if err != nil {
		return nil, err
	}
	pool, err := p.FetchPool(ctx, position.Whirlpool)
	if err != nil {
		return nil, err
	}

	arrays, err := whirlpool.TickArraysForRange(pool.PoolId, pool.TickSpacing, position.TickLowerIndex, position.TickUpperIndex)
	if err != nil {
		return nil, err
	}
	state := &PositionState{Pool: pool, Position: position, TickArrays: arrays}

	addrs := []solana.PublicKey{arrays.Lower}
	if !arrays.Upper.Equals(arrays.Lower) {
		addrs = append(addrs, arrays.Upper)
	}
	fetched, err := p.FetchTickArrays(ctx, addrs...)
	if err != nil {
		return nil, err
	}
	state.LowerArray = fetched[0]
	state.UpperArray = fetched[len(fetched)-1]

	if state.LowerTick, err = state.LowerArray.TickAt(position.TickLowerIndex, pool.TickSpacing); err != nil {
		return nil, err
	}
	if state.UpperTick, err = state.UpperArray.TickAt(position.TickUpperIndex, pool.TickSpacing); err != nil {
		return nil, err
	}
	return state, nil
}

// FetchMissingTickArrays returns the start indexes of the tick arrays a new
// position over [tickLower, tickUpper] needs that do not exist yet.
func (p *WhirlpoolProtocol) FetchMissingTickArrays(ctx context.Context, pool *whirlpool.Whirlpool, tickLower, tickUpper int32) ([]int32, error) {
	arrays, err := whirlpool.TickArraysForRange(pool.PoolId, pool.TickSpacing, tickLower, tickUpper)
	if err != nil {
		return nil, err
	}
	addrs := []solana.PublicKey{arrays.Lower}
	starts := []int32{arrays.LowerStart}
	if arrays.UpperStart != arrays.LowerStart {
		addrs = append(addrs, arrays.Upper)
		starts = append(starts, arrays.UpperStart)
	}

	res, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, addrs, &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: p.Commitment,
		DataSlice:  &rpc.DataSlice{Offset: ptrUint64(0), Length: ptrUint64(8)},
	})
	if err != nil {
		return nil, &sol.TransportError{Op: "get tick arrays", Err: err}
	}
	if res == nil || len(res.Value) != len(addrs) {
		return nil, &sol.TransportError{Op: "get tick arrays", Err: fmt.Errorf("expected %d accounts", len(addrs))}
	}

	var missing []int32
	for i, acc := range res.Value {
		if acc == nil {
			missing = append(missing, starts[i])
		}
	}
	return missing, nil
}

// FetchPoolsByPair lists the pools trading baseMint against quoteMint in
// either token order.
func (p *WhirlpoolProtocol) FetchPoolsByPair(ctx context.Context, baseMint string, quoteMint string) ([]*whirlpool.Whirlpool, error) {
	baseMintPubkey, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}
	quoteMintPubkey, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	programAccounts, err := p.poolsByMints(ctx, baseMintPubkey, quoteMintPubkey)
	if err != nil {
		return nil, err
	}

	// Also try reverse pair
	reverseAccounts, err := p.poolsByMints(ctx, quoteMintPubkey, baseMintPubkey)
	if err != nil {
		return nil, err
	}
	programAccounts = append(programAccounts, reverseAccounts...)

	res := make([]*whirlpool.Whirlpool, 0, len(programAccounts))
	for _, v := range programAccounts {
		if v == nil || v.Account == nil || v.Account.Data == nil {
			continue
		}
		pool, err := whirlpool.ParseWhirlpool(v.Pubkey, v.Account.Data.GetBinary())
		if err != nil {
			continue
		}
		res = append(res, pool)
	}
	return res, nil
}

func (p *WhirlpoolProtocol) poolsByMints(ctx context.Context, mintA, mintB solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	filters := []rpc.RPCFilter{
		{DataSize: whirlpool.WhirlpoolSize},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: whirlpool.WhirlpoolMintAOffset,
				Bytes:  mintA.Bytes(),
			},
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: whirlpool.WhirlpoolMintBOffset,
				Bytes:  mintB.Bytes(),
			},
		},
	}

	accounts, err := p.SolClient.GetProgramAccountsWithOpts(ctx, whirlpool.WhirlpoolProgramID, &rpc.GetProgramAccountsOpts{
		Commitment: p.Commitment,
		Encoding:   solana.EncodingBase64,
		Filters:    filters,
	})
	if err != nil {
		return nil, &sol.TransportError{Op: "get whirlpools", Err: err}
	}
	return accounts, nil
}

// FetchPositionsByPool lists every position opened on a pool.
func (p *WhirlpoolProtocol) FetchPositionsByPool(ctx context.Context, pool solana.PublicKey) ([]*whirlpool.Position, error) {
	accounts, err := p.SolClient.GetProgramAccountsWithOpts(ctx, whirlpool.WhirlpoolProgramID, &rpc.GetProgramAccountsOpts{
		Commitment: p.Commitment,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{DataSize: whirlpool.PositionSize},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: whirlpool.PositionPoolOffset, Bytes: pool.Bytes()}},
		},
	})
	if err != nil {
		return nil, &sol.TransportError{Op: "get positions", Err: err}
	}

	out := make([]*whirlpool.Position, 0, len(accounts))
	for _, v := range accounts {
		if v == nil || v.Account == nil || v.Account.Data == nil {
			continue
		}
		position, err := whirlpool.ParsePosition(v.Pubkey, v.Account.Data.GetBinary())
		if err != nil {
			continue
		}
		out = append(out, position)
	}
	return out, nil
}

// FetchMintDecimals reads the decimals of an SPL token or Token-2022 mint.
func (p *WhirlpoolProtocol) FetchMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, mint, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: p.Commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrMintNotFound, mint)
		}
		return 0, &sol.TransportError{Op: "get mint " + mint.String(), Err: err}
	}
	if account == nil || account.Value == nil || account.Value.Data == nil {
		return 0, fmt.Errorf("%w: %s", ErrMintNotFound, mint)
	}
	owner := account.Value.Owner
	if !owner.Equals(solana.TokenProgramID) && !owner.Equals(solana.Token2022ProgramID) {
		return 0, fmt.Errorf("%w: mint %s owned by %s", whirlpool.ErrInvalidAccountData, mint, owner)
	}

	data := account.Value.Data.GetBinary()
	if len(data) < mintSize {
		return 0, fmt.Errorf("%w: mint %s has %d bytes", whirlpool.ErrInvalidAccountData, mint, len(data))
	}
	var m token.Mint
	if err := bin.NewBinDecoder(data[:mintSize]).Decode(&m); err != nil {
		return 0, fmt.Errorf("failed to decode mint %s: %w", mint, err)
	}
	return m.Decimals, nil
}

func ptrUint64(v uint64) *uint64 {
	return &v
}
