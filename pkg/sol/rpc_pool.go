package sol

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var ErrNoEndpoints = errors.New("no rpc endpoints configured")

// RPCPool manages multiple RPC endpoints and distributes requests across them
type RPCPool struct {
	clients []*Client
	index   uint64
}

// NewRPCPool creates a new RPC pool with the given endpoints
func NewRPCPool(ctx context.Context, endpoints []string, jitoRpc string, reqLimitPerSecond int) (*RPCPool, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	clients := make([]*Client, 0, len(endpoints))
	for _, endpoint := range endpoints {
		client, err := NewClient(ctx, endpoint, jitoRpc, reqLimitPerSecond)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return NewRPCPoolFromClients(clients...), nil
}

// NewRPCPoolFromClients pools already constructed clients.
func NewRPCPoolFromClients(clients ...*Client) *RPCPool {
	return &RPCPool{clients: clients}
}

// GetClient returns the next client in round-robin fashion
func (p *RPCPool) GetClient() *Client {
	if len(p.clients) == 0 {
		return nil
	}
	if len(p.clients) == 1 {
		return p.clients[0]
	}

	idx := atomic.AddUint64(&p.index, 1) % uint64(len(p.clients))
	return p.clients[idx]
}

// Jito returns the bundle sender of the first client that has one.
func (p *RPCPool) Jito() BundleSender {
	for _, c := range p.clients {
		if c.Jito != nil {
			return c.Jito
		}
	}
	return nil
}

// Size returns the number of clients in the pool
func (p *RPCPool) Size() int {
	return len(p.clients)
}

func (p *RPCPool) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return p.GetClient().GetLatestBlockhash(ctx, commitment)
}

func (p *RPCPool) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	return p.GetClient().GetAccountInfoWithOpts(ctx, account, opts)
}

func (p *RPCPool) GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error) {
	return p.GetClient().GetMultipleAccountsWithOpts(ctx, accounts, opts)
}

func (p *RPCPool) GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	return p.GetClient().GetProgramAccountsWithOpts(ctx, program, opts)
}

func (p *RPCPool) SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error) {
	return p.GetClient().SimulateTransactionWithOpts(ctx, tx, opts)
}

func (p *RPCPool) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	return p.GetClient().SendTransactionWithOpts(ctx, tx, opts)
}

func (p *RPCPool) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return p.GetClient().GetSignatureStatuses(ctx, searchTransactionHistory, signatures...)
}
