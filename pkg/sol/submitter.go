package sol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

const DefaultConfirmTimeout = 60 * time.Second

// SubmitOptions tune a single submission. The zero value simulates, sends
// and waits for confirmed commitment.
type SubmitOptions struct {
	Commitment     rpc.CommitmentType
	LookupTables   []solana.PublicKey
	SkipSimulation bool

	ComputeUnitLimit         uint32
	PriorityFeeMicroLamports uint64

	ConfirmTimeout time.Duration

	// UseBundle sends through the Jito block engine with a tip transfer.
	UseBundle   bool
	TipLamports uint64
	TipAccount  solana.PublicKey
}

func (o SubmitOptions) withDefaults() SubmitOptions {
	if o.Commitment == "" {
		o.Commitment = rpc.CommitmentConfirmed
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = DefaultConfirmTimeout
	}
	if o.TipAccount.IsZero() {
		o.TipAccount = DefaultJitoTipAccount
	}
	return o
}

// Submitter signs, simulates, sends and confirms transactions.
type Submitter struct {
	client    RPC
	confirmer Confirmer
	bundles   BundleSender
	namer     ErrorNamer
	logger    *zap.Logger
}

type SubmitterOption func(*Submitter)

func WithConfirmer(c Confirmer) SubmitterOption {
	return func(s *Submitter) { s.confirmer = c }
}

func WithBundleSender(b BundleSender) SubmitterOption {
	return func(s *Submitter) { s.bundles = b }
}

func WithErrorNamer(n ErrorNamer) SubmitterOption {
	return func(s *Submitter) { s.namer = n }
}

func WithLogger(l *zap.Logger) SubmitterOption {
	return func(s *Submitter) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSubmitter(client RPC, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		client: client,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.confirmer == nil {
		s.confirmer = NewPollingConfirmer(client, 0, s.namer)
	}
	return s
}

// BuildTransaction resolves lookup tables, fetches a blockhash and signs.
// The first signer pays fees.
func (s *Submitter) BuildTransaction(ctx context.Context, instructions []solana.Instruction, signers []solana.PrivateKey, opts SubmitOptions) (*solana.Transaction, error) {
	opts = opts.withDefaults()
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}
	if len(signers) == 0 {
		return nil, ErrNoSigners
	}
	payer := signers[0].PublicKey()

	instrs := withComputeBudget(instructions, opts.ComputeUnitLimit, opts.PriorityFeeMicroLamports)
	if opts.UseBundle && opts.TipLamports > 0 {
		instrs = append(instrs, tipInstruction(payer, opts.TipAccount, opts.TipLamports))
	}

	tables, err := FetchLookupTables(ctx, s.client, opts.LookupTables)
	if err != nil {
		return nil, err
	}

	bh, err := s.client.GetLatestBlockhash(ctx, opts.Commitment)
	if err != nil {
		return nil, transportErr("get latest blockhash", err)
	}
	if bh == nil || bh.Value == nil {
		return nil, transportErr("get latest blockhash", errors.New("empty response"))
	}

	txOpts := []solana.TransactionOption{solana.TransactionPayer(payer)}
	if len(tables) > 0 {
		txOpts = append(txOpts, solana.TransactionAddressTables(tables))
	}
	tx, err := solana.NewTransaction(instrs, bh.Value.Blockhash, txOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	keys := make(map[solana.PublicKey]*solana.PrivateKey, len(signers))
	for i := range signers {
		keys[signers[i].PublicKey()] = &signers[i]
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		return keys[key]
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingSigner, err)
	}
	return tx, nil
}

// Simulate runs a preflight of tx. A program failure is a *SimulationError.
func (s *Submitter) Simulate(ctx context.Context, tx *solana.Transaction, commitment rpc.CommitmentType) error {
	res, err := s.client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:  false,
		Commitment: commitment,
	})
	if err != nil {
		return transportErr("simulate transaction", err)
	}
	if res == nil || res.Value == nil {
		return transportErr("simulate transaction", errors.New("empty response"))
	}
	if res.Value.Err != nil {
		simErr := &SimulationError{
			Program: ParseTransactionError(res.Value.Err, s.namer),
			Raw:     rawErrorString(res.Value.Err),
			Logs:    res.Value.Logs,
		}
		s.logger.Warn("simulation failed",
			zap.String("error", simErr.Error()),
			zap.String("logs", lastLogs(res.Value.Logs, 5)))
		return simErr
	}
	s.logger.Debug("simulation ok", zap.Int("logs", len(res.Value.Logs)))
	return nil
}

// Submit builds, simulates, sends and confirms a transaction carrying
// instructions. A context cancelled before broadcast means nothing is sent.
// Once broadcast the signature is returned alongside any confirmation error.
func (s *Submitter) Submit(ctx context.Context, instructions []solana.Instruction, signers []solana.PrivateKey, opts SubmitOptions) (solana.Signature, error) {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}
	if opts.UseBundle && s.bundles == nil {
		return solana.Signature{}, ErrNoBundleSender
	}

	tx, err := s.BuildTransaction(ctx, instructions, signers, opts)
	if err != nil {
		return solana.Signature{}, err
	}

	if !opts.SkipSimulation {
		if err := s.Simulate(ctx, tx, opts.Commitment); err != nil {
			return solana.Signature{}, err
		}
	}

	// last chance to abort
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}

	sig, err := s.send(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, err
	}
	s.logger.Info("transaction sent",
		zap.Stringer("signature", sig),
		zap.String("commitment", string(opts.Commitment)),
		zap.Bool("bundle", opts.UseBundle))

	confirmCtx, cancel := context.WithTimeout(ctx, opts.ConfirmTimeout)
	defer cancel()
	if err := s.confirmer.Confirm(confirmCtx, sig, opts.Commitment); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return sig, fmt.Errorf("%w: %s after %s", ErrConfirmationTimeout, sig, opts.ConfirmTimeout)
		}
		return sig, err
	}
	return sig, nil
}

func (s *Submitter) send(ctx context.Context, tx *solana.Transaction, opts SubmitOptions) (solana.Signature, error) {
	if opts.UseBundle {
		bundleID, err := SendBundle(s.bundles, tx)
		if err != nil {
			return solana.Signature{}, err
		}
		s.logger.Info("bundle sent", zap.String("bundle_id", bundleID))
		return tx.Signatures[0], nil
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       !opts.SkipSimulation,
		PreflightCommitment: opts.Commitment,
	})
	if err != nil {
		if simErr := s.preflightError(err); simErr != nil {
			return solana.Signature{}, simErr
		}
		return solana.Signature{}, transportErr("send transaction", err)
	}
	return sig, nil
}

// preflightError turns a node-side preflight rejection into a SimulationError.
func (s *Submitter) preflightError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return nil
	}
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok || data["err"] == nil {
		return nil
	}
	simErr := &SimulationError{
		Program: ParseTransactionError(data["err"], s.namer),
		Raw:     rawErrorString(data["err"]),
	}
	if logs, ok := data["logs"].([]interface{}); ok {
		for _, l := range logs {
			if str, ok := l.(string); ok {
				simErr.Logs = append(simErr.Logs, str)
			}
		}
	}
	return simErr
}
