// Package lifecycle runs position workflows: fetch live state, quote, build
// an ordered instruction plan and hand it to the submitter.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lpmanager/pkg/journal"
	"lpmanager/pkg/metrics"
	"lpmanager/pkg/pool/whirlpool"
	"lpmanager/pkg/protocol"
	"lpmanager/pkg/sol"
)

// Action names, used in logs, metrics and the journal.
const (
	ActionOpen     = "open"
	ActionIncrease = "increase"
	ActionDecrease = "decrease"
	ActionHarvest  = "harvest"
	ActionClose    = "close"
)

// ErrMissingAuthority is returned by actions on a quote-only Manager.
var ErrMissingAuthority = errors.New("authority keypair required")

// Chain reads live whirlpool state. *protocol.WhirlpoolProtocol satisfies it.
type Chain interface {
	FetchPool(ctx context.Context, address solana.PublicKey) (*whirlpool.Whirlpool, error)
	FetchPositionState(ctx context.Context, positionMint solana.PublicKey) (*protocol.PositionState, error)
	FetchMissingTickArrays(ctx context.Context, pool *whirlpool.Whirlpool, tickLower, tickUpper int32) ([]int32, error)
}

// Submitter sends instructions. *sol.Submitter satisfies it.
type Submitter interface {
	Submit(ctx context.Context, instructions []solana.Instruction, signers []solana.PrivateKey, opts sol.SubmitOptions) (solana.Signature, error)
}

type Config struct {
	// Authority owns positions, signs and pays fees. Quotes work without it.
	Authority solana.PrivateKey
	// Receiver gets withdrawn tokens and rent. Defaults to the authority.
	Receiver solana.PublicKey
	// SlippageBps backs DefaultSlippage. Nil means whirlpool.DefaultSlippageBps.
	SlippageBps         *uint16
	EnsureTokenAccounts bool
	Submit              sol.SubmitOptions
	// DryRun builds plans without submitting them.
	DryRun bool
}

type Manager struct {
	chain     Chain
	submitter Submitter
	cfg       Config
	// resolved from cfg.SlippageBps
	slippageBps uint16
	journal     journal.Journal
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Manager)

func WithJournal(j journal.Journal) Option {
	return func(m *Manager) {
		if j != nil {
			m.journal = j
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock sets the time used for reward accrual in quotes.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(chain Chain, submitter Submitter, cfg Config, opts ...Option) *Manager {
	slippage := whirlpool.DefaultSlippageBps
	if cfg.SlippageBps != nil {
		slippage = *cfg.SlippageBps
	}
	m := &Manager{
		chain:       chain,
		submitter:   submitter,
		cfg:         cfg,
		slippageBps: slippage,
		journal:     journal.Nop{},
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Authority is the zero key for a quote-only Manager.
func (m *Manager) Authority() solana.PublicKey {
	if m.cfg.Authority == nil {
		return solana.PublicKey{}
	}
	return m.cfg.Authority.PublicKey()
}

func (m *Manager) buildOptions() (whirlpool.BuildOptions, error) {
	if m.cfg.Authority == nil {
		return whirlpool.BuildOptions{}, ErrMissingAuthority
	}
	return whirlpool.BuildOptions{
		Authority:           m.Authority(),
		Receiver:            m.cfg.Receiver,
		EnsureTokenAccounts: m.cfg.EnsureTokenAccounts,
	}, nil
}

// Result describes one lifecycle action. Signature is zero for dry runs.
type Result struct {
	Action       string
	Pool         solana.PublicKey
	PositionMint solana.PublicKey
	Plan         *whirlpool.Plan
	Quote        *whirlpool.LiquidityQuote
	Signature    solana.Signature
	DryRun       bool
}

func (m *Manager) fetchState(ctx context.Context, positionMint solana.PublicKey) (*protocol.PositionState, error) {
	started := time.Now()
	state, err := m.chain.FetchPositionState(ctx, positionMint)
	if m.metrics != nil {
		m.metrics.ObserveFetch("position", started)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch position %s: %w", positionMint, err)
	}
	return state, nil
}

// execute submits plan unless running dry, and journals the outcome.
func (m *Manager) execute(ctx context.Context, res *Result) (*Result, error) {
	plan := res.Plan
	steps := make([]string, 0, plan.Len())
	for _, k := range plan.Kinds() {
		steps = append(steps, k.String())
	}
	if m.metrics != nil {
		m.metrics.ObservePlan(res.Action, plan.Len())
	}

	log := m.logger.With(
		zap.String("action", res.Action),
		zap.Stringer("pool", res.Pool),
		zap.Stringer("position_mint", res.PositionMint),
		zap.Strings("steps", steps),
	)

	entry := journal.NewEntry(res.Action, res.Pool.String(), res.PositionMint.String())
	entry.Steps = steps

	if m.cfg.DryRun {
		res.DryRun = true
		entry.Status = journal.StatusDryRun
		m.record(ctx, log, entry)
		log.Info("dry run, plan not submitted")
		return res, nil
	}

	// cancellation before broadcast means do not submit
	if err := ctx.Err(); err != nil {
		if m.metrics != nil {
			m.metrics.ObserveSubmit(res.Action, metrics.OutcomeAborted, time.Now())
		}
		return nil, err
	}

	started := time.Now()
	signers := append([]solana.PrivateKey{m.cfg.Authority}, plan.ExtraSigners()...)
	sig, err := m.submitter.Submit(ctx, plan.Instructions(), signers, m.cfg.Submit)
	res.Signature = sig
	if !sig.IsZero() {
		entry.Signature = sig.String()
	}

	outcome := classify(err)
	if m.metrics != nil {
		m.metrics.ObserveSubmit(res.Action, outcome, started)
	}

	switch {
	case err == nil:
		entry.Status = journal.StatusConfirmed
		log.Info("confirmed", zap.Stringer("signature", sig), zap.Duration("elapsed", time.Since(started)))
	case errors.Is(err, sol.ErrConfirmationTimeout):
		entry.Status = journal.StatusUnconfirmed
		entry.Error = err.Error()
		log.Warn("not confirmed", zap.Stringer("signature", sig), zap.Error(err))
	default:
		entry.Status = journal.StatusFailed
		entry.Error = err.Error()
		if pe, ok := sol.AsProgramError(err); ok {
			code := pe.Code
			entry.ProgramErrorCode = &code
			if m.metrics != nil {
				m.metrics.ObserveProgramError(res.Action, whirlpool.ProgramErrorName(code))
			}
		}
		log.Error("submission failed", zap.String("outcome", outcome), zap.Error(err))
	}

	// nothing was sent when submission failed before broadcast
	if err == nil || !sig.IsZero() || outcome == metrics.OutcomeSimulation {
		m.record(ctx, log, entry)
	}

	if err != nil {
		return res, fmt.Errorf("%s position %s: %w", res.Action, res.PositionMint, err)
	}
	return res, nil
}

func (m *Manager) record(ctx context.Context, log *zap.Logger, entry journal.Entry) {
	if err := m.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn("journal write failed", zap.Error(err))
	}
}

func classify(err error) string {
	var simErr *sol.SimulationError
	var failed *sol.TransactionFailedError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &simErr):
		return metrics.OutcomeSimulation
	case errors.As(err, &failed):
		return metrics.OutcomeFailed
	case errors.Is(err, sol.ErrConfirmationTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeAborted
	case sol.IsRetryable(err):
		return metrics.OutcomeTransport
	default:
		return metrics.OutcomeInvalid
	}
}
