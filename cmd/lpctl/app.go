package main

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"lpmanager/pkg/config"
	"lpmanager/pkg/journal"
	"lpmanager/pkg/lifecycle"
	"lpmanager/pkg/pool/whirlpool"
	"lpmanager/pkg/protocol"
	"lpmanager/pkg/sol"
	"lpmanager/pkg/subscription"
)

// app holds everything a command needs, built from merged configuration.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	ctx     context.Context
	stop    context.CancelFunc
	rpc     *sol.RPCPool
	chain   *protocol.WhirlpoolProtocol
	ws      *subscription.WebSocketClient
	journal journal.Journal
	manager *lifecycle.Manager
}

type appOptions struct {
	// signer loads the authority keypair
	signer bool
	// websocket dials the ws endpoint, required when set
	websocket bool
}

func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{cfg: cfg, logger: logger, ctx: ctx, stop: stop, journal: journal.Nop{}}
	if err := a.init(opts); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(opts appOptions) error {
	cfg := a.cfg
	commitment := rpc.CommitmentType(cfg.Commitment)

	pool, err := sol.NewRPCPool(a.ctx, cfg.RPCEndpoints, "", cfg.RPCRateLimit)
	if err != nil {
		return fmt.Errorf("rpc pool: %w", err)
	}
	a.rpc = pool
	a.chain = protocol.NewWhirlpool(pool)
	a.chain.Commitment = commitment

	if cfg.WSURL != "" || opts.websocket {
		if cfg.WSURL == "" {
			return fmt.Errorf("ws endpoint is required")
		}
		ws, err := subscription.NewWebSocketClient(a.ctx, cfg.WSURL, a.logger)
		if err != nil {
			return err
		}
		a.ws = ws
	}

	mcfg := lifecycle.Config{
		SlippageBps:         &cfg.SlippageBps,
		EnsureTokenAccounts: cfg.EnsureTokenAccounts,
		DryRun:              cfg.DryRun,
	}
	if opts.signer {
		key, err := loadKeypair(cfg.Keypair)
		if err != nil {
			return err
		}
		mcfg.Authority = key
	}
	if cfg.Receiver != "" {
		receiver, err := solana.PublicKeyFromBase58(cfg.Receiver)
		if err != nil {
			return fmt.Errorf("invalid receiver: %w", err)
		}
		mcfg.Receiver = receiver
	}

	submitOpts, err := a.submitOptions(commitment)
	if err != nil {
		return err
	}
	mcfg.Submit = submitOpts

	if opts.signer {
		j, err := openJournal(a.ctx, cfg)
		if err != nil {
			return err
		}
		a.journal = j
	}

	a.manager = lifecycle.NewManager(a.chain, a.submitter(), mcfg,
		lifecycle.WithJournal(a.journal),
		lifecycle.WithLogger(a.logger),
	)
	return nil
}

func (a *app) submitOptions(commitment rpc.CommitmentType) (sol.SubmitOptions, error) {
	cfg := a.cfg
	opts := sol.SubmitOptions{
		Commitment:               commitment,
		ComputeUnitLimit:         cfg.ComputeUnitLimit,
		PriorityFeeMicroLamports: cfg.PriorityFee,
		ConfirmTimeout:           cfg.ConfirmTimeout,
		UseBundle:                cfg.UseBundle,
		TipLamports:              cfg.TipLamports,
	}
	for _, s := range cfg.LookupTables {
		table, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return opts, fmt.Errorf("invalid lookup table %q: %w", s, err)
		}
		opts.LookupTables = append(opts.LookupTables, table)
	}
	return opts, nil
}

func (a *app) submitter() *sol.Submitter {
	polling := sol.NewPollingConfirmer(a.rpc, 500*time.Millisecond, whirlpool.ProgramErrorName)
	var confirmer sol.Confirmer = polling
	if a.ws != nil {
		confirmer = sol.NewWSConfirmer(a.ws, polling)
	}

	opts := []sol.SubmitterOption{
		sol.WithConfirmer(confirmer),
		sol.WithErrorNamer(whirlpool.ProgramErrorName),
		sol.WithLogger(a.logger),
	}
	if a.cfg.UseBundle {
		opts = append(opts, sol.WithBundleSender(sol.NewJitoClient(a.cfg.JitoURL, a.cfg.JitoUUID)))
	}
	return sol.NewSubmitter(a.rpc, opts...)
}

func (a *app) close() {
	if a.ws != nil {
		a.ws.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("close journal", zap.Error(err))
		}
	}
	a.stop()
	_ = a.logger.Sync()
}

// mintDecimalsFetcher reads SPL mint decimals; *protocol.WhirlpoolProtocol
// satisfies it.
type mintDecimalsFetcher interface {
	FetchMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

func poolDecimals(ctx context.Context, chain mintDecimalsFetcher, pool *whirlpool.Whirlpool) (uint8, uint8, error) {
	decA, err := chain.FetchMintDecimals(ctx, pool.TokenMintA)
	if err != nil {
		return 0, 0, fmt.Errorf("mint A decimals: %w", err)
	}
	decB, err := chain.FetchMintDecimals(ctx, pool.TokenMintB)
	if err != nil {
		return 0, 0, fmt.Errorf("mint B decimals: %w", err)
	}
	return decA, decB, nil
}

// decimals returns the pool's mint decimals for display, or zeros with a
// warning so output falls back to raw prices.
func (a *app) decimals(pool *whirlpool.Whirlpool) (uint8, uint8) {
	decA, decB, err := poolDecimals(a.ctx, a.chain, pool)
	if err != nil {
		a.logger.Warn("mint decimals unavailable, prices are raw", zap.Error(err))
		return 0, 0
	}
	return decA, decB
}

func openJournal(ctx context.Context, cfg config.Config) (journal.Journal, error) {
	if cfg.JournalDSN != "" {
		return journal.OpenPostgres(ctx, cfg.JournalDSN)
	}
	if cfg.JournalPath == "" {
		return journal.Nop{}, nil
	}
	return journal.OpenFile(cfg.JournalPath)
}

// loadKeypair accepts a solana-keygen JSON file or a base58 encoded 64 byte
// secret key as exported by wallets.
func loadKeypair(path string) (solana.PrivateKey, error) {
	if raw, err := base58.Decode(path); err == nil && len(raw) == ed25519.PrivateKeySize {
		return solana.PrivateKey(raw), nil
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".config", "solana", "id.json")
	} else if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, path[2:])
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", path, err)
	}
	return key, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parsePubkey(name, s string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return key, nil
}
