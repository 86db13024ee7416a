package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"lpmanager/pkg/config"
)

func main() {
	_ = config.LoadEnv(".env")

	root := &cobra.Command{
		Use:          "lpctl",
		Short:        "Orca Whirlpool liquidity position manager",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.StringSlice("rpc", nil, "Solana RPC endpoints (comma-separated)")
	pf.String("ws", "", "websocket endpoint for signature and account subscriptions")
	pf.String("commitment", "confirmed", "commitment level (processed, confirmed, finalized)")
	pf.Int("rpc-rate-limit", 20, "RPC requests per second per endpoint")
	pf.String("keypair", "", "authority keypair file (defaults to ~/.config/solana/id.json)")
	pf.String("receiver", "", "wallet receiving withdrawn tokens and rent (defaults to the authority)")
	pf.Uint("slippage-bps", 100, "slippage tolerance in basis points")
	pf.Bool("ensure-token-accounts", false, "create missing associated token accounts")
	pf.Bool("dry-run", false, "build plans without submitting")
	pf.Uint32("compute-units", 0, "compute unit limit, 0 leaves the default")
	pf.Uint64("priority-fee", 0, "priority fee in micro-lamports per compute unit")
	pf.Duration("confirm-timeout", 60*time.Second, "how long to wait for confirmation")
	pf.StringSlice("lookup-tables", nil, "address lookup tables to compile v0 transactions against")
	pf.Bool("bundle", false, "submit as a Jito bundle with a tip")
	pf.String("jito-url", "https://mainnet.block-engine.jito.wtf/api/v1", "Jito block engine URL")
	pf.String("jito-uuid", "", "Jito auth uuid")
	pf.Uint64("tip-lamports", 10_000, "Jito tip in lamports")
	pf.String("journal", "lpctl-journal.jsonl", "journal file")
	pf.String("journal-dsn", "", "Postgres DSN, replaces the journal file when set")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newPoolsCmd(),
		newPositionCmd(),
		newQuoteCmd(),
		newIncreaseCmd(),
		newDecreaseCmd(),
		newCloseCmd(),
		newHarvestCmd(),
		newOpenCmd(),
		newWatchCmd(),
		newHistoryCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// stdout carries command output
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}
