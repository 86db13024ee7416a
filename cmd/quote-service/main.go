package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"lpmanager/pkg/config"
	"lpmanager/pkg/lifecycle"
	"lpmanager/pkg/metrics"
	"lpmanager/pkg/protocol"
	"lpmanager/pkg/sol"
)

func main() {
	_ = config.LoadEnv(".env")

	root := &cobra.Command{
		Use:          "quote-service",
		Short:        "HTTP service quoting Whirlpool position changes",
		SilenceUsage: true,
		RunE:         run,
	}
	root.Flags().String("config", "", "config file path")
	root.Flags().StringSlice("rpc", nil, "Solana RPC endpoints (comma-separated)")
	root.Flags().String("commitment", "confirmed", "commitment level")
	root.Flags().Int("rpc-rate-limit", 20, "RPC requests per second per endpoint")
	root.Flags().Uint("slippage-bps", 100, "default slippage tolerance in basis points")
	root.Flags().String("listen", ":8080", "HTTP listen address")
	root.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sol.NewRPCPool(ctx, cfg.RPCEndpoints, "", cfg.RPCRateLimit)
	if err != nil {
		return err
	}
	chain := protocol.NewWhirlpool(pool)
	chain.Commitment = rpc.CommitmentType(cfg.Commitment)

	m := metrics.New("", nil)
	// quotes only, no authority
	manager := lifecycle.NewManager(chain, nil, lifecycle.Config{SlippageBps: &cfg.SlippageBps},
		lifecycle.WithMetrics(m),
		lifecycle.WithLogger(logger),
	)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newServer(manager, m, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("quote service listening",
		zap.String("addr", cfg.ListenAddr),
		zap.Int("rpc_endpoints", pool.Size()),
		zap.Uint16("slippage_bps", cfg.SlippageBps),
	)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
