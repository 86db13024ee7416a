// Package config merges flags, LPCTL_* environment variables and an optional
// config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "LPCTL"

var ErrNoRPCEndpoints = errors.New("no rpc endpoint configured")

type Config struct {
	RPCEndpoints []string
	WSURL        string
	Commitment   string
	// RPCRateLimit is requests per second per endpoint, 0 for unlimited.
	RPCRateLimit int

	Keypair  string
	Receiver string

	SlippageBps         uint16
	EnsureTokenAccounts bool
	DryRun              bool

	ComputeUnitLimit uint32
	PriorityFee      uint64
	ConfirmTimeout   time.Duration
	LookupTables     []string

	UseBundle   bool
	JitoURL     string
	JitoUUID    string
	TipLamports uint64

	JournalPath string
	JournalDSN  string

	ListenAddr string
	LogLevel   string
}

// Load merges cfgFile (optional), environment and flags, flags winning.
// Without an rpc setting the legacy RPC_ENDPOINTS variable is used.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("commitment", "confirmed")
	v.SetDefault("rpc-rate-limit", 20)
	v.SetDefault("slippage-bps", 100)
	v.SetDefault("confirm-timeout", 60*time.Second)
	v.SetDefault("jito-url", "https://mainnet.block-engine.jito.wtf/api/v1")
	v.SetDefault("tip-lamports", 10_000)
	v.SetDefault("journal", "lpctl-journal.jsonl")
	v.SetDefault("listen", ":8080")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("lpctl")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	slippage := v.GetUint("slippage-bps")
	if slippage > 10_000 {
		return Config{}, fmt.Errorf("slippage-bps %d exceeds 10000", slippage)
	}

	cfg := Config{
		RPCEndpoints:        getStringSlice(v, "rpc"),
		WSURL:               v.GetString("ws"),
		Commitment:          v.GetString("commitment"),
		RPCRateLimit:        v.GetInt("rpc-rate-limit"),
		Keypair:             v.GetString("keypair"),
		Receiver:            v.GetString("receiver"),
		SlippageBps:         uint16(slippage),
		EnsureTokenAccounts: v.GetBool("ensure-token-accounts"),
		DryRun:              v.GetBool("dry-run"),
		ComputeUnitLimit:    v.GetUint32("compute-units"),
		PriorityFee:         v.GetUint64("priority-fee"),
		ConfirmTimeout:      v.GetDuration("confirm-timeout"),
		LookupTables:        getStringSlice(v, "lookup-tables"),
		UseBundle:           v.GetBool("bundle"),
		JitoURL:             v.GetString("jito-url"),
		JitoUUID:            v.GetString("jito-uuid"),
		TipLamports:         v.GetUint64("tip-lamports"),
		JournalPath:         v.GetString("journal"),
		JournalDSN:          v.GetString("journal-dsn"),
		ListenAddr:          v.GetString("listen"),
		LogLevel:            v.GetString("log-level"),
	}
	if len(cfg.RPCEndpoints) == 0 {
		cfg.RPCEndpoints = GetRPCEndpoints()
	}

	return cfg, nil
}

// Validate reports settings every networked command needs.
func (c Config) Validate() error {
	if len(c.RPCEndpoints) == 0 {
		return ErrNoRPCEndpoints
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	switch typed := v.Get(key).(type) {
	case []string:
		return splitList(strings.Join(typed, ","))
	case string:
		return splitList(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return splitList(strings.Join(items, ","))
	default:
		return nil
	}
}
