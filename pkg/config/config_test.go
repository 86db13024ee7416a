package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RPC_ENDPOINTS", "")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", cfg.Commitment)
	assert.Equal(t, uint16(100), cfg.SlippageBps)
	assert.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, "lpctl-journal.jsonl", cfg.JournalPath)
	assert.Empty(t, cfg.RPCEndpoints)
	assert.ErrorIs(t, cfg.Validate(), ErrNoRPCEndpoints)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	file := filepath.Join(dir, "lpctl.yaml")
	require.NoError(t, os.WriteFile(file, []byte("rpc:\n  - https://a.example\n  - https://b.example\nslippage-bps: 30\ndry-run: true\n"), 0o644))

	t.Setenv("LPCTL_SLIPPAGE_BPS", "40")
	t.Setenv("LPCTL_PRIORITY_FEE", "5000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint("slippage-bps", 100, "")
	require.NoError(t, flags.Parse([]string{"--slippage-bps=50"}))

	cfg, err := Load(file, flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.RPCEndpoints)
	assert.Equal(t, uint16(50), cfg.SlippageBps)
	assert.Equal(t, uint64(5000), cfg.PriorityFee)
	assert.True(t, cfg.DryRun)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsSlippageOver100Percent(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LPCTL_SLIPPAGE_BPS", "10001")

	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestLoadKeepsExplicitZeroSlippage(t *testing.T) {
	t.Chdir(t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Uint("slippage-bps", 100, "")
	require.NoError(t, flags.Parse([]string{"--slippage-bps=0"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), cfg.SlippageBps)
}

func TestLoadFallsBackToRPCEndpoints(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RPC_ENDPOINTS", " https://x.example, ,https://y.example")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.example", "https://y.example"}, cfg.RPCEndpoints)
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nLPCTL_TEST_A=one\nexport LPCTL_TEST_B=\"two\"\nbroken\nLPCTL_TEST_C=file\n"), 0o644))
	t.Setenv("LPCTL_TEST_C", "env")
	t.Setenv("LPCTL_TEST_A", "")
	os.Unsetenv("LPCTL_TEST_A")
	t.Setenv("LPCTL_TEST_B", "")
	os.Unsetenv("LPCTL_TEST_B")

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "one", os.Getenv("LPCTL_TEST_A"))
	assert.Equal(t, "two", os.Getenv("LPCTL_TEST_B"))
	assert.Equal(t, "env", os.Getenv("LPCTL_TEST_C"))

	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing")))
}
