package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	e := NewEntry("close", "Pool111", "Mint111")
	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.False(t, e.Time.IsZero())
	assert.Equal(t, "close", e.Action)
	assert.NotEqual(t, e.ID, NewEntry("close", "Pool111", "Mint111").ID)
}

func TestFileJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := OpenFile(path)
	require.NoError(t, err)

	code := uint32(6005)
	first := NewEntry("close", "Pool111", "Mint111")
	first.Status = StatusFailed
	first.ProgramErrorCode = &code
	first.Error = "ClosePositionNotEmpty"
	second := NewEntry("harvest", "Pool111", "Mint111")
	second.Status = StatusConfirmed
	second.Signature = "5sig"
	second.Steps = []string{"update_fees_and_rewards", "collect_fees"}

	ctx := context.Background()
	require.NoError(t, j.Record(ctx, first))
	require.NoError(t, j.Record(ctx, second))

	recent, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].ID)
	assert.Equal(t, second.Steps, recent[0].Steps)
	assert.Equal(t, first.ID, recent[1].ID)
	require.NotNil(t, recent[1].ProgramErrorCode)
	assert.Equal(t, code, *recent[1].ProgramErrorCode)

	one, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, StatusConfirmed, one[0].Status)

	require.NoError(t, j.Close())
	assert.Error(t, j.Record(ctx, first))

	// reopening appends
	j2, err := OpenFile(path)
	require.NoError(t, err)
	defer j2.Close()
	require.NoError(t, j2.Record(ctx, NewEntry("open", "Pool111", "Mint222")))
	all, err := j2.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPostgresJournal(t *testing.T) {
	dsn := os.Getenv("LPCTL_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("LPCTL_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	j, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer j.Close()

	e := NewEntry("decrease", "Pool111", "Mint111")
	e.Status = StatusConfirmed
	e.Signature = "5sig"
	require.NoError(t, j.Record(ctx, e))

	recent, err := j.Recent(ctx, 50)
	require.NoError(t, err)
	var found bool
	for _, r := range recent {
		if r.ID == e.ID {
			found = true
			assert.Equal(t, "5sig", r.Signature)
			assert.Nil(t, r.ProgramErrorCode)
		}
	}
	assert.True(t, found)
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "")
	assert.Error(t, err)
}
