package anchor

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDiscriminator(t *testing.T) {
	want := sha256.Sum256([]byte("global:close_position"))
	got := GetDiscriminator("global", "close_position")
	assert.Len(t, got, 8)
	assert.Equal(t, want[:8], got)
}

func TestDiscriminatorsDiffer(t *testing.T) {
	assert.NotEqual(t, GetDiscriminator("global", "collect_fees"), GetDiscriminator("global", "collect_reward"))
	assert.NotEqual(t, AccountDiscriminator("Position"), AccountDiscriminator("Whirlpool"))
}
