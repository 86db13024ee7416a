package sol

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Confirmer blocks until signature reaches commitment, the transaction fails,
// or ctx is done.
type Confirmer interface {
	Confirm(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error
}

// commitmentReached reports whether status satisfies the requested commitment.
func commitmentReached(status rpc.ConfirmationStatusType, commitment rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case string(rpc.ConfirmationStatusProcessed):
			return 1
		case string(rpc.ConfirmationStatusConfirmed):
			return 2
		case string(rpc.ConfirmationStatusFinalized):
			return 3
		default:
			return 0
		}
	}
	want := rank(string(commitment))
	if want == 0 {
		want = rank(string(rpc.CommitmentConfirmed))
	}
	got := rank(string(status))
	return got > 0 && got >= want
}

// PollingConfirmer polls getSignatureStatuses.
type PollingConfirmer struct {
	Client   RPC
	Interval time.Duration
	Namer    ErrorNamer
}

func NewPollingConfirmer(client RPC, interval time.Duration, namer ErrorNamer) *PollingConfirmer {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &PollingConfirmer{Client: client, Interval: interval, Namer: namer}
}

func (c *PollingConfirmer) Confirm(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error {
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		done, err := c.check(ctx, signature, commitment)
		if done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// check returns done=true with a nil error once confirmed, or with the
// on-chain failure. Transport errors are swallowed until ctx expires.
func (c *PollingConfirmer) check(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) (bool, error) {
	res, err := c.Client.GetSignatureStatuses(ctx, false, signature)
	if err != nil || res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return false, nil
	}
	status := res.Value[0]
	if status.Err != nil {
		return true, &TransactionFailedError{
			Signature: signature,
			Program:   ParseTransactionError(status.Err, c.Namer),
			Raw:       rawErrorString(status.Err),
		}
	}
	return commitmentReached(status.ConfirmationStatus, commitment), nil
}
