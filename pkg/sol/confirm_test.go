package sol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lpmanager/pkg/sol/soltest"
	"lpmanager/pkg/subscription"
)

type fakeSubscriber struct {
	err          error
	txErr        interface{}
	notify       bool
	commitment   string
	unsubscribed []uint64
}

func (s *fakeSubscriber) SubscribeSignature(signature string, commitment string, handler subscription.SignatureHandler) (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.commitment = commitment
	if s.notify {
		go handler(signature, s.txErr, 10)
	}
	return 7, nil
}

func (s *fakeSubscriber) Unsubscribe(id uint64) error {
	s.unsubscribed = append(s.unsubscribed, id)
	return nil
}

func TestWSConfirmerNotified(t *testing.T) {
	sub := &fakeSubscriber{notify: true}
	c := NewWSConfirmer(sub, NewPollingConfirmer(soltest.NewRPC(), time.Millisecond, nil))

	err := c.Confirm(context.Background(), solana.Signature{1}, rpc.CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, "finalized", sub.commitment)
	assert.Equal(t, []uint64{7}, sub.unsubscribed)
}

func TestWSConfirmerFailedTransaction(t *testing.T) {
	sub := &fakeSubscriber{notify: true, txErr: soltest.CustomError(0, 6005)}
	c := NewWSConfirmer(sub, NewPollingConfirmer(soltest.NewRPC(), time.Millisecond, func(uint32) string { return "ClosePositionNotEmpty" }))

	err := c.Confirm(context.Background(), solana.Signature{1}, "")
	var failed *TransactionFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "ClosePositionNotEmpty", failed.Program.Name)
}

func TestWSConfirmerAlreadyLanded(t *testing.T) {
	f := soltest.NewRPC()
	f.Confirm()
	sub := &fakeSubscriber{}
	c := NewWSConfirmer(sub, NewPollingConfirmer(f, time.Millisecond, nil))

	require.NoError(t, c.Confirm(context.Background(), solana.Signature{1}, rpc.CommitmentConfirmed))
	assert.Equal(t, 1, f.StatusCalls)
}

func TestWSConfirmerFallsBackToPolling(t *testing.T) {
	f := soltest.NewRPC()
	f.Confirm()
	c := NewWSConfirmer(&fakeSubscriber{err: errors.New("not connected")}, NewPollingConfirmer(f, time.Millisecond, nil))

	require.NoError(t, c.Confirm(context.Background(), solana.Signature{1}, rpc.CommitmentConfirmed))

	noFallback := NewWSConfirmer(&fakeSubscriber{err: errors.New("not connected")}, nil)
	err := noFallback.Confirm(context.Background(), solana.Signature{1}, rpc.CommitmentConfirmed)
	assert.True(t, IsRetryable(err))
}

func TestWSConfirmerTimeout(t *testing.T) {
	c := NewWSConfirmer(&fakeSubscriber{}, NewPollingConfirmer(soltest.NewRPC(), time.Millisecond, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.Confirm(ctx, solana.Signature{1}, rpc.CommitmentConfirmed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
