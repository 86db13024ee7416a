package sol

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"lpmanager/pkg/subscription"
)

// SignatureSubscriber is satisfied by *subscription.WebSocketClient.
type SignatureSubscriber interface {
	SubscribeSignature(signature string, commitment string, handler subscription.SignatureHandler) (uint64, error)
	Unsubscribe(id uint64) error
}

// WSConfirmer waits on signatureSubscribe. It polls once after subscribing
// in case the transaction landed before the subscription, and falls back to
// polling when the subscription cannot be opened.
type WSConfirmer struct {
	ws       SignatureSubscriber
	fallback *PollingConfirmer
}

func NewWSConfirmer(ws SignatureSubscriber, fallback *PollingConfirmer) *WSConfirmer {
	return &WSConfirmer{ws: ws, fallback: fallback}
}

type signatureResult struct {
	txErr interface{}
}

func (c *WSConfirmer) Confirm(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error {
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}

	done := make(chan signatureResult, 1)
	id, err := c.ws.SubscribeSignature(signature.String(), string(commitment), func(_ string, txErr interface{}, _ uint64) {
		select {
		case done <- signatureResult{txErr: txErr}:
		default:
		}
	})
	if err != nil {
		if c.fallback == nil {
			return &TransportError{Op: "signatureSubscribe", Err: err}
		}
		return c.fallback.Confirm(ctx, signature, commitment)
	}
	defer c.ws.Unsubscribe(id)

	if c.fallback != nil {
		if ok, err := c.fallback.check(ctx, signature, commitment); ok {
			return err
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-done:
		if res.txErr == nil {
			return nil
		}
		var namer ErrorNamer
		if c.fallback != nil {
			namer = c.fallback.Namer
		}
		return &TransactionFailedError{
			Signature: signature,
			Program:   ParseTransactionError(res.txErr, namer),
			Raw:       rawErrorString(res.txErr),
		}
	}
}
