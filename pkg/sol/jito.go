package sol

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	jitorpc "github.com/jito-labs/jito-go-rpc"
)

// DefaultJitoTipAccount is one of the block engine's published tip accounts.
var DefaultJitoTipAccount = solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5")

// BundleSender submits bundles to a Jito block engine.
// *jitorpc.JitoJsonRpcClient satisfies it.
type BundleSender interface {
	SendBundle(bundleTransactions [][]string) (json.RawMessage, error)
}

var _ BundleSender = (*jitorpc.JitoJsonRpcClient)(nil)

func NewJitoClient(url, uuid string) *jitorpc.JitoJsonRpcClient {
	return jitorpc.NewJitoJsonRpcClient(url, uuid)
}

// tipInstruction pays the block engine for including a bundle.
func tipInstruction(payer, tipAccount solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, payer, tipAccount).Build()
}

// SendBundle submits signed transactions as one bundle and returns the bundle id.
// The block engine client declares base64 encoding for every transaction.
func SendBundle(sender BundleSender, txs ...*solana.Transaction) (string, error) {
	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		b64, err := tx.ToBase64()
		if err != nil {
			return "", fmt.Errorf("failed to serialize transaction: %w", err)
		}
		encoded = append(encoded, b64)
	}

	res, err := sender.SendBundle([][]string{encoded})
	if err != nil {
		return "", transportErr("send bundle", err)
	}

	var bundleID string
	if err := json.Unmarshal(res, &bundleID); err != nil {
		return "", fmt.Errorf("unexpected bundle response %s: %w", string(res), err)
	}
	return bundleID, nil
}
