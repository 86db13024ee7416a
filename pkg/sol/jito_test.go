package sol

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTransfer(t *testing.T) *solana.Transaction {
	t.Helper()
	signer := newTestSigner(t)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferIx(signer.PublicKey())},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(signer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signer.PublicKey()) {
			return &signer
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func TestSendBundleThroughJitoClient(t *testing.T) {
	var (
		path   string
		params []json.RawMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		params = req.Params
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"bundle-42"}`))
	}))
	defer srv.Close()

	tx := signedTransfer(t)
	id, err := SendBundle(NewJitoClient(srv.URL, ""), tx)
	require.NoError(t, err)
	assert.Equal(t, "bundle-42", id)
	assert.Equal(t, "/bundles", path)

	require.Len(t, params, 2)
	var opts map[string]string
	require.NoError(t, json.Unmarshal(params[1], &opts))
	require.Equal(t, "base64", opts["encoding"])

	var txs []string
	require.NoError(t, json.Unmarshal(params[0], &txs))
	require.Len(t, txs, 1)
	decoded, err := solana.TransactionFromBase64(txs[0])
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures, decoded.Signatures)
}

func TestSendBundleRPCErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"bundle rejected"}}`))
	}))
	defer srv.Close()

	_, err := SendBundle(NewJitoClient(srv.URL, ""), signedTransfer(t))
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}
