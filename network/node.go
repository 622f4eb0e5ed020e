package network

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
)

// Compile-time interface check.
var _ Node = (*RPCClient)(nil)

// btcToSat converts a BTC float64 amount (as returned by the RPC node) to satoshis.
func btcToSat(btc float64) uint64 {
	return uint64(math.Round(btc * 1e8))
}

// listUnspentResult maps the JSON fields returned by the listunspent call.
type listUnspentResult struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Amount        float64 `json:"amount"`
	ScriptPubKey  string  `json:"scriptPubKey"`
	Address       string  `json:"address"`
	Confirmations int64   `json:"confirmations"`
	Spendable     *bool   `json:"spendable,omitempty"`
}

// ListUnspent returns all unspent outputs for address, including unconfirmed
// ones. Outputs the node reports as unspendable are skipped.
func (c *RPCClient) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	params := []interface{}{0, 9999999, []string{address}}
	var results []listUnspentResult
	if err := c.Call(ctx, "listunspent", params, &results); err != nil {
		return nil, err
	}

	utxos := make([]*UTXO, 0, len(results))
	for _, r := range results {
		if r.Spendable != nil && !*r.Spendable {
			continue
		}
		utxos = append(utxos, &UTXO{
			TxID:          r.TxID,
			Vout:          r.Vout,
			Amount:        btcToSat(r.Amount),
			ScriptPubKey:  r.ScriptPubKey,
			Address:       r.Address,
			Confirmations: r.Confirmations,
		})
	}
	return utxos, nil
}

// BroadcastTx submits a raw transaction via sendrawtransaction.
// An error reply from the node is wrapped with ErrBroadcastRejected: the
// transaction was not accepted. Any other failure leaves the outcome unknown
// and is returned as is.
func (c *RPCClient) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	params := []interface{}{rawTxHex}
	var txid string
	if err := c.Call(ctx, "sendrawtransaction", params, &txid); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return "", fmt.Errorf("%w: %w", ErrBroadcastRejected, err)
		}
		return "", fmt.Errorf("network: sendrawtransaction: %w", err)
	}
	return txid, nil
}

// GetRawTx returns the raw transaction bytes for txid using
// `getrawtransaction "txid" false`.
func (c *RPCClient) GetRawTx(ctx context.Context, txid string) ([]byte, error) {
	params := []interface{}{txid, false}
	var rawHex string
	if err := c.Call(ctx, "getrawtransaction", params, &rawHex); err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx hex: %v", ErrInvalidResponse, err)
	}
	return data, nil
}

type verboseTxResult struct {
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"blockhash"`
	BlockHeight   uint64 `json:"blockheight"`
}

// GetTxStatus returns the confirmation status of txid using
// `getrawtransaction "txid" true`. A mempool transaction has zero
// confirmations.
func (c *RPCClient) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	params := []interface{}{txid, true}
	var res verboseTxResult
	if err := c.Call(ctx, "getrawtransaction", params, &res); err != nil {
		return nil, err
	}
	return &TxStatus{
		Confirmations: res.Confirmations,
		BlockHash:     res.BlockHash,
		BlockHeight:   res.BlockHeight,
	}, nil
}
