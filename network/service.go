// Package network talks to a BSV node and to the payment-token gateway over
// JSON-RPC. The engine needs spendable outputs for the payout wallet, a way
// to broadcast signed payouts, and the incoming transactions it is told
// carry revenue.
package network

import "context"

// Node is the node interface used for native-asset payouts.
type Node interface {
	// ListUnspent returns all unspent transaction outputs for the given address.
	ListUnspent(ctx context.Context, address string) ([]*UTXO, error)

	// BroadcastTx submits a raw transaction hex to the network and returns the txid.
	BroadcastTx(ctx context.Context, rawTxHex string) (string, error)

	// GetRawTx returns the serialized transaction for txid.
	GetRawTx(ctx context.Context, txid string) ([]byte, error)

	// GetTxStatus returns the confirmation status of txid.
	GetTxStatus(ctx context.Context, txid string) (*TxStatus, error)
}

// TxStatus is the confirmation state of a transaction.
type TxStatus struct {
	Confirmations int64  `json:"confirmations"`
	BlockHash     string `json:"block_hash,omitempty"`
	BlockHeight   uint64 `json:"block_height,omitempty"`
}

// UTXO represents an unspent transaction output.
type UTXO struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Amount        uint64 `json:"amount"`
	ScriptPubKey  string `json:"script_pubkey"`
	Address       string `json:"address"`
	Confirmations int64  `json:"confirmations"`
}
