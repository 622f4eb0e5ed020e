package network

import "context"

// MockNode is a test double for Node.
// All function fields must be set before the corresponding method is called.
type MockNode struct {
	ListUnspentFn func(ctx context.Context, address string) ([]*UTXO, error)
	BroadcastTxFn func(ctx context.Context, rawTxHex string) (string, error)
	GetRawTxFn    func(ctx context.Context, txid string) ([]byte, error)
	GetTxStatusFn func(ctx context.Context, txid string) (*TxStatus, error)
}

// Compile-time interface check.
var _ Node = (*MockNode)(nil)

func (m *MockNode) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	return m.ListUnspentFn(ctx, address)
}

func (m *MockNode) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	return m.BroadcastTxFn(ctx, rawTxHex)
}

func (m *MockNode) GetRawTx(ctx context.Context, txid string) ([]byte, error) {
	return m.GetRawTxFn(ctx, txid)
}

func (m *MockNode) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	return m.GetTxStatusFn(ctx, txid)
}
