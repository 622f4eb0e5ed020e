package payout

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"go.uber.org/zap"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/network"
)

// WalletReceipts reports how many satoshis an incoming transaction paid to
// a receiving wallet. Only P2PKH outputs locked to the wallet count.
type WalletReceipts struct {
	node    network.Node
	wallet  account.Address
	minConf int64
	logger  *zap.Logger
}

// ReceiptsOption configures a WalletReceipts.
type ReceiptsOption func(*WalletReceipts)

// WithMinConfirmations requires incoming transactions to be mined at least
// n blocks deep. Zero accepts mempool transactions.
func WithMinConfirmations(n int64) ReceiptsOption {
	return func(r *WalletReceipts) { r.minConf = n }
}

// WithReceiptsLogger sets the logger.
func WithReceiptsLogger(l *zap.Logger) ReceiptsOption {
	return func(r *WalletReceipts) { r.logger = l }
}

// NewWalletReceipts creates a receiver for payments to wallet.
func NewWalletReceipts(node network.Node, wallet account.Address, opts ...ReceiptsOption) (*WalletReceipts, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: node", ErrNilParam)
	}
	if wallet.IsZero() {
		return nil, fmt.Errorf("%w: receiving wallet", ErrZeroAddress)
	}
	r := &WalletReceipts{node: node, wallet: wallet, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Wallet returns the receiving address.
func (r *WalletReceipts) Wallet() account.Address { return r.wallet }

// Received fetches txid from the node and returns the total value of its
// outputs paying the wallet.
func (r *WalletReceipts) Received(ctx context.Context, txid string) (uint64, error) {
	if r.minConf > 0 {
		st, err := r.node.GetTxStatus(ctx, txid)
		if err != nil {
			return 0, fmt.Errorf("payout: tx status %s: %w", txid, err)
		}
		if st.Confirmations < r.minConf {
			return 0, fmt.Errorf("%w: %s has %d of %d", ErrUnconfirmed, txid, st.Confirmations, r.minConf)
		}
	}

	raw, err := r.node.GetRawTx(ctx, txid)
	if err != nil {
		return 0, fmt.Errorf("payout: get raw tx %s: %w", txid, err)
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: empty raw transaction", ErrInvalidTx)
	}
	tx, err := transaction.NewTransactionFromBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidTx, err)
	}
	if got := tx.TxID().String(); !strings.EqualFold(got, txid) {
		return 0, fmt.Errorf("%w: node returned %s for %s", ErrInvalidTx, got, txid)
	}

	var total uint64
	for _, out := range tx.Outputs {
		if out.LockingScript == nil || !out.LockingScript.IsP2PKH() {
			continue
		}
		pkh, err := out.LockingScript.PublicKeyHash()
		if err != nil || !bytes.Equal(pkh, r.wallet[:]) {
			continue
		}
		if total+out.Satoshis < total {
			return 0, fmt.Errorf("%w: output value overflow", ErrInvalidTx)
		}
		total += out.Satoshis
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoMatchingOutput, txid)
	}
	r.logger.Debug("incoming payment",
		zap.String("txid", txid), zap.Uint64("amount", total))
	return total, nil
}

// MemPayments is an in-memory record of incoming payments used by tests and
// the CLI demo mode.
type MemPayments struct {
	mu       sync.Mutex
	payments map[string]uint64
}

// NewMemPayments creates an empty payment record.
func NewMemPayments() *MemPayments {
	return &MemPayments{payments: make(map[string]uint64)}
}

// Pay records that txid paid amount.
func (m *MemPayments) Pay(txid string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[strings.ToLower(txid)] = amount
}

// Received returns the amount recorded for txid.
func (m *MemPayments) Received(_ context.Context, txid string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	amount, ok := m.payments[strings.ToLower(txid)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPaymentNotFound, txid)
	}
	return amount, nil
}
