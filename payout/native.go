package payout

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"go.uber.org/zap"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/network"
)

const (
	// DustLimit is the minimum P2PKH output value in satoshis.
	DustLimit = uint64(546)

	// DefaultFeeRate is the default fee rate in sat/KB.
	DefaultFeeRate = uint64(50)
)

// Compile-time interface check.
var _ Transferer = (*NativeSender)(nil)

// NativeSender pays native claims from a hot wallet. Each transfer spends
// the wallet's outputs into one P2PKH payment plus change back to the wallet.
type NativeSender struct {
	node    network.Node
	key     *ec.PrivateKey
	feeRate uint64
	mainnet bool
	logger  *zap.Logger
}

// NativeOption configures a NativeSender.
type NativeOption func(*NativeSender)

// WithFeeRate sets the fee rate in sat/KB.
func WithFeeRate(rate uint64) NativeOption {
	return func(s *NativeSender) { s.feeRate = rate }
}

// WithMainnet selects the address encoding used when querying the node.
func WithMainnet(mainnet bool) NativeOption {
	return func(s *NativeSender) { s.mainnet = mainnet }
}

// WithNativeLogger sets the logger.
func WithNativeLogger(l *zap.Logger) NativeOption {
	return func(s *NativeSender) { s.logger = l }
}

// NewNativeSender creates a sender spending outputs locked to key.
func NewNativeSender(node network.Node, key *ec.PrivateKey, opts ...NativeOption) (*NativeSender, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: node", ErrNilParam)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilParam)
	}
	s := &NativeSender{
		node:    node,
		key:     key,
		feeRate: DefaultFeeRate,
		mainnet: true,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Wallet returns the hot wallet's address.
func (s *NativeSender) Wallet() account.Address {
	a, _ := account.AddressFromBytes(s.key.PubKey().Hash())
	return a
}

// Transfer implements Transferer.
func (s *NativeSender) Transfer(ctx context.Context, to account.Address, amount uint64) error {
	_, err := s.Send(ctx, to, amount)
	return err
}

// Send builds, signs and broadcasts a payout of amount satoshis to to and
// returns the broadcast txid.
func (s *NativeSender) Send(ctx context.Context, to account.Address, amount uint64) (string, error) {
	if to.IsZero() {
		return "", ErrZeroAddress
	}
	if amount < DustLimit {
		return "", fmt.Errorf("%w: %d < %d", ErrBelowDust, amount, DustLimit)
	}

	walletAddr, err := script.NewAddressFromPublicKey(s.key.PubKey(), s.mainnet)
	if err != nil {
		return "", fmt.Errorf("%w: wallet address: %w", ErrSigningFailed, err)
	}
	utxos, err := s.node.ListUnspent(ctx, walletAddr.AddressString)
	if err != nil {
		return "", fmt.Errorf("payout: list unspent: %w", err)
	}

	selected, total, fee, err := selectInputs(utxos, amount, s.feeRate)
	if err != nil {
		return "", err
	}

	rawHex, err := s.build(selected, total, fee, to, amount)
	if err != nil {
		return "", err
	}

	txid, err := s.node.BroadcastTx(ctx, rawHex)
	if err != nil {
		if errors.Is(err, network.ErrBroadcastRejected) {
			return "", err
		}
		return "", fmt.Errorf("%w: broadcast: %w", ErrOutcomeUnknown, err)
	}
	s.logger.Info("native payout broadcast",
		zap.String("to", to.String()),
		zap.Uint64("amount", amount),
		zap.Uint64("fee", fee),
		zap.Int("inputs", len(selected)),
		zap.String("txid", txid))
	return txid, nil
}

func (s *NativeSender) build(utxos []*network.UTXO, total, fee uint64, to account.Address, amount uint64) (string, error) {
	tx := transaction.NewTransaction()

	for _, u := range utxos {
		h, err := txidHash(u.TxID)
		if err != nil {
			return "", err
		}
		tx.AddInput(&transaction.TransactionInput{
			SourceTXID:       h,
			SourceTxOutIndex: u.Vout,
			SequenceNumber:   transaction.DefaultSequenceNumber,
		})
	}

	payScript, err := lockScript(to[:])
	if err != nil {
		return "", err
	}
	tx.AddOutput(&transaction.TransactionOutput{
		LockingScript: payScript,
		Satoshis:      amount,
	})

	// Change at or below dust is left to the miner.
	if change := total - amount - fee; change > DustLimit {
		changeScript, err := lockScript(s.key.PubKey().Hash())
		if err != nil {
			return "", err
		}
		tx.AddOutput(&transaction.TransactionOutput{
			LockingScript: changeScript,
			Satoshis:      change,
		})
	}

	for i, u := range utxos {
		raw, err := hex.DecodeString(u.ScriptPubKey)
		if err != nil {
			return "", fmt.Errorf("%w: input %d script: %w", ErrSigningFailed, i, err)
		}
		tx.Inputs[i].SetSourceTxOutput(&transaction.TransactionOutput{
			Satoshis:      u.Amount,
			LockingScript: script.NewFromBytes(raw),
		})
		unlocker, err := p2pkh.Unlock(s.key, nil)
		if err != nil {
			return "", fmt.Errorf("%w: input %d unlocker: %w", ErrSigningFailed, i, err)
		}
		tx.Inputs[i].UnlockingScriptTemplate = unlocker
	}

	if err := tx.Sign(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return tx.Hex(), nil
}

// selectInputs picks the largest outputs first until amount plus the fee for
// the resulting transaction (payment + change) is covered.
func selectInputs(utxos []*network.UTXO, amount, feeRate uint64) ([]*network.UTXO, uint64, uint64, error) {
	sorted := make([]*network.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u != nil && u.Amount > 0 {
			sorted = append(sorted, u)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount > sorted[j].Amount })

	var total uint64
	for i, u := range sorted {
		total += u.Amount
		fee := EstimateFee(EstimateTxSize(i+1, 2), feeRate)
		if total >= amount+fee {
			return sorted[:i+1], total, fee, nil
		}
	}
	need := amount + EstimateFee(EstimateTxSize(len(sorted), 2), feeRate)
	return nil, 0, 0, fmt.Errorf("%w: have %d satoshis, need %d", ErrInsufficientFunds, total, need)
}

// EstimateTxSize estimates the size in bytes of a P2PKH-only transaction.
func EstimateTxSize(numInputs, numOutputs int) int {
	// version + locktime + varint counts, ~148 per signed input, 34 per output.
	return 10 + numInputs*148 + numOutputs*34
}

// EstimateFee returns ceil(size * feeRate / 1000).
func EstimateFee(txSizeBytes int, feeRate uint64) uint64 {
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	return (uint64(txSizeBytes)*feeRate + 999) / 1000
}

// txidHash converts a node-reported txid (display hex) into a chainhash.
func txidHash(txid string) (*chainhash.Hash, error) {
	b, err := hex.DecodeString(txid)
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("%w: invalid txid %q", ErrSigningFailed, txid)
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	h, err := chainhash.NewHash(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return h, nil
}

func lockScript(pkh []byte) (*script.Script, error) {
	addr, err := script.NewAddressFromPublicKeyHash(pkh, true)
	if err != nil {
		return nil, fmt.Errorf("%w: address from hash: %w", ErrSigningFailed, err)
	}
	s, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: P2PKH lock: %w", ErrSigningFailed, err)
	}
	return s, nil
}
