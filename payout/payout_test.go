package payout

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/network"
)

func addr(b byte) account.Address {
	var a account.Address
	a[19] = b
	return a
}

// ---------------------------------------------------------------------------
// NativeSender
// ---------------------------------------------------------------------------

func walletUTXO(t *testing.T, key *ec.PrivateKey, txidByte byte, amount uint64) *network.UTXO {
	t.Helper()
	s, err := lockScript(key.PubKey().Hash())
	require.NoError(t, err)
	return &network.UTXO{
		TxID:         strings.Repeat("0", 62) + hex.EncodeToString([]byte{txidByte}),
		Vout:         0,
		Amount:       amount,
		ScriptPubKey: hex.EncodeToString(*s),
	}
}

func TestNativeSenderSend(t *testing.T) {
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)

	var broadcast string
	node := &network.MockNode{
		ListUnspentFn: func(_ context.Context, address string) ([]*network.UTXO, error) {
			assert.NotEmpty(t, address)
			return []*network.UTXO{walletUTXO(t, key, 1, 100_000)}, nil
		},
		BroadcastTxFn: func(_ context.Context, raw string) (string, error) {
			broadcast = raw
			return "feed", nil
		},
	}
	sender, err := NewNativeSender(node, key)
	require.NoError(t, err)

	to := addr(7)
	txid, err := sender.Send(context.Background(), to, 10_000)
	require.NoError(t, err)
	assert.Equal(t, "feed", txid)

	raw, err := hex.DecodeString(broadcast)
	require.NoError(t, err)
	tx, err := transaction.NewTransactionFromBytes(raw)
	require.NoError(t, err)
	require.Len(t, tx.Inputs, 1)
	require.Len(t, tx.Outputs, 2)

	want, err := lockScript(to[:])
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), tx.Outputs[0].Satoshis)
	assert.Equal(t, []byte(*want), []byte(*tx.Outputs[0].LockingScript))

	fee := EstimateFee(EstimateTxSize(1, 2), DefaultFeeRate)
	assert.Equal(t, 100_000-10_000-fee, tx.Outputs[1].Satoshis)
	assert.Equal(t, sender.Wallet(), mustAddr(t, key.PubKey().Hash()))
}

func mustAddr(t *testing.T, b []byte) account.Address {
	t.Helper()
	a, err := account.AddressFromBytes(b)
	require.NoError(t, err)
	return a
}

func TestNativeSenderErrors(t *testing.T) {
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)

	poor := &network.MockNode{
		ListUnspentFn: func(context.Context, string) ([]*network.UTXO, error) {
			return []*network.UTXO{walletUTXO(t, key, 1, 1_000)}, nil
		},
	}
	sender, err := NewNativeSender(poor, key)
	require.NoError(t, err)

	_, err = sender.Send(context.Background(), addr(1), 5_000)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = sender.Send(context.Background(), addr(1), DustLimit-1)
	assert.ErrorIs(t, err, ErrBelowDust)

	err = sender.Transfer(context.Background(), account.ZeroAddress, 10_000)
	assert.ErrorIs(t, err, ErrZeroAddress)

	_, err = NewNativeSender(nil, key)
	assert.ErrorIs(t, err, ErrNilParam)
	_, err = NewNativeSender(poor, nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestNativeSenderBroadcastRejected(t *testing.T) {
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	node := &network.MockNode{
		ListUnspentFn: func(context.Context, string) ([]*network.UTXO, error) {
			return []*network.UTXO{walletUTXO(t, key, 2, 50_000)}, nil
		},
		BroadcastTxFn: func(context.Context, string) (string, error) {
			return "", network.ErrBroadcastRejected
		},
	}
	sender, err := NewNativeSender(node, key)
	require.NoError(t, err)
	err = sender.Transfer(context.Background(), addr(3), 1_000)
	assert.ErrorIs(t, err, network.ErrBroadcastRejected)
	assert.NotErrorIs(t, err, ErrOutcomeUnknown)
}

func TestNativeSenderBroadcastOutcomeUnknown(t *testing.T) {
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	node := &network.MockNode{
		ListUnspentFn: func(context.Context, string) ([]*network.UTXO, error) {
			return []*network.UTXO{walletUTXO(t, key, 2, 50_000)}, nil
		},
		BroadcastTxFn: func(context.Context, string) (string, error) {
			return "", network.ErrConnectionFailed
		},
	}
	sender, err := NewNativeSender(node, key)
	require.NoError(t, err)
	err = sender.Transfer(context.Background(), addr(3), 1_000)
	assert.ErrorIs(t, err, ErrOutcomeUnknown)
	assert.ErrorIs(t, err, network.ErrConnectionFailed)
}

func TestSelectInputsLargestFirst(t *testing.T) {
	utxos := []*network.UTXO{
		{TxID: "a", Amount: 1_000},
		{TxID: "b", Amount: 50_000},
		nil,
		{TxID: "c", Amount: 20_000},
	}
	sel, total, fee, err := selectInputs(utxos, 60_000, DefaultFeeRate)
	require.NoError(t, err)
	require.Len(t, sel, 2)
	assert.Equal(t, "b", sel[0].TxID)
	assert.Equal(t, "c", sel[1].TxID)
	assert.Equal(t, uint64(70_000), total)
	assert.Equal(t, EstimateFee(EstimateTxSize(2, 2), DefaultFeeRate), fee)
}

func TestTxidHashReversesDisplayOrder(t *testing.T) {
	h, err := txidHash(strings.Repeat("0", 62) + "ab")
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), h[0])

	_, err = txidHash("zz")
	assert.ErrorIs(t, err, ErrSigningFailed)
}

func TestEstimateFee(t *testing.T) {
	assert.Equal(t, uint64(1), EstimateFee(1, 1))
	assert.Equal(t, uint64(12), EstimateFee(226, 50))
	assert.Equal(t, EstimateFee(1000, DefaultFeeRate), EstimateFee(1000, 0))
}

// ---------------------------------------------------------------------------
// TokenGateway
// ---------------------------------------------------------------------------

type rpcCall struct {
	Method string
	Params []json.RawMessage
}

func tokenServer(t *testing.T, reject bool) (*httptest.Server, *[]rpcCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []rpcCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64             `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		calls = append(calls, rpcCall{req.Method, req.Params})
		mu.Unlock()
		if reject {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id": req.ID, "result": nil, "error": map[string]interface{}{"code": -32000, "message": "insufficient allowance"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": req.ID, "result": map[string]string{"txid": "t1"}, "error": nil,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTokenGatewayTransfer(t *testing.T) {
	srv, calls := tokenServer(t, false)
	gw, err := NewTokenGateway(network.NewRPCClient(network.RPCConfig{URL: srv.URL}), "RCPT", addr(9), nil)
	require.NoError(t, err)

	require.NoError(t, gw.Transfer(context.Background(), addr(1), 42))
	require.NoError(t, gw.TransferFrom(context.Background(), addr(2), addr(9), 7))

	require.Len(t, *calls, 2)
	assert.Equal(t, "token_transfer", (*calls)[0].Method)
	assert.Len(t, (*calls)[0].Params, 4)
	assert.JSONEq(t, `42`, string((*calls)[0].Params[3]))
	assert.Equal(t, "token_transferfrom", (*calls)[1].Method)
	assert.JSONEq(t, `"`+addr(2).String()+`"`, string((*calls)[1].Params[2]))
}

func TestTokenGatewayRejected(t *testing.T) {
	srv, _ := tokenServer(t, true)
	gw, err := NewTokenGateway(network.NewRPCClient(network.RPCConfig{URL: srv.URL}), "RCPT", addr(9), nil)
	require.NoError(t, err)

	err = gw.TransferFrom(context.Background(), addr(2), addr(9), 7)
	assert.ErrorIs(t, err, ErrTokenRejected)
	assert.Contains(t, err.Error(), "insufficient allowance")
}

func TestTokenGatewayValidation(t *testing.T) {
	_, err := NewTokenGateway(nil, "RCPT", addr(9), nil)
	assert.ErrorIs(t, err, ErrNilParam)

	gw, err := NewTokenGateway(network.NewRPCClient(network.RPCConfig{URL: "http://localhost:1"}), "RCPT", addr(9), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, gw.Transfer(context.Background(), account.ZeroAddress, 1), ErrZeroAddress)
	assert.ErrorIs(t, gw.Transfer(context.Background(), addr(1), 0), ErrZeroAmount)
	err = gw.Transfer(context.Background(), addr(1), 1)
	assert.ErrorIs(t, err, network.ErrConnectionFailed)
	assert.ErrorIs(t, err, ErrOutcomeUnknown)
	assert.NotErrorIs(t, err, ErrTokenRejected)
}

// ---------------------------------------------------------------------------
// MemToken
// ---------------------------------------------------------------------------

func TestMemTokenTransferFrom(t *testing.T) {
	custody, payer := addr(9), addr(1)
	tok := NewMemToken(custody)
	tok.Mint(payer, 100)

	err := tok.TransferFrom(context.Background(), payer, custody, 50)
	assert.ErrorIs(t, err, ErrInsufficientAllowance)

	tok.Approve(payer, custody, 60)
	require.NoError(t, tok.TransferFrom(context.Background(), payer, custody, 50))
	assert.Equal(t, uint64(50), tok.BalanceOf(payer))
	assert.Equal(t, uint64(50), tok.BalanceOf(custody))
	assert.Equal(t, uint64(10), tok.Allowance(payer, custody))

	tok.Approve(payer, custody, 100)
	err = tok.TransferFrom(context.Background(), payer, custody, 60)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(100), tok.Allowance(payer, custody), "failed pull keeps allowance")
}

func TestMemTokenTransfer(t *testing.T) {
	custody := addr(9)
	tok := NewMemToken(custody)
	tok.Mint(custody, 10)

	require.NoError(t, tok.Transfer(context.Background(), addr(1), 4))
	assert.Equal(t, uint64(6), tok.BalanceOf(custody))
	assert.Equal(t, uint64(4), tok.BalanceOf(addr(1)))

	assert.ErrorIs(t, tok.Transfer(context.Background(), addr(1), 7), ErrInsufficientFunds)
	assert.ErrorIs(t, tok.Transfer(context.Background(), addr(1), 0), ErrZeroAmount)
	assert.ErrorIs(t, tok.Transfer(context.Background(), account.ZeroAddress, 1), ErrZeroAddress)
}

func TestMemTokenFailNextAndHook(t *testing.T) {
	custody := addr(9)
	tok := NewMemToken(custody)
	tok.Mint(custody, 10)

	hooked := 0
	tok.OnTransfer = func(context.Context) { hooked++ }

	boom := errors.New("boom")
	tok.FailNext(boom)
	assert.ErrorIs(t, tok.Transfer(context.Background(), addr(1), 1), boom)
	require.NoError(t, tok.Transfer(context.Background(), addr(1), 1))
	assert.Equal(t, 2, hooked)
	assert.Equal(t, uint64(9), tok.BalanceOf(custody))
}

func TestTransfererFunc(t *testing.T) {
	var got uint64
	var tr Transferer = TransfererFunc(func(_ context.Context, _ account.Address, amount uint64) error {
		got = amount
		return nil
	})
	require.NoError(t, tr.Transfer(context.Background(), addr(1), 5))
	assert.Equal(t, uint64(5), got)
}

// ---------------------------------------------------------------------------
// WalletReceipts
// ---------------------------------------------------------------------------

// incomingTx builds a transaction paying each amount to wallet plus one
// output to an unrelated address.
func incomingTx(t *testing.T, wallet account.Address, amounts ...uint64) *transaction.Transaction {
	t.Helper()
	tx := transaction.NewTransaction()
	src, err := txidHash(strings.Repeat("1", 64))
	require.NoError(t, err)
	tx.AddInput(&transaction.TransactionInput{
		SourceTXID:       src,
		SourceTxOutIndex: 0,
		SequenceNumber:   transaction.DefaultSequenceNumber,
	})
	for _, amt := range amounts {
		s, err := lockScript(wallet[:])
		require.NoError(t, err)
		tx.AddOutput(&transaction.TransactionOutput{LockingScript: s, Satoshis: amt})
	}
	other := addr(0x42)
	s, err := lockScript(other[:])
	require.NoError(t, err)
	tx.AddOutput(&transaction.TransactionOutput{LockingScript: s, Satoshis: 99_999})
	return tx
}

func rawTxNode(tx *transaction.Transaction, confirmations int64) *network.MockNode {
	return &network.MockNode{
		GetRawTxFn: func(_ context.Context, txid string) ([]byte, error) {
			if txid != tx.TxID().String() {
				return nil, &network.RPCError{Code: -5, Message: "No such mempool or blockchain transaction"}
			}
			return tx.Bytes(), nil
		},
		GetTxStatusFn: func(context.Context, string) (*network.TxStatus, error) {
			return &network.TxStatus{Confirmations: confirmations}, nil
		},
	}
}

func TestWalletReceiptsSumsWalletOutputs(t *testing.T) {
	wallet := addr(0xC5)
	tx := incomingTx(t, wallet, 700, 300)
	r, err := NewWalletReceipts(rawTxNode(tx, 0), wallet)
	require.NoError(t, err)

	got, err := r.Received(context.Background(), tx.TxID().String())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got)
	assert.Equal(t, wallet, r.Wallet())
}

func TestWalletReceiptsErrors(t *testing.T) {
	wallet := addr(0xC5)
	ctx := context.Background()

	unrelated := incomingTx(t, wallet)
	r, err := NewWalletReceipts(rawTxNode(unrelated, 0), wallet)
	require.NoError(t, err)
	_, err = r.Received(ctx, unrelated.TxID().String())
	assert.ErrorIs(t, err, ErrNoMatchingOutput)

	_, err = r.Received(ctx, strings.Repeat("ab", 32))
	var rpcErr *network.RPCError
	assert.True(t, errors.As(err, &rpcErr))

	// A node answering with a different transaction than asked for.
	paying := incomingTx(t, wallet, 500)
	liar := &network.MockNode{
		GetRawTxFn: func(context.Context, string) ([]byte, error) { return paying.Bytes(), nil },
	}
	r, err = NewWalletReceipts(liar, wallet)
	require.NoError(t, err)
	_, err = r.Received(ctx, strings.Repeat("cd", 32))
	assert.ErrorIs(t, err, ErrInvalidTx)

	garbage := &network.MockNode{
		GetRawTxFn: func(context.Context, string) ([]byte, error) { return []byte{0x01}, nil },
	}
	r, err = NewWalletReceipts(garbage, wallet)
	require.NoError(t, err)
	_, err = r.Received(ctx, strings.Repeat("cd", 32))
	assert.ErrorIs(t, err, ErrInvalidTx)

	_, err = NewWalletReceipts(nil, wallet)
	assert.ErrorIs(t, err, ErrNilParam)
	_, err = NewWalletReceipts(liar, account.ZeroAddress)
	assert.ErrorIs(t, err, ErrZeroAddress)
}

func TestWalletReceiptsMinConfirmations(t *testing.T) {
	wallet := addr(0xC5)
	tx := incomingTx(t, wallet, 800)

	r, err := NewWalletReceipts(rawTxNode(tx, 1), wallet, WithMinConfirmations(2))
	require.NoError(t, err)
	_, err = r.Received(context.Background(), tx.TxID().String())
	assert.ErrorIs(t, err, ErrUnconfirmed)

	r, err = NewWalletReceipts(rawTxNode(tx, 2), wallet, WithMinConfirmations(2))
	require.NoError(t, err)
	got, err := r.Received(context.Background(), tx.TxID().String())
	require.NoError(t, err)
	assert.Equal(t, uint64(800), got)
}

func TestMemPayments(t *testing.T) {
	p := NewMemPayments()
	p.Pay("ABCD", 12)

	got, err := p.Received(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), got)

	_, err = p.Received(context.Background(), "ffff")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
