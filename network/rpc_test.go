package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers every request with handler(method, params).
func rpcServer(t *testing.T, handler func(method string, params []json.RawMessage) (interface{}, *RPCError)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64             `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]interface{}{"id": req.ID, "result": result, "error": rpcErr}
		if rpcErr != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ---------------------------------------------------------------------------
// Call
// ---------------------------------------------------------------------------

func TestRPCClientCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "testuser", user)
		assert.Equal(t, "testpass", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getblockcount", req.Method)

		_ = json.NewEncoder(w).Encode(rpcResponse{ID: req.ID, Result: json.RawMessage(`100`)})
	}))
	defer server.Close()

	client := NewRPCClient(RPCConfig{URL: server.URL, User: "testuser", Password: "testpass"})
	var height int
	require.NoError(t, client.Call(context.Background(), "getblockcount", nil, &height))
	assert.Equal(t, 100, height)
}

func TestRPCClientRPCError(t *testing.T) {
	srv := rpcServer(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return nil, &RPCError{Code: -5, Message: "No such mempool or blockchain transaction"}
	})

	client := NewRPCClient(RPCConfig{URL: srv.URL})
	err := client.Call(context.Background(), "getrawtransaction", []interface{}{"bad"}, nil)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -5, rpcErr.Code)
	assert.Contains(t, err.Error(), "No such mempool")
}

func TestRPCClientHTTPErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := NewRPCClient(RPCConfig{URL: server.URL}).Call(context.Background(), "x", nil, nil)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestRPCClientConnectionError(t *testing.T) {
	client := NewRPCClient(RPCConfig{URL: "http://localhost:1"})
	var result int
	err := client.Call(context.Background(), "getblockcount", nil, &result)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestRPCClientIDMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rpcResponse{ID: 999, Result: json.RawMessage(`1`)})
	}))
	defer server.Close()

	err := NewRPCClient(RPCConfig{URL: server.URL}).Call(context.Background(), "x", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestRPCClientSequentialIDs(t *testing.T) {
	var ids []int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		ids = append(ids, req.ID)
		_ = json.NewEncoder(w).Encode(rpcResponse{ID: req.ID, Result: json.RawMessage(`0`)})
	}))
	defer server.Close()

	client := NewRPCClient(RPCConfig{URL: server.URL})
	for i := 0; i < 3; i++ {
		var n int
		require.NoError(t, client.Call(context.Background(), "getblockcount", nil, &n))
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

// ---------------------------------------------------------------------------
// Node methods
// ---------------------------------------------------------------------------

func TestListUnspent(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		assert.Equal(t, "listunspent", method)
		require.Len(t, params, 3)
		return []map[string]interface{}{
			{"txid": "aa", "vout": 0, "amount": 0.00012345, "scriptPubKey": "76a9", "address": "1x", "confirmations": 3},
			{"txid": "bb", "vout": 1, "amount": 1.0, "spendable": false},
		}, nil
	})

	utxos, err := NewRPCClient(RPCConfig{URL: srv.URL}).ListUnspent(context.Background(), "1x")
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	assert.Equal(t, uint64(12345), utxos[0].Amount)
	assert.Equal(t, "76a9", utxos[0].ScriptPubKey)
}

func TestBroadcastTx(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		assert.Equal(t, "sendrawtransaction", method)
		return "txid123", nil
	})
	txid, err := NewRPCClient(RPCConfig{URL: srv.URL}).BroadcastTx(context.Background(), "0100")
	require.NoError(t, err)
	assert.Equal(t, "txid123", txid)
}

func TestBroadcastTxRejected(t *testing.T) {
	srv := rpcServer(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return nil, &RPCError{Code: -26, Message: "dust"}
	})
	_, err := NewRPCClient(RPCConfig{URL: srv.URL}).BroadcastTx(context.Background(), "0100")
	assert.ErrorIs(t, err, ErrBroadcastRejected)
	assert.Contains(t, err.Error(), "dust")
}

func TestBroadcastTxTransportFailureIsNotRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewRPCClient(RPCConfig{URL: srv.URL}).BroadcastTx(context.Background(), "0100")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBroadcastRejected)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

func TestGetRawTx(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		assert.Equal(t, "getrawtransaction", method)
		require.Len(t, params, 2)
		assert.JSONEq(t, `"aa11"`, string(params[0]))
		assert.JSONEq(t, `false`, string(params[1]))
		return "0100beef", nil
	})
	raw, err := NewRPCClient(RPCConfig{URL: srv.URL}).GetRawTx(context.Background(), "aa11")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0xbe, 0xef}, raw)
}

func TestGetRawTxErrors(t *testing.T) {
	srv := rpcServer(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return "zz", nil
	})
	_, err := NewRPCClient(RPCConfig{URL: srv.URL}).GetRawTx(context.Background(), "aa11")
	assert.ErrorIs(t, err, ErrInvalidResponse)

	srv = rpcServer(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return nil, &RPCError{Code: -5, Message: "No such mempool or blockchain transaction"}
	})
	_, err = NewRPCClient(RPCConfig{URL: srv.URL}).GetRawTx(context.Background(), "aa11")
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -5, rpcErr.Code)
}

func TestGetTxStatus(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		assert.Equal(t, "getrawtransaction", method)
		assert.JSONEq(t, `true`, string(params[1]))
		return map[string]interface{}{"confirmations": 3, "blockhash": "00ff", "blockheight": 812}, nil
	})
	st, err := NewRPCClient(RPCConfig{URL: srv.URL}).GetTxStatus(context.Background(), "aa11")
	require.NoError(t, err)
	assert.Equal(t, &TxStatus{Confirmations: 3, BlockHash: "00ff", BlockHeight: 812}, st)
}

func TestBtcToSat(t *testing.T) {
	assert.Equal(t, uint64(1), btcToSat(0.00000001))
	assert.Equal(t, uint64(100000000), btcToSat(1))
	assert.Equal(t, uint64(29), btcToSat(0.00000029))
}
