package payout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/network"
)

// Caller issues a JSON-RPC call. *network.RPCClient satisfies it.
type Caller interface {
	Call(ctx context.Context, method string, params []interface{}, result interface{}) error
}

var (
	_ Caller          = (*network.RPCClient)(nil)
	_ TokenTransferer = (*TokenGateway)(nil)
)

// TokenGateway moves the payment token through a JSON-RPC token service.
// Custody is the address the engine's token balance is held under.
type TokenGateway struct {
	rpc     Caller
	token   string
	custody account.Address
	logger  *zap.Logger
}

type transferResult struct {
	TxID string `json:"txid"`
}

// NewTokenGateway creates a gateway for the token identified by token.
func NewTokenGateway(rpc Caller, token string, custody account.Address, logger *zap.Logger) (*TokenGateway, error) {
	if rpc == nil {
		return nil, fmt.Errorf("%w: rpc client", ErrNilParam)
	}
	if custody.IsZero() {
		return nil, fmt.Errorf("%w: custody", ErrZeroAddress)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenGateway{rpc: rpc, token: token, custody: custody, logger: logger}, nil
}

// Custody returns the address holding the engine's tokens.
func (g *TokenGateway) Custody() account.Address { return g.custody }

// Transfer pays amount tokens from custody to to.
func (g *TokenGateway) Transfer(ctx context.Context, to account.Address, amount uint64) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	var res transferResult
	params := []interface{}{g.token, g.custody.String(), to.String(), amount}
	if err := g.rpc.Call(ctx, "token_transfer", params, &res); err != nil {
		return g.wrap("token_transfer", err)
	}
	g.logger.Debug("token transfer",
		zap.String("to", to.String()), zap.Uint64("amount", amount), zap.String("txid", res.TxID))
	return nil
}

// TransferFrom pulls amount approved tokens from from to to.
func (g *TokenGateway) TransferFrom(ctx context.Context, from, to account.Address, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	var res transferResult
	params := []interface{}{g.token, g.custody.String(), from.String(), to.String(), amount}
	if err := g.rpc.Call(ctx, "token_transferfrom", params, &res); err != nil {
		return g.wrap("token_transferfrom", err)
	}
	g.logger.Debug("token pull",
		zap.String("from", from.String()), zap.Uint64("amount", amount), zap.String("txid", res.TxID))
	return nil
}

// wrap maps remote refusals onto ErrTokenRejected. Any other failure may
// have happened after the gateway moved the tokens, so it is reported as
// ErrOutcomeUnknown.
func (g *TokenGateway) wrap(method string, err error) error {
	var rpcErr *network.RPCError
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %s: %w", ErrTokenRejected, method, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrOutcomeUnknown, method, err)
}
