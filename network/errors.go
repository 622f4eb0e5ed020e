package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not reach the endpoint.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrBroadcastRejected indicates the node rejected the broadcast transaction.
	ErrBroadcastRejected = errors.New("network: broadcast rejected")

	// ErrInvalidResponse indicates a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrMissingConfig indicates an endpoint has no URL configured.
	ErrMissingConfig = errors.New("network: endpoint requires explicit configuration")
)
