package domain

import "errors"

var (
	// Caller-input errors. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// The exchange does not offer the operation.
	ErrUnsupported = errors.New("operation is not supported by the exchange")
	// Unknown coin, currency or classification. Callers degrade to an empty result.
	ErrLookupMiss = errors.New("lookup miss")
	// The local book missed updates and waits for the next snapshot.
	ErrStaleBook = errors.New("order book is stale")
)

// TransportError is any failure coming from the exchange gateway: network,
// non-success envelope or a payload that could not be decoded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// IsTransport reports whether err came from the gateway.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
