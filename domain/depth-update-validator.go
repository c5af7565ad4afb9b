package domain

import "errors"

var (
	// The update carries a nonce the book already covers. Skip it.
	ErrOrderBookUpdateIsOutdated = errors.New("order book update is outdated")
	// The update skips at least one nonce. The book should be resynced from a snapshot.
	ErrOrderBookUpdateIsOutOfSequence = errors.New("order book update is out of sequence")
)

// DeltaResult is the outcome of OrderBook.ApplyDelta.
type DeltaResult int

const (
	Applied DeltaResult = iota
	StaleIgnored
	GapDetected
)

func (r DeltaResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case StaleIgnored:
		return "stale_ignored"
	case GapDetected:
		return "gap_detected"
	default:
		return "unknown"
	}
}

// NoncePolicy decides what happens to a delta that skips nonces.
type NoncePolicy int

const (
	// Bittrex nonces are monotonic but not guaranteed contiguous: apply the
	// delta, report the gap and let the caller decide on a resync.
	NoncePermissive NoncePolicy = iota
	// Drop the delta and wait for a snapshot.
	NonceStrict
)

type IDepthUpdateValidator interface {
	// if return nil, the update is valid
	IsValidUpd(update *OrderBookDelta, lastNonce int64) error
	IsErrOutOfSequence(err error) bool
	IsErrOutdated(err error) bool
	// AppliesGaps reports whether out of sequence updates still mutate the book.
	AppliesGaps() bool
}

type DepthUpdateValidator struct {
	Policy NoncePolicy
}

func NewDepthUpdateValidator(policy NoncePolicy) *DepthUpdateValidator {
	return &DepthUpdateValidator{Policy: policy}
}

func (v *DepthUpdateValidator) IsValidUpd(update *OrderBookDelta, lastNonce int64) error {
	if update.Nonce <= lastNonce {
		return ErrOrderBookUpdateIsOutdated
	}

	if update.Nonce != lastNonce+1 {
		return ErrOrderBookUpdateIsOutOfSequence
	}

	return nil
}

func (v *DepthUpdateValidator) IsErrOutOfSequence(err error) bool {
	return errors.Is(err, ErrOrderBookUpdateIsOutOfSequence)
}

func (v *DepthUpdateValidator) IsErrOutdated(err error) bool {
	return errors.Is(err, ErrOrderBookUpdateIsOutdated)
}

func (v *DepthUpdateValidator) AppliesGaps() bool {
	return v.Policy == NoncePermissive
}
