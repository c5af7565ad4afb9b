package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepthUpdateValidator(t *testing.T) {
	v := NewDepthUpdateValidator(NoncePermissive)
	upd := &OrderBookDelta{Nonce: 124}

	// nonce <= lastNonce is already covered by the book
	err := v.IsValidUpd(upd, 124)
	assert.Equal(t, ErrOrderBookUpdateIsOutdated, err, "Error should match")
	assert.True(t, v.IsErrOutdated(err))

	err = v.IsValidUpd(upd, 130)
	assert.True(t, v.IsErrOutdated(err), "older nonce should be outdated")

	// contiguous
	err = v.IsValidUpd(upd, 123)
	assert.Nil(t, err, "Error should be nil")
}

func TestDepthUpdateValidator_OutOfSeq(t *testing.T) {
	v := NewDepthUpdateValidator(NonceStrict)
	upd := &OrderBookDelta{Nonce: 136}

	err := v.IsValidUpd(upd, 122)
	assert.Equal(t, ErrOrderBookUpdateIsOutOfSequence, err, "Error should match")
	assert.True(t, v.IsErrOutOfSequence(err))
	assert.False(t, v.IsErrOutdated(err))
}

func TestDepthUpdateValidator_AppliesGaps(t *testing.T) {
	assert.True(t, NewDepthUpdateValidator(NoncePermissive).AppliesGaps())
	assert.False(t, NewDepthUpdateValidator(NonceStrict).AppliesGaps())
}

func TestDeltaResult_String(t *testing.T) {
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "stale_ignored", StaleIgnored.String())
	assert.Equal(t, "gap_detected", GapDetected.String())
}
