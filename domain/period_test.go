package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeriodToToken(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{60, "oneMin"},
		{300, "fiveMin"},
		{1800, "thirtyMin"},
		{3600, "hour"},
		{86400, "day"},
		{259200, "threeDay"},
		{604800, "week"},
		{604801, "month"},
		{2419200, "month"},
	}

	for _, tt := range tests {
		token, err := PeriodToToken(tt.seconds)

		assert.NoError(t, err)
		assert.Equal(t, tt.expected, token, "seconds=%d", tt.seconds)
	}
}

func TestPeriodToToken_Invalid(t *testing.T) {
	for _, seconds := range []int{45, 0, -60, 120, 604799} {
		_, err := PeriodToToken(seconds)
		assert.ErrorIs(t, err, ErrInvalidArgument, "seconds=%d", seconds)
	}
}

func TestPeriodFromToken(t *testing.T) {
	for seconds, token := range periodTokens {
		got, err := PeriodFromToken(token)

		assert.NoError(t, err)
		assert.Equal(t, seconds, got)
	}

	month, err := PeriodFromToken("month")
	assert.NoError(t, err)
	assert.Equal(t, 2419200, month)

	_, err = PeriodFromToken("fortnight")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
