package domain

import "fmt"

const (
	PeriodOneMinute   = 60
	PeriodFiveMinutes = 300
	PeriodThirtyMin   = 1800
	PeriodHour        = 3600
	PeriodDay         = 86400
	PeriodThreeDays   = 259200
	PeriodWeek        = 604800
	PeriodMonth       = 2419200
)

var periodTokens = map[int]string{
	PeriodOneMinute:   "oneMin",
	PeriodFiveMinutes: "fiveMin",
	PeriodThirtyMin:   "thirtyMin",
	PeriodHour:        "hour",
	PeriodDay:         "day",
	PeriodThreeDays:   "threeDay",
	PeriodWeek:        "week",
}

// PeriodToToken maps a candle period in seconds to the exchange tick
// interval. Anything longer than a week is a month.
func PeriodToToken(seconds int) (string, error) {
	if token, ok := periodTokens[seconds]; ok {
		return token, nil
	}
	if seconds > PeriodWeek {
		return "month", nil
	}

	return "", fmt.Errorf(
		"period %d: must be one of 60, 300, 1800, 3600, 86400, 259200, 604800 or 2419200: %w",
		seconds, ErrInvalidArgument,
	)
}

func PeriodFromToken(token string) (int, error) {
	if token == "month" {
		return PeriodMonth, nil
	}
	for seconds, t := range periodTokens {
		if t == token {
			return seconds, nil
		}
	}

	return 0, fmt.Errorf("unknown tick interval %q: %w", token, ErrInvalidArgument)
}
