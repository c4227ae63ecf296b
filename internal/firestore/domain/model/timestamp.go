package model

import "time"

// supportedTimestampFormats in order of likelihood
var supportedTimestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimestampParseError reports a string no supported format accepts.
type TimestampParseError struct {
	Input string
}

func (e *TimestampParseError) Error() string {
	return "cannot parse '" + e.Input + "' as timestamp"
}

// ParseTimestamp parses s with the first supported format that accepts it.
func ParseTimestamp(s string) (time.Time, error) {
	for _, format := range supportedTimestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &TimestampParseError{Input: s}
}
