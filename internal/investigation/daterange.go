package investigation

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the only accepted input format for dates.
const DateLayout = "2006-01-02"

// wireLayout is a naive ISO-8601 timestamp. The API expects a literal "Z"
// appended to it rather than a real UTC offset.
const wireLayout = "2006-01-02T15:04:05"

// Validation errors. The messages are shown to the user verbatim.
//
//nolint:staticcheck // user-facing text
var (
	ErrBlankDate         = errors.New("Date cannot be blank.")
	ErrInvalidDateFormat = errors.New("Invalid date format. Please use the format YYYY-MM-DD.")
	ErrDateOrder         = errors.New("Start date must be before the end date. Please try again.")
)

// DateRange is an inclusive window of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDate validates a zero-padded YYYY-MM-DD string and returns the date at
// midnight. Surrounding whitespace is ignored, so a whitespace-only answer is
// blank rather than malformed.
func ParseDate(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, ErrBlankDate
	}

	d, err := time.Parse(DateLayout, input)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return d, nil
}

// NewDateRange builds a range and enforces From <= To.
func NewDateRange(from, to time.Time) (DateRange, error) {
	if from.After(to) {
		return DateRange{}, ErrDateOrder
	}
	return DateRange{From: from, To: to}, nil
}

// ParseDateRange parses both bounds and checks their order.
func ParseDateRange(from, to string) (DateRange, error) {
	f, err := ParseDate(from)
	if err != nil {
		return DateRange{}, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(f, t)
}

// WireFrom returns the lower bound in the API's timestamp form.
func (r DateRange) WireFrom() string {
	return FormatWire(r.From)
}

// WireTo returns the upper bound in the API's timestamp form.
func (r DateRange) WireTo() string {
	return FormatWire(r.To)
}

func (r DateRange) String() string {
	return r.From.Format(DateLayout) + ".." + r.To.Format(DateLayout)
}

// FormatWire renders t as midnight of its calendar day, e.g.
// 2018-06-06T00:00:00Z.
func FormatWire(t time.Time) string {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.Format(wireLayout) + "Z"
}
