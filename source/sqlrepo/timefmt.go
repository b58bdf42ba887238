package sqlrepo

import "time"

// layout is the text representation used for every timestamp column.
// SQLite has no native timestamp type, so the source stores UTC
// timestamps with a fixed-width nanosecond fraction -- unlike
// time.RFC3339Nano (which trims trailing zeros), a fixed width is
// required here because the extractors compare and ORDER BY these
// strings directly in SQL; a variable-width fraction would make lexical
// order diverge from chronological order.
const layout = "2006-01-02T15:04:05.000000000Z07:00"

func FormatTime(t time.Time) string {
	return t.UTC().Format(layout)
}

// ParseTime parses a stored timestamp. A blank string maps to the zero
// time, which model.*.Marker() treats as "unset" for fallback purposes.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(layout, s)
}

func ParseNullableTime(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	return ParseTime(*s)
}
