package domain

import (
	"fmt"
	"time"
)

const (
	// WatermarkLayout is the stored watermark format. The numeric offset is
	// always written, so UTC renders as +00:00 rather than Z.
	WatermarkLayout = "2006-01-02T15:04:05-07:00"

	// RecordTimeLayout is the timestamp format of activity records.
	RecordTimeLayout = "2006-01-02 15:04:05"

	// RequestDateLayout is the filter-input format accepted by the API's date parameter.
	RequestDateLayout = "2006-01-02 15:04"

	// naiveWatermarkLayout accepts watermarks written without an offset.
	naiveWatermarkLayout = "2006-01-02T15:04:05"
)

// Watermark marks the latest delivered bookmark value for a (stream, parent) pair.
// Records at or before it have already been emitted. The zero value means no
// state exists yet.
type Watermark string

// NewWatermark formats t as a watermark with an explicit offset.
func NewWatermark(t time.Time) Watermark {
	return Watermark(t.Format(WatermarkLayout))
}

// WatermarkFromRecordTime converts a record's bookmark value into a watermark,
// appending +00:00 because the API returns timestamps without an offset.
func WatermarkFromRecordTime(s string) (Watermark, error) {
	t, err := ParseRecordTime(s)
	if err != nil {
		return "", err
	}
	return NewWatermark(t), nil
}

// IsZero reports whether no watermark has been recorded.
func (w Watermark) IsZero() bool {
	return w == ""
}

// String returns the stored representation.
func (w Watermark) String() string {
	return string(w)
}

// Time parses the watermark. A zero watermark returns the zero time.
func (w Watermark) Time() (time.Time, error) {
	if w.IsZero() {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, string(w)); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(naiveWatermarkLayout, string(w), time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWatermark, string(w))
}

// RequestDate returns the watermark in the API's date filter format, dropping
// seconds and offset. A zero watermark returns an empty string.
func (w Watermark) RequestDate() (string, error) {
	if w.IsZero() {
		return "", nil
	}
	t, err := w.Time()
	if err != nil {
		return "", err
	}
	return t.Format(RequestDateLayout), nil
}

// Advance returns the later of w and t. The watermark never moves backward.
func (w Watermark) Advance(t time.Time) (Watermark, error) {
	if t.IsZero() {
		return w, nil
	}
	current, err := w.Time()
	if err != nil {
		return w, err
	}
	if w.IsZero() || t.After(current) {
		return NewWatermark(t), nil
	}
	return w, nil
}

// ParseRecordTime parses a record's bookmark value. Record timestamps carry no
// offset and are read as UTC.
func ParseRecordTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(RecordTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	return t, nil
}
