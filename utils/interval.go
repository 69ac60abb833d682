package utils

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("end time must be after start time")

// Interval is the half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// NewInterval normalises both bounds to UTC at second precision.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{
		Start: start.UTC().Truncate(time.Second),
		End:   end.UTC().Truncate(time.Second),
	}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

func (iv Interval) Validate() error {
	if iv.Start.IsZero() || iv.End.IsZero() || !iv.End.After(iv.Start) {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether the two ranges share any instant. Ranges that
// only touch (one ends exactly when the other starts) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) Hours() float64 {
	return iv.Duration().Hours()
}

func (iv Interval) String() string {
	return iv.Start.Format(time.RFC3339) + " - " + iv.End.Format(time.RFC3339)
}

// FirstOverlap returns the index of the first interval in set that
// overlaps iv, or -1.
func FirstOverlap(iv Interval, set []Interval) int {
	for i, other := range set {
		if iv.Overlaps(other) {
			return i
		}
	}
	return -1
}

// OverlapClause is Overlaps expressed as a SQL predicate over rows whose
// range is [startCol, endCol).
func (iv Interval) OverlapClause(startCol, endCol string) (string, []any) {
	return startCol + " < ? AND " + endCol + " > ?", []any{iv.End, iv.Start}
}
