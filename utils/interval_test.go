package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2030, 1, 1, hour, minute, 0, 0, time.UTC)
}

func iv(sh, sm, eh, em int) Interval {
	return Interval{Start: at(sh, sm), End: at(eh, em)}
}

func TestOverlaps(t *testing.T) {
	base := iv(10, 0, 11, 0)

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{"identical", iv(10, 0, 11, 0), true},
		{"starts inside", iv(10, 30, 11, 30), true},
		{"ends inside", iv(9, 30, 10, 30), true},
		{"contains", iv(9, 0, 12, 0), true},
		{"contained", iv(10, 15, 10, 45), true},
		{"touches end", iv(11, 0, 12, 0), false},
		{"touches start", iv(9, 0, 10, 0), false},
		{"before", iv(8, 0, 9, 0), false},
		{"after", iv(12, 0, 13, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestNewInterval(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	start := time.Date(2030, 1, 1, 17, 0, 0, 500, loc)

	got, err := NewInterval(start, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Start.Location())
	assert.Equal(t, at(10, 0), got.Start)
	assert.Equal(t, 2.0, got.Hours())

	_, err = NewInterval(start, start)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval(start, start.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval(time.Time{}, start)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestFirstOverlap(t *testing.T) {
	set := []Interval{iv(8, 0, 9, 0), iv(10, 0, 11, 0), iv(10, 30, 12, 0)}

	assert.Equal(t, 1, FirstOverlap(iv(10, 45, 11, 15), set))
	assert.Equal(t, -1, FirstOverlap(iv(9, 0, 10, 0), set))
	assert.Equal(t, -1, FirstOverlap(iv(9, 0, 10, 0), nil))
}

func TestOverlapClause(t *testing.T) {
	query, args := iv(10, 0, 11, 0).OverlapClause("start_time", "end_time")
	assert.Equal(t, "start_time < ? AND end_time > ?", query)
	assert.Equal(t, []any{at(11, 0), at(10, 0)}, args)
}
