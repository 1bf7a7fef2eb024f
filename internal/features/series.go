package features

import (
	"math"

	"github.com/soltixdb/tabcast/internal/table"
	"github.com/soltixdb/tabcast/internal/utils"
)

// SeriesStore holds one numeric series per column, all of equal length.
// Index access is clamped to the observed range (boundary hold).
type SeriesStore struct {
	series map[string][]float64
	n      int
}

// NewSeriesStore coerces the given columns of rows into float series.
// Missing, empty, unparseable and non-finite cells become NaN.
func NewSeriesStore(rows []table.Row, keys []string) *SeriesStore {
	s := &SeriesStore{
		series: make(map[string][]float64, len(keys)),
		n:      len(rows),
	}
	for _, key := range keys {
		values := make([]float64, len(rows))
		for i, row := range rows {
			values[i] = utils.CoerceFloat(row[key])
		}
		s.series[key] = values
	}
	return s
}

// Len returns the number of observed steps.
func (s *SeriesStore) Len() int {
	return s.n
}

// Has reports whether key has a series.
func (s *SeriesStore) Has(key string) bool {
	_, ok := s.series[key]
	return ok
}

// Series returns a copy of the series for key, or nil.
func (s *SeriesStore) Series(key string) []float64 {
	values, ok := s.series[key]
	if !ok {
		return nil
	}
	return append([]float64(nil), values...)
}

// Value returns series[clamp(t, 0, len-1)]. Unknown keys and empty series yield NaN.
func (s *SeriesStore) Value(key string, t int) float64 {
	values := s.series[key]
	if len(values) == 0 {
		return math.NaN()
	}
	return values[utils.Clamp(t, 0, len(values)-1)]
}

// RollingMean averages the finite values in [max(0, end-window+1), end] where
// end = min(t, len-1). It returns NaN when the window holds no finite value.
func (s *SeriesStore) RollingMean(key string, t, window int) float64 {
	values := s.series[key]
	if len(values) == 0 || window <= 0 {
		return math.NaN()
	}

	end := t
	if end >= len(values) {
		end = len(values) - 1
	}
	start := end - window + 1
	if start < 0 {
		start = 0
	}

	sum := 0.0
	count := 0
	for i := start; i <= end; i++ {
		if utils.IsFinite(values[i]) {
			sum += values[i]
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}
