package features

import (
	"fmt"
	"math"
)

// Builder computes feature vectors over a SeriesStore.
type Builder struct {
	store     *SeriesStore
	exogenous []string
	cross     []string
	opts      Options
}

// NewBuilder creates a builder. exogenous lists the input columns in layout
// order; cross lists the series used for pairwise interactions (normally the
// exogenous columns followed by the target).
func NewBuilder(store *SeriesStore, exogenous, cross []string, opts Options) *Builder {
	return &Builder{
		store:     store,
		exogenous: append([]string(nil), exogenous...),
		cross:     append([]string(nil), cross...),
		opts:      opts.normalize(),
	}
}

// Dimension returns the length of every vector this builder produces.
func (b *Builder) Dimension() int {
	return Dimension(len(b.exogenous), b.opts.MaxLag, len(b.cross))
}

// Row builds the feature vector for step t. With isFuture set, the vector
// describes the step after the last observation: exogenous values are read at
// the last observed index and the time index is n.
func (b *Builder) Row(t int, isFuture bool) []float64 {
	n := b.store.Len()
	base := t
	timeIndex := t
	if isFuture {
		base = n - 1
		timeIndex = n
	}

	feats := make([]float64, 0, b.Dimension())

	for _, key := range b.exogenous {
		feats = append(feats, b.store.Value(key, base))
	}

	for _, key := range b.exogenous {
		cur := b.store.Value(key, base)
		for lag := 1; lag <= b.opts.MaxLag; lag++ {
			feats = append(feats, b.store.Value(key, base-lag))
		}
		feats = append(feats, cur-b.store.Value(key, base-1))
		feats = append(feats, b.store.RollingMean(key, base, b.opts.RollingWindow))
	}

	for i := 0; i < len(b.cross); i++ {
		vi := b.store.Value(b.cross[i], base)
		for j := i + 1; j < len(b.cross); j++ {
			vj := b.store.Value(b.cross[j], base)
			feats = append(feats, vi-vj, vi/Guard(vj), vi*vj)
		}
	}

	ti := float64(timeIndex)
	feats = append(feats,
		ti,
		math.Sin(2*math.Pi*ti/DailyPeriod),
		math.Cos(2*math.Pi*ti/DailyPeriod),
		math.Sin(2*math.Pi*ti/WeeklyPeriod),
		math.Cos(2*math.Pi*ti/WeeklyPeriod),
	)

	return feats
}

// Names returns a column name for every position of Row's output.
func (b *Builder) Names() []string {
	names := make([]string, 0, b.Dimension())

	for _, key := range b.exogenous {
		names = append(names, key)
	}

	for _, key := range b.exogenous {
		for lag := 1; lag <= b.opts.MaxLag; lag++ {
			names = append(names, fmt.Sprintf("%s_lag%d", key, lag))
		}
		names = append(names, key+"_diff1")
		names = append(names, fmt.Sprintf("%s_rmean%d", key, b.opts.RollingWindow))
	}

	for i := 0; i < len(b.cross); i++ {
		for j := i + 1; j < len(b.cross); j++ {
			ki, kj := b.cross[i], b.cross[j]
			names = append(names,
				ki+"_minus_"+kj,
				ki+"_over_"+kj,
				ki+"_times_"+kj,
			)
		}
	}

	names = append(names,
		"t",
		fmt.Sprintf("sin_t_%d", DailyPeriod),
		fmt.Sprintf("cos_t_%d", DailyPeriod),
		fmt.Sprintf("sin_t_%d", WeeklyPeriod),
		fmt.Sprintf("cos_t_%d", WeeklyPeriod),
	)

	return names
}
