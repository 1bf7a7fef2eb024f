// Package features turns tabular rows into a fixed-width supervised-learning
// matrix: lags, first differences, rolling means, cross-series interactions and
// cyclical time encodings, plus one extrapolated row for the next unobserved step.
//
// Training rows and the future row are produced by the same Builder, so their
// layout and dimension are identical. The future row reuses the last observed
// exogenous values as a proxy for the unknown next-step inputs. This is a
// deliberate approximation: it suits slowly varying drivers and is wrong for
// inputs that jump between steps.
package features

import (
	"errors"
)

const (
	// DefaultMaxLag is the default number of lag features per exogenous column
	DefaultMaxLag = 3
	// DefaultRollingWindow is the default rolling mean window
	DefaultRollingWindow = 7

	// Epsilon bounds ratio denominators away from zero
	Epsilon = 1e-9

	// DailyPeriod and WeeklyPeriod are the cyclical encoding periods in steps
	DailyPeriod  = 24
	WeeklyPeriod = 168

	// timeFeatureCount is the index plus two sine/cosine pairs
	timeFeatureCount = 5
)

// ErrDimensionMismatch signals a feature vector whose length differs from the
// layout. It is never caused by input data.
var ErrDimensionMismatch = errors.New("feature dimension mismatch")

// Options configures the feature layout.
type Options struct {
	MaxLag        int `mapstructure:"max_lag" json:"max_lag"`
	RollingWindow int `mapstructure:"rolling_window" json:"rolling_window"`
}

// DefaultOptions returns the default feature layout options
func DefaultOptions() Options {
	return Options{
		MaxLag:        DefaultMaxLag,
		RollingWindow: DefaultRollingWindow,
	}
}

// normalize replaces non-positive settings with defaults.
func (o Options) normalize() Options {
	if o.MaxLag <= 0 {
		o.MaxLag = DefaultMaxLag
	}
	if o.RollingWindow <= 0 {
		o.RollingWindow = DefaultRollingWindow
	}
	return o
}

// Dimension returns the feature vector length for a layout. It depends only on
// the number of exogenous columns, the lag depth and the number of series that
// take part in cross interactions.
func Dimension(numExogenous, maxLag, numCross int) int {
	perColumn := 1 + maxLag + 2 // current value, lags, diff, rolling mean
	pairs := numCross * (numCross - 1) / 2
	if numCross < 2 {
		pairs = 0
	}
	return numExogenous*perColumn + 3*pairs + timeFeatureCount
}

// Guard keeps a denominator at least Epsilon away from zero, preserving sign.
// Zero maps to +Epsilon. NaN passes through unchanged.
func Guard(x float64) float64 {
	if x >= Epsilon || x <= -Epsilon {
		return x
	}
	if x >= 0 {
		return Epsilon
	}
	if x < 0 {
		return -Epsilon
	}
	return x
}
