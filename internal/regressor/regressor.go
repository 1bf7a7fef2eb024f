// Package regressor defines the trainable-model capability used by the
// forecaster and ships two native implementations: gradient-boosted regression
// trees ("gbtree") and ridge least squares ("gblinear").
package regressor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrCapabilityUnavailable reports that no usable model factory could be
	// resolved or that the factory refused to construct a model.
	ErrCapabilityUnavailable = errors.New("model capability unavailable")

	// ErrNotFitted is returned by Predict before a successful Fit
	ErrNotFitted = errors.New("model is not fitted")

	// ErrInvalidShape reports a malformed X/y pair
	ErrInvalidShape = errors.New("invalid training data shape")
)

// Model is a trainable regressor handle. A handle is owned by one caller;
// Fit and Predict must not run concurrently on the same handle.
type Model interface {
	// Fit trains the model on rows X and targets y
	Fit(ctx context.Context, X [][]float64, y []float64) error
	// Predict returns one value per row of X
	Predict(ctx context.Context, X [][]float64) ([]float64, error)
}

// Factory constructs models from a configuration record.
type Factory interface {
	// Name returns the booster name the factory serves
	Name() string
	// New builds an unfitted model
	New(cfg Config) (Model, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a factory under its name, replacing any previous one.
func Register(f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[f.Name()] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if f, ok := registry[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: unknown booster %q", ErrCapabilityUnavailable, name)
}

// Names lists registered booster names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkShape validates a training pair and returns the feature width.
func checkShape(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("%w: empty training set", ErrInvalidShape)
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows but %d targets", ErrInvalidShape, len(X), len(y))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("%w: row %d has %d features, expected %d", ErrInvalidShape, i, len(row), width)
		}
	}
	return width, nil
}

// checkRows validates prediction rows against the trained width.
func checkRows(X [][]float64, width int) error {
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, model expects %d", ErrInvalidShape, i, len(row), width)
		}
	}
	return nil
}
