// Package forecast trains a regressor on engineered features and produces the
// one-step-ahead forecast for the row following the last observation.
//
// A Forecaster holds no lock. A model handle must not be fitted while a
// prediction on it is in flight; callers sharing one across goroutines
// serialize access themselves.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soltixdb/tabcast/internal/features"
	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/regressor"
	"github.com/soltixdb/tabcast/internal/table"
)

// State is the forecaster lifecycle position.
type State int

const (
	StateIdle State = iota
	StateTraining
	StateTrained
	StatePredicted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTraining:
		return "training"
	case StateTrained:
		return "trained"
	case StatePredicted:
		return "predicted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Report holds in-sample fit quality over rows with a finite target.
type Report struct {
	MAE        float64 `json:"mae"`
	RMSE       float64 `json:"rmse"`
	MAPE       float64 `json:"mape"`
	DataPoints int     `json:"data_points"`
}

// Forecaster drives train and predict over a model provider.
type Forecaster struct {
	provider *regressor.Provider
	opts     features.Options
	cfg      regressor.Config
	logger   *logging.Logger

	state State
	model regressor.Model
	dim   int
}

// New creates a forecaster. The training policy is regressor.DefaultConfig
// with the booster name taken from the resolved factory.
func New(provider *regressor.Provider, opts features.Options, logger *logging.Logger) *Forecaster {
	if logger == nil {
		logger = logging.Global()
	}
	return &Forecaster{
		provider: provider,
		opts:     opts,
		cfg:      regressor.DefaultConfig(),
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (f *Forecaster) State() State {
	return f.state
}

// Options returns the feature options used to rebuild rows at predict time.
func (f *Forecaster) Options() features.Options {
	return f.opts
}

// Config returns the model configuration used for training.
func (f *Forecaster) Config() regressor.Config {
	return f.cfg
}

// Reset drops the current model and returns to idle. Callers use it when a
// handle returned by Train is discarded.
func (f *Forecaster) Reset() {
	f.state = StateIdle
	f.model = nil
	f.dim = 0
}

// Train fits a fresh model on ds and returns its handle. On failure the
// forecaster goes back to idle and any previous handle is released.
func (f *Forecaster) Train(ctx context.Context, ds *features.Dataset) (regressor.Model, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("%w: no rows to train on", ErrInvalidInput)
	}
	if f.provider == nil {
		return nil, fmt.Errorf("%w: %w: no model provider", ErrTrainingFailed, ErrCapabilityUnavailable)
	}

	f.state = StateTraining
	f.model = nil
	f.dim = 0

	model, err := f.newModel(ctx)
	if err != nil {
		f.state = StateIdle
		return nil, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}

	start := time.Now()
	if err := model.Fit(ctx, ds.X, ds.Y); err != nil {
		f.state = StateIdle
		f.logger.Warn("Model fit failed",
			"booster", f.cfg.Booster,
			"rows", ds.Len(),
			"error", err)
		return nil, fmt.Errorf("%w: %w", ErrTrainingFailed, err)
	}

	f.model = model
	f.dim = ds.Dimension()
	f.state = StateTrained

	f.logger.Info("Model trained",
		"booster", f.cfg.Booster,
		"target", ds.Target,
		"rows", ds.Len(),
		"features", f.dim,
		"duration", time.Since(start))

	return model, nil
}

func (f *Forecaster) newModel(ctx context.Context) (regressor.Model, error) {
	factory, err := f.provider.Factory(ctx)
	if err != nil {
		return nil, err
	}

	cfg := f.cfg
	cfg.Booster = factory.Name()
	model, err := factory.New(cfg)
	if err != nil {
		if errors.Is(err, ErrCapabilityUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: factory %q returned no model", ErrCapabilityUnavailable, factory.Name())
	}
	f.cfg = cfg
	return model, nil
}

// PredictNext rebuilds the next-step feature row from tbl and returns the
// model's scalar prediction. The row is always recomputed because the table
// may have grown since training. A NaN or infinite prediction is returned as
// is, never replaced.
func (f *Forecaster) PredictNext(ctx context.Context, tbl *table.Table, targetKey string, model regressor.Model) (float64, error) {
	if model == nil {
		return 0, fmt.Errorf("%w: no model handle", ErrInvalidInput)
	}
	if tbl == nil || tbl.Len() == 0 {
		return 0, fmt.Errorf("%w: no rows to extrapolate from", ErrInvalidInput)
	}

	ds, err := features.BuildFromTable(tbl, targetKey, f.opts)
	if err != nil {
		return 0, err
	}
	if model == f.model && f.dim != ds.Dimension() {
		return 0, fmt.Errorf("%w: model trained on %d features, rows now produce %d",
			ErrDimensionMismatch, f.dim, ds.Dimension())
	}

	out, err := model.Predict(ctx, [][]float64{ds.LastFeatureRow})
	if err != nil {
		if errors.Is(err, regressor.ErrInvalidShape) {
			return 0, fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
		}
		return 0, fmt.Errorf("predict failed: %w", err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("%w: got %d values, want 1", ErrPredictionShape, len(out))
	}

	if model == f.model {
		f.state = StatePredicted
	}
	return out[0], nil
}

// Evaluate scores the model on its own training rows.
func (f *Forecaster) Evaluate(ctx context.Context, ds *features.Dataset, model regressor.Model) (*Report, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: no model handle", ErrInvalidInput)
	}
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("%w: no rows to evaluate", ErrInvalidInput)
	}

	fitted, err := model.Predict(ctx, ds.X)
	if err != nil {
		return nil, fmt.Errorf("predict failed: %w", err)
	}
	if len(fitted) != ds.Len() {
		return nil, fmt.Errorf("%w: got %d values for %d rows", ErrPredictionShape, len(fitted), ds.Len())
	}

	actual, predicted := finitePairs(ds.Y, fitted)
	return &Report{
		MAE:        CalculateMAE(actual, predicted),
		RMSE:       CalculateRMSE(actual, predicted),
		MAPE:       CalculateMAPE(actual, predicted),
		DataPoints: len(actual),
	}, nil
}
