package forecast

import (
	"errors"

	"github.com/soltixdb/tabcast/internal/features"
	"github.com/soltixdb/tabcast/internal/regressor"
)

var (
	// ErrInvalidInput reports rows that give nothing to train on or
	// extrapolate from.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch reports a feature vector whose length differs from
	// the layout the model was trained on.
	ErrDimensionMismatch = features.ErrDimensionMismatch

	// ErrCapabilityUnavailable reports that no model could be constructed.
	ErrCapabilityUnavailable = regressor.ErrCapabilityUnavailable

	// ErrTrainingFailed reports that a model could not be produced. Construction
	// failures match both this and ErrCapabilityUnavailable.
	ErrTrainingFailed = errors.New("training failed")

	// ErrPredictionShape reports a prediction that is not exactly one value.
	ErrPredictionShape = errors.New("prediction result has unexpected shape")
)
