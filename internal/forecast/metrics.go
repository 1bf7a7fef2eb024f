package forecast

import (
	"math"

	"github.com/soltixdb/tabcast/internal/utils"
	"gonum.org/v1/gonum/floats"
)

// CalculateMAE calculates Mean Absolute Error
func CalculateMAE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	diff := make([]float64, len(actual))
	floats.SubTo(diff, actual, predicted)
	return floats.Norm(diff, 1) / float64(len(actual))
}

// CalculateRMSE calculates Root Mean Squared Error
func CalculateRMSE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	diff := make([]float64, len(actual))
	floats.SubTo(diff, actual, predicted)
	return math.Sqrt(floats.Dot(diff, diff) / float64(len(actual)))
}

// CalculateMAPE calculates Mean Absolute Percentage Error, skipping zero actuals
func CalculateMAPE(actual, predicted []float64) float64 {
	if len(actual) != len(predicted) || len(actual) == 0 {
		return 0
	}

	sum := 0.0
	count := 0
	for i := range actual {
		if actual[i] != 0 {
			sum += math.Abs((actual[i] - predicted[i]) / actual[i])
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return (sum / float64(count)) * 100
}

// finitePairs keeps the positions where both values are finite.
func finitePairs(actual, predicted []float64) ([]float64, []float64) {
	a := make([]float64, 0, len(actual))
	p := make([]float64, 0, len(actual))
	for i := range actual {
		if utils.IsFinite(actual[i]) && utils.IsFinite(predicted[i]) {
			a = append(a, actual[i])
			p = append(p, predicted[i])
		}
	}
	return a, p
}
