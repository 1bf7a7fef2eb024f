package regressor

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// linearRidge is the L2 penalty applied to standardized coefficients
const linearRidge = 1e-3

func init() {
	Register(linearFactory{})
}

type linearFactory struct{}

func (linearFactory) Name() string { return BoosterLinear }

func (linearFactory) New(cfg Config) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}
	return &GBLinear{cfg: cfg}, nil
}

// GBLinear is a ridge regression over standardized features, solved in closed
// form through the normal equations. Missing feature values are imputed with
// the training column mean, which standardizes to zero.
type GBLinear struct {
	cfg       Config
	width     int
	intercept float64
	mean      []float64
	scale     []float64
	coef      []float64
}

// Fit solves (ZᵀZ + λI)β = Zᵀ(y - ȳ) on the rows with a finite target.
func (m *GBLinear) Fit(ctx context.Context, X [][]float64, y []float64) error {
	width, err := checkShape(X, y)
	if err != nil {
		return err
	}

	rows := make([]int, 0, len(y))
	ys := make([]float64, 0, len(y))
	for i, v := range y {
		if finite(v) {
			rows = append(rows, i)
			ys = append(ys, v)
		}
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: no finite targets", ErrInvalidShape)
	}

	mean := make([]float64, width)
	scale := make([]float64, width)
	col := make([]float64, 0, len(rows))
	for j := 0; j < width; j++ {
		col = col[:0]
		for _, i := range rows {
			if v := X[i][j]; finite(v) {
				col = append(col, v)
			}
		}
		mean[j], scale[j] = columnStats(col)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	n := len(rows)
	intercept := stat.Mean(ys, nil)
	Z := mat.NewDense(n, width, nil)
	for r, i := range rows {
		for j := 0; j < width; j++ {
			Z.Set(r, j, standardize(X[i][j], mean[j], scale[j]))
		}
	}
	centered := make([]float64, n)
	for r, v := range ys {
		centered[r] = v - intercept
	}
	yv := mat.NewVecDense(n, centered)

	var ZtZ mat.Dense
	ZtZ.Mul(Z.T(), Z)
	for j := 0; j < width; j++ {
		ZtZ.Set(j, j, ZtZ.At(j, j)+linearRidge)
	}
	var Zty mat.VecDense
	Zty.MulVec(Z.T(), yv)

	var beta mat.VecDense
	if err := beta.SolveVec(&ZtZ, &Zty); err != nil {
		return fmt.Errorf("failed to solve normal equations: %w", err)
	}

	coef := make([]float64, width)
	for j := range coef {
		coef[j] = beta.AtVec(j)
	}

	m.width = width
	m.intercept = intercept
	m.mean = mean
	m.scale = scale
	m.coef = coef
	return nil
}

// Predict evaluates the linear model on each row.
func (m *GBLinear) Predict(ctx context.Context, X [][]float64) ([]float64, error) {
	if m.coef == nil {
		return nil, ErrNotFitted
	}
	if err := checkRows(X, m.width); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]float64, len(X))
	for i, row := range X {
		p := m.intercept
		for j, v := range row {
			p += m.coef[j] * standardize(v, m.mean[j], m.scale[j])
		}
		out[i] = p
	}
	return out, nil
}

// Coefficients returns the intercept and per-feature weights on the
// standardized scale.
func (m *GBLinear) Coefficients() (float64, []float64) {
	return m.intercept, append([]float64(nil), m.coef...)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// columnStats returns mean and standard deviation, falling back to a unit
// scale for constant or empty columns.
func columnStats(col []float64) (float64, float64) {
	if len(col) == 0 {
		return 0, 1
	}
	if len(col) == 1 {
		return col[0], 1
	}
	mu, sd := stat.MeanStdDev(col, nil)
	if sd == 0 || !finite(sd) {
		sd = 1
	}
	return mu, sd
}

func standardize(v, mean, scale float64) float64 {
	if !finite(v) {
		return 0
	}
	return (v - mean) / scale
}
