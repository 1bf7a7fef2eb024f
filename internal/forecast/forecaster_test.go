package forecast

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/soltixdb/tabcast/internal/features"
	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/regressor"
	"github.com/soltixdb/tabcast/internal/table"
)

// meanModel predicts the mean of its training targets for every row.
type meanModel struct {
	mean   float64
	fitted bool
	fitErr error
	out    func(n int, mean float64) []float64
}

func (m *meanModel) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if m.fitErr != nil {
		return m.fitErr
	}
	sum := 0.0
	for _, v := range y {
		sum += v
	}
	m.mean = sum / float64(len(y))
	m.fitted = true
	return nil
}

func (m *meanModel) Predict(ctx context.Context, X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, regressor.ErrNotFitted
	}
	if m.out != nil {
		return m.out(len(X), m.mean), nil
	}
	out := make([]float64, len(X))
	for i := range out {
		out[i] = m.mean
	}
	return out, nil
}

type fakeFactory struct {
	model  *meanModel
	newErr error
	cfg    regressor.Config
}

func (f *fakeFactory) Name() string { return "mean" }

func (f *fakeFactory) New(cfg regressor.Config) (regressor.Model, error) {
	f.cfg = cfg
	if f.newErr != nil {
		return nil, f.newErr
	}
	return f.model, nil
}

func twoRowTable() *table.Table {
	return &table.Table{
		Headers: []string{"a", "target"},
		Rows: []table.Row{
			{"a": "1", "target": "10"},
			{"a": "3", "target": "30"},
		},
	}
}

func newTestForecaster(f regressor.Factory) *Forecaster {
	return New(regressor.NewStaticProvider(f), features.DefaultOptions(), logging.NewNop())
}

func TestTrainAndPredictNext(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{model: &meanModel{}}
	fc := newTestForecaster(factory)

	if fc.State() != StateIdle {
		t.Fatalf("initial state = %v", fc.State())
	}

	tbl := twoRowTable()
	ds, err := features.BuildFromTable(tbl, "target", fc.Options())
	if err != nil {
		t.Fatalf("BuildFromTable failed: %v", err)
	}

	model, err := fc.Train(ctx, ds)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if fc.State() != StateTrained {
		t.Errorf("state after train = %v", fc.State())
	}

	got, err := fc.PredictNext(ctx, tbl, "target", model)
	if err != nil {
		t.Fatalf("PredictNext failed: %v", err)
	}
	if got != 20 {
		t.Errorf("PredictNext = %v, want 20", got)
	}
	if fc.State() != StatePredicted {
		t.Errorf("state after predict = %v", fc.State())
	}
}

func TestTrainUsesFixedPolicy(t *testing.T) {
	factory := &fakeFactory{model: &meanModel{}}
	fc := newTestForecaster(factory)
	ds, _ := features.BuildFromTable(twoRowTable(), "target", fc.Options())

	if _, err := fc.Train(context.Background(), ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	want := regressor.DefaultConfig()
	want.Booster = "mean"
	if factory.cfg != want {
		t.Errorf("factory got %+v, want %+v", factory.cfg, want)
	}
	if fc.Config().Booster != "mean" {
		t.Errorf("Config().Booster = %s", fc.Config().Booster)
	}
}

func TestRetrainFromPredicted(t *testing.T) {
	ctx := context.Background()
	fc := newTestForecaster(&fakeFactory{model: &meanModel{}})
	tbl := twoRowTable()
	ds, _ := features.BuildFromTable(tbl, "target", fc.Options())

	model, err := fc.Train(ctx, ds)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if _, err := fc.PredictNext(ctx, tbl, "target", model); err != nil {
		t.Fatalf("PredictNext failed: %v", err)
	}

	tbl.Append(table.Row{"a": "5", "target": "50"})
	ds, _ = features.BuildFromTable(tbl, "target", fc.Options())
	model, err = fc.Train(ctx, ds)
	if err != nil {
		t.Fatalf("retrain failed: %v", err)
	}
	if fc.State() != StateTrained {
		t.Errorf("state after retrain = %v", fc.State())
	}

	got, err := fc.PredictNext(ctx, tbl, "target", model)
	if err != nil {
		t.Fatalf("PredictNext failed: %v", err)
	}
	if got != 30 {
		t.Errorf("PredictNext = %v, want 30", got)
	}
}

func TestTrainEmptyDataset(t *testing.T) {
	fc := newTestForecaster(&fakeFactory{model: &meanModel{}})
	ds, _ := features.Build(nil, nil, "", "target", fc.Options())

	if _, err := fc.Train(context.Background(), ds); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := fc.Train(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil dataset, got %v", err)
	}
	if fc.State() != StateIdle {
		t.Errorf("state = %v, want idle", fc.State())
	}
}

func TestTrainCapabilityUnavailable(t *testing.T) {
	ds, _ := features.BuildFromTable(twoRowTable(), "target", features.DefaultOptions())

	tests := []struct {
		name     string
		provider *regressor.Provider
	}{
		{"unknown booster", regressor.NewRegistryProvider("nope")},
		{"resolver error", regressor.NewProvider(func(ctx context.Context) (regressor.Factory, error) {
			return nil, errors.New("runtime missing")
		})},
		{"construction error", regressor.NewStaticProvider(&fakeFactory{newErr: errors.New("bad config")})},
		{"nil provider", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := New(tt.provider, features.DefaultOptions(), logging.NewNop())
			_, err := fc.Train(context.Background(), ds)
			if !errors.Is(err, ErrCapabilityUnavailable) {
				t.Errorf("expected ErrCapabilityUnavailable, got %v", err)
			}
			if !errors.Is(err, ErrTrainingFailed) {
				t.Errorf("expected ErrTrainingFailed, got %v", err)
			}
			if fc.State() != StateIdle {
				t.Errorf("state = %v, want idle", fc.State())
			}
		})
	}
}

func TestTrainFitFailure(t *testing.T) {
	fitErr := errors.New("singular matrix")
	fc := newTestForecaster(&fakeFactory{model: &meanModel{fitErr: fitErr}})
	ds, _ := features.BuildFromTable(twoRowTable(), "target", fc.Options())

	_, err := fc.Train(context.Background(), ds)
	if !errors.Is(err, ErrTrainingFailed) {
		t.Errorf("expected ErrTrainingFailed, got %v", err)
	}
	if !errors.Is(err, fitErr) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
	if errors.Is(err, ErrCapabilityUnavailable) {
		t.Errorf("fit failure is not a capability error: %v", err)
	}
	if fc.State() != StateIdle {
		t.Errorf("state = %v, want idle", fc.State())
	}
}

func TestPredictNextInvalidInput(t *testing.T) {
	ctx := context.Background()
	fc := newTestForecaster(&fakeFactory{model: &meanModel{}})
	ds, _ := features.BuildFromTable(twoRowTable(), "target", fc.Options())
	model, _ := fc.Train(ctx, ds)

	if _, err := fc.PredictNext(ctx, &table.Table{}, "target", model); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty table: expected ErrInvalidInput, got %v", err)
	}
	if _, err := fc.PredictNext(ctx, nil, "target", model); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil table: expected ErrInvalidInput, got %v", err)
	}
	if _, err := fc.PredictNext(ctx, twoRowTable(), "target", nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil model: expected ErrInvalidInput, got %v", err)
	}
}

func TestPredictNextShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		out  func(n int, mean float64) []float64
	}{
		{"empty", func(int, float64) []float64 { return []float64{} }},
		{"two values", func(_ int, m float64) []float64 { return []float64{m, m} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fc := newTestForecaster(&fakeFactory{model: &meanModel{out: tt.out}})
			tbl := twoRowTable()
			ds, _ := features.BuildFromTable(tbl, "target", fc.Options())
			model, err := fc.Train(ctx, ds)
			if err != nil {
				t.Fatalf("Train failed: %v", err)
			}

			if _, err := fc.PredictNext(ctx, tbl, "target", model); !errors.Is(err, ErrPredictionShape) {
				t.Errorf("expected ErrPredictionShape, got %v", err)
			}
			if fc.State() != StateTrained {
				t.Errorf("failed predict must not advance state, got %v", fc.State())
			}
		})
	}
}

func TestPredictNextNonFinitePassesThrough(t *testing.T) {
	ctx := context.Background()
	model := &meanModel{out: func(int, float64) []float64 { return []float64{math.NaN()} }}
	fc := newTestForecaster(&fakeFactory{model: model})
	tbl := twoRowTable()
	ds, _ := features.BuildFromTable(tbl, "target", fc.Options())
	if _, err := fc.Train(ctx, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	got, err := fc.PredictNext(ctx, tbl, "target", model)
	if err != nil {
		t.Fatalf("PredictNext failed: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("PredictNext = %v, want NaN", got)
	}
}

func TestPredictNextDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	fc := newTestForecaster(&fakeFactory{model: &meanModel{}})
	tbl := twoRowTable()
	ds, _ := features.BuildFromTable(tbl, "target", fc.Options())
	model, _ := fc.Train(ctx, ds)

	wider := &table.Table{
		Headers: []string{"a", "b", "target"},
		Rows:    []table.Row{{"a": "1", "b": "2", "target": "10"}},
	}
	if _, err := fc.PredictNext(ctx, wider, "target", model); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestPredictNextWithBuiltinBooster(t *testing.T) {
	ctx := context.Background()
	rows := make([]table.Row, 0, 48)
	for i := 0; i < 48; i++ {
		rows = append(rows, table.Row{"load": float64(i % 24), "temp": 20.0, "target": float64(2 * (i % 24))})
	}
	tbl := &table.Table{Headers: []string{"load", "temp", "target"}, Rows: rows}

	fc := New(regressor.NewRegistryProvider(regressor.BoosterLinear), features.DefaultOptions(), logging.NewNop())
	ds, err := features.BuildFromTable(tbl, "target", fc.Options())
	if err != nil {
		t.Fatalf("BuildFromTable failed: %v", err)
	}
	model, err := fc.Train(ctx, ds)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	got, err := fc.PredictNext(ctx, tbl, "target", model)
	if err != nil {
		t.Fatalf("PredictNext failed: %v", err)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("expected a finite forecast, got %v", got)
	}

	report, err := fc.Evaluate(ctx, ds, model)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if report.DataPoints != 48 {
		t.Errorf("DataPoints = %d, want 48", report.DataPoints)
	}
	if report.RMSE > 1 {
		t.Errorf("in-sample RMSE = %v, expected a near-exact linear fit", report.RMSE)
	}
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	fc := newTestForecaster(&fakeFactory{model: &meanModel{}})
	ds, _ := features.BuildFromTable(twoRowTable(), "target", fc.Options())
	model, _ := fc.Train(ctx, ds)

	report, err := fc.Evaluate(ctx, ds, model)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if report.MAE != 10 || report.RMSE != 10 {
		t.Errorf("MAE/RMSE = %v/%v, want 10/10", report.MAE, report.RMSE)
	}
	// |10-20|/10 = 100%, |30-20|/30 = 33.3%
	if math.Abs(report.MAPE-200.0/3) > 1e-9 {
		t.Errorf("MAPE = %v, want %v", report.MAPE, 200.0/3)
	}
	if report.DataPoints != 2 {
		t.Errorf("DataPoints = %d", report.DataPoints)
	}

	if _, err := fc.Evaluate(ctx, ds, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	fc := newTestForecaster(&fakeFactory{model: &meanModel{}})
	ds, _ := features.BuildFromTable(twoRowTable(), "target", fc.Options())
	if _, err := fc.Train(ctx, ds); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	fc.Reset()
	if fc.State() != StateIdle {
		t.Errorf("state after reset = %v, want idle", fc.State())
	}

	model, err := fc.Train(ctx, ds)
	if err != nil {
		t.Fatalf("retrain after reset failed: %v", err)
	}
	if fc.State() != StateTrained || model == nil {
		t.Errorf("state after retrain = %v", fc.State())
	}
}

func TestMetrics(t *testing.T) {
	actual := []float64{1, 2, 3, 0}
	predicted := []float64{2, 2, 1, 1}

	if got := CalculateMAE(actual, predicted); got != 1 {
		t.Errorf("MAE = %v, want 1", got)
	}
	if got := CalculateRMSE(actual, predicted); math.Abs(got-math.Sqrt(1.5)) > 1e-12 {
		t.Errorf("RMSE = %v, want %v", got, math.Sqrt(1.5))
	}
	// zero actual skipped: (1 + 0 + 2/3) / 3
	if got := CalculateMAPE(actual, predicted); math.Abs(got-500.0/9) > 1e-9 {
		t.Errorf("MAPE = %v, want %v", got, 500.0/9)
	}
	if CalculateMAE(nil, nil) != 0 || CalculateRMSE([]float64{1}, nil) != 0 {
		t.Error("mismatched or empty input should give 0")
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		StateIdle:      "idle",
		StateTraining:  "training",
		StateTrained:   "trained",
		StatePredicted: "predicted",
		State(9):       "state(9)",
	}
	for s, w := range want {
		if s.String() != w {
			t.Errorf("%d.String() = %s, want %s", int(s), s.String(), w)
		}
	}
}
