package features

import (
	"math"
	"reflect"
	"testing"

	"github.com/soltixdb/tabcast/internal/table"
)

func twoRowTable() *table.Table {
	return &table.Table{
		Headers: []string{"a", "target"},
		Rows: []table.Row{
			{"a": "1", "target": "10"},
			{"a": "3", "target": "30"},
		},
	}
}

// approxEqual compares with a tolerance scaled to the operands, so values
// near 1/Epsilon compare by their leading digits
func approxEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= 1e-12*scale
}

func TestDimension(t *testing.T) {
	tests := []struct {
		name                   string
		exog, maxLag, numCross int
		want                   int
	}{
		{"only time features", 0, 3, 0, 5},
		{"single cross series has no pairs", 0, 3, 1, 5},
		{"one exogenous plus target", 1, 3, 2, 14},
		{"two exogenous plus target", 2, 3, 3, 26},
		{"deeper lags", 2, 5, 3, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dimension(tt.exog, tt.maxLag, tt.numCross); got != tt.want {
				t.Errorf("Dimension(%d, %d, %d) = %d, want %d", tt.exog, tt.maxLag, tt.numCross, got, tt.want)
			}
		})
	}
}

func TestGuard(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, Epsilon},
		{1e-12, Epsilon},
		{-1e-12, -Epsilon},
		{Epsilon, Epsilon},
		{-Epsilon, -Epsilon},
		{2.5, 2.5},
		{-4, -4},
	}

	for _, tt := range tests {
		if got := Guard(tt.in); got != tt.want {
			t.Errorf("Guard(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if !math.IsNaN(Guard(math.NaN())) {
		t.Error("Guard(NaN) should stay NaN")
	}
}

func TestSeriesStore_Value_Clamps(t *testing.T) {
	rows := []table.Row{{"a": "1"}, {"a": "2"}, {"a": "3"}}
	s := NewSeriesStore(rows, []string{"a"})

	tests := []struct {
		t    int
		want float64
	}{
		{-5, 1},
		{-1, 1},
		{0, 1},
		{1, 2},
		{2, 3},
		{3, 3},
		{100, 3},
	}
	for _, tt := range tests {
		if got := s.Value("a", tt.t); got != tt.want {
			t.Errorf("Value(a, %d) = %v, want %v", tt.t, got, tt.want)
		}
	}

	if !math.IsNaN(s.Value("missing", 0)) {
		t.Error("unknown key should yield NaN")
	}
}

func TestSeriesStore_CoercesMissing(t *testing.T) {
	rows := []table.Row{{"a": ""}, {"a": nil}, {"a": "x"}, {}, {"a": 4.0}}
	s := NewSeriesStore(rows, []string{"a"})

	series := s.Series("a")
	if len(series) != 5 {
		t.Fatalf("series length = %d, want 5", len(series))
	}
	for i := 0; i < 4; i++ {
		if !math.IsNaN(series[i]) {
			t.Errorf("series[%d] = %v, want NaN", i, series[i])
		}
	}
	if series[4] != 4 {
		t.Errorf("series[4] = %v, want 4", series[4])
	}
}

func TestSeriesStore_RollingMean(t *testing.T) {
	rows := []table.Row{{"a": "1"}, {"a": ""}, {"a": "3"}, {"a": "5"}, {"a": "7"}}
	s := NewSeriesStore(rows, []string{"a"})

	tests := []struct {
		name      string
		t, window int
		want      float64
	}{
		{"window larger than history averages all finite", 4, 50, 4},
		{"skips NaN", 2, 3, 2},
		{"window of one", 3, 1, 5},
		{"index beyond end clamps", 99, 2, 6},
		{"start of series", 0, 7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.RollingMean("a", tt.t, tt.window); !approxEqual(got, tt.want) {
				t.Errorf("RollingMean(a, %d, %d) = %v, want %v", tt.t, tt.window, got, tt.want)
			}
		})
	}

	if !math.IsNaN(s.RollingMean("a", 1, 1)) {
		t.Error("window holding only NaN should yield NaN")
	}
}

func TestBuild_Empty(t *testing.T) {
	ds, err := Build(nil, nil, "datetime", "target", DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(ds.X) != 0 || len(ds.Y) != 0 || len(ds.LastFeatureRow) != 0 {
		t.Errorf("expected empty dataset, got X=%d y=%d last=%d", len(ds.X), len(ds.Y), len(ds.LastFeatureRow))
	}
	if ds.X == nil || ds.Y == nil || ds.LastFeatureRow == nil {
		t.Error("empty dataset slices should be non-nil")
	}
}

func TestBuild_TwoRows(t *testing.T) {
	ds, err := BuildFromTable(twoRowTable(), "target", DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !reflect.DeepEqual(ds.Y, []float64{10, 30}) {
		t.Errorf("y = %v, want [10 30]", ds.Y)
	}
	if len(ds.X) != 2 {
		t.Fatalf("len(X) = %d, want 2", len(ds.X))
	}
	if ds.Dimension() != 14 {
		t.Errorf("dimension = %d, want 14", ds.Dimension())
	}
	if ds.LastFeatureRow[0] != 3 || ds.LastFeatureRow[0] != ds.X[1][0] {
		t.Errorf("future row exogenous base = %v, X[1][0] = %v, want 3", ds.LastFeatureRow[0], ds.X[1][0])
	}

	want0 := []float64{
		1,          // a
		1, 1, 1, 0, // lags, diff
		1,           // rolling mean
		-9, 0.1, 10, // a vs target
		0, 0, 1, 0, 1, // time
	}
	for i, w := range want0 {
		if !approxEqual(ds.X[0][i], w) {
			t.Errorf("X[0][%d] (%s) = %v, want %v", i, ds.FeatureNames[i], ds.X[0][i], w)
		}
	}

	wantLast := []float64{3, 1, 1, 1, 2, 2, -27, 0.1, 90, 2}
	for i, w := range wantLast {
		if !approxEqual(ds.LastFeatureRow[i], w) {
			t.Errorf("last[%d] (%s) = %v, want %v", i, ds.FeatureNames[i], ds.LastFeatureRow[i], w)
		}
	}
	if !approxEqual(ds.LastFeatureRow[10], math.Sin(2*math.Pi*2/24)) {
		t.Errorf("future daily sine = %v", ds.LastFeatureRow[10])
	}
}

func TestBuild_LayoutOrderWithTwoExogenous(t *testing.T) {
	rows := []table.Row{
		{"date": "2024-01-01", "a": 1.0, "b": 10.0, "target": 5.0},
		{"date": "2024-01-02", "a": 2.0, "b": 20.0, "target": 6.0},
		{"date": "2024-01-03", "a": 4.0, "b": 30.0, "target": 7.0},
	}
	opts := Options{MaxLag: 2, RollingWindow: 2}
	ds, err := Build(rows, []string{"date", "a", "b", "target"}, "date", "target", opts)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	wantNames := []string{
		"a", "b",
		"a_lag1", "a_lag2", "a_diff1", "a_rmean2",
		"b_lag1", "b_lag2", "b_diff1", "b_rmean2",
		"a_minus_b", "a_over_b", "a_times_b",
		"a_minus_target", "a_over_target", "a_times_target",
		"b_minus_target", "b_over_target", "b_times_target",
		"t", "sin_t_24", "cos_t_24", "sin_t_168", "cos_t_168",
	}
	if !reflect.DeepEqual(ds.FeatureNames, wantNames) {
		t.Fatalf("names = %v\nwant    %v", ds.FeatureNames, wantNames)
	}
	if !reflect.DeepEqual(ds.Exogenous, []string{"a", "b"}) {
		t.Errorf("exogenous = %v", ds.Exogenous)
	}
	if ds.Dimension() != Dimension(2, 2, 3) || ds.Dimension() != len(wantNames) {
		t.Fatalf("dimension = %d, want %d", ds.Dimension(), len(wantNames))
	}

	// Step 2: a=4, b=30, target=7
	wantX2 := []float64{
		4, 30,
		2, 1, 2, 3,
		20, 10, 10, 25,
		-26, 4.0 / 30, 120,
		-3, 4.0 / 7, 28,
		23, 30.0 / 7, 210,
		2, math.Sin(2 * math.Pi * 2 / 24), math.Cos(2 * math.Pi * 2 / 24),
		math.Sin(2 * math.Pi * 2 / 168), math.Cos(2 * math.Pi * 2 / 168),
	}
	for i, w := range wantX2 {
		if !approxEqual(ds.X[2][i], w) {
			t.Errorf("X[2][%d] (%s) = %v, want %v", i, wantNames[i], ds.X[2][i], w)
		}
	}

	// The future row holds step 2 values and advances only the time block
	for i := 0; i < 19; i++ {
		if !approxEqual(ds.LastFeatureRow[i], wantX2[i]) {
			t.Errorf("last[%d] (%s) = %v, want %v", i, wantNames[i], ds.LastFeatureRow[i], wantX2[i])
		}
	}
	if ds.LastFeatureRow[19] != 3 {
		t.Errorf("future time index = %v, want 3", ds.LastFeatureRow[19])
	}
	if !approxEqual(ds.LastFeatureRow[20], math.Sin(2*math.Pi*3/24)) {
		t.Errorf("future daily sine = %v", ds.LastFeatureRow[20])
	}
}

func TestBuild_ConsistentDimensions(t *testing.T) {
	rows := []table.Row{}
	for i := 0; i < 40; i++ {
		rows = append(rows, table.Row{
			"timestamp": i,
			"a":         float64(i),
			"b":         "",
			"c":         float64(i % 5),
			"target":    float64(2 * i),
		})
	}
	ds, err := Build(rows, []string{"timestamp", "a", "b", "c", "target"}, "timestamp", "target", Options{MaxLag: 4, RollingWindow: 3})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	dim := Dimension(3, 4, 4)
	if len(ds.X) != 40 || len(ds.Y) != 40 {
		t.Fatalf("len(X)=%d len(y)=%d, want 40", len(ds.X), len(ds.Y))
	}
	for i, row := range ds.X {
		if len(row) != dim {
			t.Errorf("X[%d] has %d features, want %d", i, len(row), dim)
		}
	}
	if len(ds.LastFeatureRow) != dim {
		t.Errorf("last row has %d features, want %d", len(ds.LastFeatureRow), dim)
	}
	if len(ds.FeatureNames) != dim {
		t.Errorf("names has %d entries, want %d", len(ds.FeatureNames), dim)
	}
	if !reflect.DeepEqual(ds.Exogenous, []string{"a", "b", "c"}) {
		t.Errorf("exogenous = %v", ds.Exogenous)
	}
}

func TestBuild_SingleRowDiffIsZero(t *testing.T) {
	rows := []table.Row{{"a": "5", "target": "1"}}
	ds, err := Build(rows, []string{"a", "target"}, "", "target", DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// a, lag1..lag3, diff
	for i := 1; i <= 3; i++ {
		if ds.X[0][i] != 5 {
			t.Errorf("lag%d = %v, want 5", i, ds.X[0][i])
		}
	}
	if ds.X[0][4] != 0 {
		t.Errorf("diff = %v, want 0", ds.X[0][4])
	}
	if ds.LastFeatureRow[4] != 0 {
		t.Errorf("future diff = %v, want 0", ds.LastFeatureRow[4])
	}
}

func TestBuild_RatioNeverDividesByZero(t *testing.T) {
	rows := []table.Row{{"a": "2", "target": "0"}, {"a": "0", "target": "-0"}}
	ds, err := Build(rows, []string{"a", "target"}, "", "target", DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// ratio sits after a, 3 lags, diff, rolling mean and the spread
	const ratioIdx = 7
	if ds.FeatureNames[ratioIdx] != "a_over_target" {
		t.Fatalf("unexpected layout: %s", ds.FeatureNames[ratioIdx])
	}
	zero := 0.0
	want := 2 / Guard(zero)
	if got := ds.X[0][ratioIdx]; !approxEqual(got, want) {
		t.Errorf("ratio = %v, want %v", got, want)
	}
	if got := ds.X[1][ratioIdx]; got != 0 {
		t.Errorf("ratio = %v, want 0", got)
	}
	for _, row := range ds.X {
		if math.IsInf(row[ratioIdx], 0) {
			t.Errorf("ratio must stay finite, got %v", row[ratioIdx])
		}
	}
}

func TestBuild_TargetNotInHeaders(t *testing.T) {
	rows := []table.Row{{"a": "1"}, {"a": "2"}}
	ds, err := Build(rows, []string{"a"}, "", "target", DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i, v := range ds.Y {
		if !math.IsNaN(v) {
			t.Errorf("y[%d] = %v, want NaN", i, v)
		}
	}
	if ds.Dimension() != Dimension(1, DefaultMaxLag, 1) {
		t.Errorf("dimension = %d", ds.Dimension())
	}
}

func TestBuild_HeadersFromFirstRow(t *testing.T) {
	rows := []table.Row{{"b": "1", "a": "2", "target": "3"}}
	ds, err := Build(rows, nil, "", "target", DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !reflect.DeepEqual(ds.Exogenous, []string{"a", "b"}) {
		t.Errorf("exogenous = %v, want [a b]", ds.Exogenous)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	tbl := twoRowTable()
	tbl.Append(table.Row{"a": "", "target": "12"}, table.Row{"a": "8", "target": "bad"})

	first, err := BuildFromTable(tbl, "target", DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	second, err := BuildFromTable(tbl, "target", DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !sameFloats(first.LastFeatureRow, second.LastFeatureRow) {
		t.Error("future rows differ between builds")
	}
	for i := range first.X {
		if !sameFloats(first.X[i], second.X[i]) {
			t.Errorf("X[%d] differs between builds", i)
		}
	}
	if !sameFloats(first.Y, second.Y) {
		t.Error("y differs between builds")
	}
}

func TestBuild_DatetimeExcluded(t *testing.T) {
	rows := []table.Row{{"datetime": "t0", "a": "1", "target": "10"}}
	ds, err := Build(rows, []string{"datetime", "a", "target"}, "datetime", "target", DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, name := range ds.FeatureNames {
		if name == "datetime" {
			t.Error("datetime column must not become a feature")
		}
	}
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{MaxLag: -1, RollingWindow: 0}.normalize()
	if o != DefaultOptions() {
		t.Errorf("normalize = %+v, want defaults", o)
	}
}

// sameFloats compares slices treating NaN as equal to NaN.
func sameFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.IsNaN(a[i]) && math.IsNaN(b[i]) {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func BenchmarkBuild(b *testing.B) {
	rows := make([]table.Row, 500)
	for i := range rows {
		rows[i] = table.Row{"a": float64(i), "b": float64(i * 2), "c": float64(i % 7), "target": float64(i)}
	}
	headers := []string{"a", "b", "c", "target"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Build(rows, headers, "", "target", DefaultOptions())
	}
}
