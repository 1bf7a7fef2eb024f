package features

import (
	"fmt"
	"sort"

	"github.com/soltixdb/tabcast/internal/table"
	"github.com/soltixdb/tabcast/internal/utils"
)

// Dataset is the supervised-learning view of a table.
type Dataset struct {
	X              [][]float64 `json:"x"`
	Y              []float64   `json:"y"`
	LastFeatureRow []float64   `json:"last_feature_row"`
	FeatureNames   []string    `json:"feature_names"`
	Exogenous      []string    `json:"exogenous"`
	Target         string      `json:"target"`
}

// Len returns the number of training rows.
func (d *Dataset) Len() int {
	return len(d.X)
}

// Dimension returns the feature vector length, 0 for an empty dataset.
func (d *Dataset) Dimension() int {
	return len(d.LastFeatureRow)
}

// BuildFromTable is Build over a parsed table.
func BuildFromTable(t *table.Table, targetKey string, opts Options) (*Dataset, error) {
	if t == nil {
		return Build(nil, nil, "", targetKey, opts)
	}
	return Build(t.Rows, t.Headers, t.DatetimeKey, targetKey, opts)
}

// Build assembles X, y and the next-step feature row.
//
// Exogenous columns are the headers other than the datetime key and the target.
// When headers is empty the keys of the first row are used in sorted order.
// An empty input yields an empty dataset and no error.
func Build(rows []table.Row, headers []string, datetimeKey, targetKey string, opts Options) (*Dataset, error) {
	opts = opts.normalize()

	if len(rows) == 0 {
		return &Dataset{
			X:              [][]float64{},
			Y:              []float64{},
			LastFeatureRow: []float64{},
			FeatureNames:   []string{},
			Exogenous:      []string{},
			Target:         targetKey,
		}, nil
	}

	if len(headers) == 0 {
		headers = sortedKeys(rows[0])
	}

	exogenous := make([]string, 0, len(headers))
	targetIsHeader := false
	for _, h := range headers {
		if h == targetKey && targetKey != "" {
			targetIsHeader = true
			continue
		}
		if h == datetimeKey && datetimeKey != "" {
			continue
		}
		exogenous = append(exogenous, h)
	}

	seriesKeys := append([]string(nil), exogenous...)
	if targetIsHeader {
		seriesKeys = append(seriesKeys, targetKey)
	}

	store := NewSeriesStore(rows, seriesKeys)
	builder := NewBuilder(store, exogenous, seriesKeys, opts)
	dim := builder.Dimension()
	n := len(rows)

	X := make([][]float64, n)
	y := make([]float64, n)
	for t := 0; t < n; t++ {
		row := builder.Row(t, false)
		if len(row) != dim {
			return nil, fmt.Errorf("%w: row %d has %d features, layout has %d", ErrDimensionMismatch, t, len(row), dim)
		}
		X[t] = row

		if targetIsHeader {
			y[t] = store.Value(targetKey, t)
		} else {
			y[t] = utils.CoerceFloat(rows[t][targetKey])
		}
	}

	last := builder.Row(n, true)
	if len(last) != dim {
		return nil, fmt.Errorf("%w: future row has %d features, layout has %d", ErrDimensionMismatch, len(last), dim)
	}

	return &Dataset{
		X:              X,
		Y:              y,
		LastFeatureRow: last,
		FeatureNames:   builder.Names(),
		Exogenous:      exogenous,
		Target:         targetKey,
	}, nil
}

func sortedKeys(row table.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
