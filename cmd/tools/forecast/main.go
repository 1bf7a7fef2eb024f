// Command forecast trains a model on a CSV or XLSX file and prints the
// in-sample fit and the one-step-ahead forecast.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/soltixdb/tabcast/internal/config"
	"github.com/soltixdb/tabcast/internal/features"
	"github.com/soltixdb/tabcast/internal/forecast"
	"github.com/soltixdb/tabcast/internal/logging"
	"github.com/soltixdb/tabcast/internal/models"
	"github.com/soltixdb/tabcast/internal/regressor"
	"github.com/soltixdb/tabcast/internal/table"
)

func main() {
	// Defaults follow config.yaml when one is found in the usual locations
	defaults := config.LoadOrDefault("")

	file := flag.String("file", "", "Input table (.csv or .xlsx)")
	format := flag.String("format", "", "Input format (csv, xlsx); inferred from the extension when empty")
	target := flag.String("target", "", "Target column (default: first non-datetime column)")
	booster := flag.String("booster", defaults.Model.Booster, "Model capability (gbtree, gblinear)")
	maxLag := flag.Int("max-lag", defaults.Features.MaxLag, "Lag depth per exogenous column")
	window := flag.Int("window", defaults.Features.RollingWindow, "Rolling mean window")
	explain := flag.Bool("explain", false, "Print the feature layout and the next-step feature row")
	featuresOut := flag.String("features-out", "", "Write the feature matrix and target to this CSV file")
	timeout := flag.Duration("timeout", 2*time.Minute, "Training timeout")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	if *file == "" {
		log.Fatal("Error: -file parameter is required")
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := logging.NewWithWriter(os.Stderr, level)

	tbl, err := loadTable(*file, *format)
	if err != nil {
		log.Fatalf("Error reading %s: %v\n", *file, err)
	}
	if tbl.Len() == 0 {
		log.Fatalf("Error: %s has no data rows\n", *file)
	}

	if *target == "" {
		*target = table.GuessTarget(tbl)
	}
	if !tbl.HasHeader(*target) {
		log.Fatalf("Error: target column %q not found (headers: %v)\n", *target, tbl.Headers)
	}

	opts := features.Options{MaxLag: *maxLag, RollingWindow: *window}
	ds, err := features.BuildFromTable(tbl, *target, opts)
	if err != nil {
		log.Fatalf("Error building features: %v\n", err)
	}

	fmt.Printf("Loaded %d rows, %d columns (datetime: %q, target: %q)\n",
		tbl.Len(), len(tbl.Headers), tbl.DatetimeKey, *target)
	fmt.Printf("Features: %d per row, exogenous: %v\n", ds.Dimension(), ds.Exogenous)

	if *explain {
		printLayout(ds)
	}

	if *featuresOut != "" {
		if err := writeFeatures(*featuresOut, ds); err != nil {
			log.Fatalf("Error writing features: %v\n", err)
		}
		fmt.Printf("Wrote feature matrix to %s\n", *featuresOut)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	f := forecast.New(regressor.NewRegistryProvider(*booster), opts, logger)

	start := time.Now()
	model, err := f.Train(ctx, ds)
	if err != nil {
		log.Fatalf("Error training %s: %v\n", *booster, err)
	}
	fmt.Printf("Trained %s in %s\n", f.Config().Booster, time.Since(start).Round(time.Millisecond))

	report, err := f.Evaluate(ctx, ds, model)
	if err != nil {
		log.Fatalf("Error evaluating model: %v\n", err)
	}
	fmt.Printf("In-sample: MAE=%.4f RMSE=%.4f MAPE=%.2f%% (n=%d)\n",
		report.MAE, report.RMSE, report.MAPE, report.DataPoints)

	next, err := f.PredictNext(ctx, tbl, *target, model)
	if err != nil {
		log.Fatalf("Error predicting: %v\n", err)
	}
	if label := models.NonFiniteLabel(next); label != "" {
		fmt.Printf("Forecast (%s, t+1): %s (model returned a non-finite value)\n", *target, label)
		os.Exit(2)
	}
	fmt.Printf("Forecast (%s, t+1): %.6f\n", *target, next)
}

func loadTable(path, formatName string) (*table.Table, error) {
	var (
		format table.Format
		err    error
	)
	if formatName != "" {
		format, err = table.ParseFormat(formatName)
	} else {
		format, err = table.FormatFromFilename(path)
	}
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return table.Load(f, format)
}

func printLayout(ds *features.Dataset) {
	fmt.Println("Feature layout (next-step row):")
	for i, name := range ds.FeatureNames {
		fmt.Printf("  %3d  %-32s %s\n", i, name, formatCell(ds.LastFeatureRow[i]))
	}
}

// writeFeatures writes one CSV row per training row: features then target.
// Non-finite cells are left empty.
func writeFeatures(path string, ds *features.Dataset) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	w := csv.NewWriter(out)
	header := append(append([]string{}, ds.FeatureNames...), ds.Target)
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for t, row := range ds.X {
		for i, v := range row {
			record[i] = csvCell(v)
		}
		record[len(record)-1] = csvCell(ds.Y[t])
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return out.Close()
}

func csvCell(v float64) string {
	if models.NonFiniteLabel(v) != "" {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatCell(v float64) string {
	if label := models.NonFiniteLabel(v); label != "" {
		return label
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
