package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/ironsheep/parkscan/internal/imaging"
	"github.com/ironsheep/parkscan/internal/pipeline"
	"github.com/ironsheep/parkscan/internal/report"
)

// analyzeOptions are the flags of "parkscan analyze".
type analyzeOptions struct {
	Overlay string
	CSV     string
	JSON    bool
}

func (o *analyzeOptions) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.Overlay, "overlay", "", "write the annotated image to this PNG file (single image only)")
	fs.StringVar(&o.CSV, "csv", "", "write the summary CSV to this file (single image only)")
	fs.BoolVar(&o.JSON, "json", false, "print full results as JSON")
}

// analyzeOutput is one entry of the --json output.
type analyzeOutput struct {
	Source string           `json:"source"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// runAnalyze analyzes paths and reports to w. It returns the number of
// images that failed.
func runAnalyze(ctx context.Context, a *pipeline.Analyzer, paths []string, workers int, o analyzeOptions, w io.Writer) (int, error) {
	if len(paths) == 0 {
		return 0, errors.New("no images given")
	}
	if len(paths) > 1 && (o.Overlay != "" || o.CSV != "") {
		return 0, errors.New("--overlay and --csv take a single image")
	}

	cache := imaging.NewImageCache()
	items := make([]pipeline.BatchItem, len(paths))
	for i, p := range paths {
		items[i] = pipeline.BatchItem{Name: p, Load: func() (image.Image, error) { return cache.Load(p) }}
	}
	results := a.AnalyzeBatch(ctx, items, workers)

	failed := 0
	outputs := make([]analyzeOutput, len(results))
	for i, r := range results {
		outputs[i] = analyzeOutput{Source: r.Name, Result: r.Result}
		if r.Err != nil {
			failed++
			outputs[i].Error = r.Err.Error()
		}
	}

	if o.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outputs); err != nil {
			return failed, fmt.Errorf("failed to write results: %w", err)
		}
	} else {
		for _, out := range outputs {
			if err := printSummary(w, out); err != nil {
				return failed, err
			}
		}
	}

	if failed > 0 || (o.Overlay == "" && o.CSV == "") {
		return failed, nil
	}
	res := results[0].Result
	if o.CSV != "" {
		if err := writeFile(o.CSV, func(f io.Writer) error { return report.WriteSummaryCSV(f, res.Summary) }); err != nil {
			return failed, err
		}
	}
	if o.Overlay != "" {
		img, err := cache.Load(paths[0])
		if err != nil {
			return failed, err
		}
		out, err := report.RenderOverlay(img, res, report.DefaultStyle())
		if err != nil {
			return failed, err
		}
		if err := writeFile(o.Overlay, func(f io.Writer) error { return png.Encode(f, out) }); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

func printSummary(w io.Writer, out analyzeOutput) error {
	var err error
	switch {
	case out.Error != "":
		_, err = fmt.Fprintf(w, "%s: error: %s\n", out.Source, out.Error)
	default:
		s := out.Result.Summary
		_, err = fmt.Fprintf(w, "%s: %d slots, %d occupied, %d available (%.2f%%)\n",
			out.Source, s.Total, s.Occupied, s.Available, s.OccupancyRatePercent)
		if err == nil && out.Result.Degraded {
			_, err = fmt.Fprintf(w, "  degraded: %s\n", out.Result.DetectorError)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
