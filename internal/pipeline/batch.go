package pipeline

import (
	"context"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchItem is one image of a batch. Load is called on a worker goroutine.
type BatchItem struct {
	Name string
	Load func() (image.Image, error)
}

// BatchResult is the outcome for one BatchItem.
type BatchResult struct {
	Name   string  `json:"name"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// AnalyzeBatch analyzes items concurrently with at most workers analyses in
// flight (GOMAXPROCS when workers <= 0). Results are in item order. A
// failing item does not stop the others; cancelling ctx does.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, items []BatchItem, workers int) []BatchResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]BatchResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range items {
		results[i].Name = item.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = &StageError{Stage: StageInput, Kind: ErrCanceled, Err: err}
				return nil
			}
			img, err := item.Load()
			if err != nil {
				results[i].Err = &StageError{Stage: StageInput, Kind: ErrInvalidImage, Err: err}
				return nil
			}
			results[i].Result, results[i].Err = a.Analyze(gctx, img)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
