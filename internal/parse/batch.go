package parse

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/sherlog/internal/model"
)

// Result is the outcome of parsing one path.
type Result struct {
	Path   string
	Source *model.LogSource
	Err    error
}

// ParseFiles parses paths in parallel, at most concurrency at a time, and
// returns one Result per path in input order. Per-file failures are carried in
// the results; only a cancelled ctx makes ParseFiles itself fail.
func (d *Dispatcher) ParseFiles(ctx context.Context, paths []string, concurrency int) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = model.DefaultConcurrency
	}
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := d.ParseFile(path)
			results[i] = Result{Path: path, Source: src, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
