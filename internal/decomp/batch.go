package decomp

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"ncsdec/internal/actions"
	"ncsdec/internal/diag"
)

// FileResult is one file's outcome in a batch run.
type FileResult struct {
	Path  string
	Text  string
	Diags []diag.Diagnostic
	Err   error
}

// Batch decompiles independent files concurrently, one worker per file
// up to the jobs limit. Within a file, work stays serial; results keep
// the input order regardless of completion order.
func Batch(ctx context.Context, paths []string, table *actions.Table, conf Config, jobs int) []FileResult {
	if jobs <= 0 {
		jobs = 1
	}
	results := make([]FileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			results[i].Path = path
			data, err := os.ReadFile(path)
			if err != nil {
				results[i].Err = err
				return nil
			}
			text, diags, err := Decompile(ctx, data, table, conf)
			results[i].Text = text
			results[i].Diags = diags
			results[i].Err = err
			return nil
		})
	}
	// Workers never return errors; failures live in their FileResult.
	_ = g.Wait()
	return results
}
