package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/poutila/doxstrux-sub002/internal/parser"
	"github.com/poutila/doxstrux-sub002/internal/pipeline"
)

// fileResult is one line of extract output.
type fileResult struct {
	Path   string           `json:"path"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newExtractCommand(a *app) *cobra.Command {
	var (
		jobs  int
		quiet bool
	)
	cmd := &cobra.Command{
		Use:   "extract <glob>...",
		Short: "Extract structure from files matching the given globs",
		Long: `Extract expands each pattern (with ** support), runs the collectors over
every supported file, and writes one JSON object per file to stdout in
path order. Files are processed concurrently; each document is dispatched
on a single goroutine.

Examples:
  doxstrux extract 'docs/**/*.md'
  doxstrux extract --collectors headings,links README.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandGlobs(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no supported files match %v", args)
			}
			ex, err := a.extractor(a.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			var progress io.Writer
			if !quiet {
				progress = cmd.ErrOrStderr()
			}
			failed, err := runExtract(cmd.Context(), ex, paths, a.collectorNames(), jobs, cmd.OutOrStdout(), progress)
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(paths))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "files processed concurrently")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress bar")
	return cmd
}

// expandGlobs returns the sorted, de-duplicated supported files matching
// patterns.
func expandGlobs(patterns []string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if parser.IsSupportedExtension(m) {
				out = append(out, m)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// runExtract processes paths with bounded concurrency and writes results in
// path order. It returns the number of files that failed.
func runExtract(ctx context.Context, ex *pipeline.Extractor, paths, names []string, jobs int, out, progress io.Writer) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription("Extracting"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(progress)
			}),
		)
	}

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, path := range paths {
		g.Go(func() error {
			results[i] = extractFile(gctx, ex, path, names)
			if bar != nil {
				bar.Add(1)
			}
			// Per-file failures are reported, not fatal; only cancellation stops the batch.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if bar != nil {
		bar.Finish()
	}

	enc := json.NewEncoder(out)
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return failed, fmt.Errorf("write result: %w", err)
		}
	}
	return failed, nil
}

func extractFile(ctx context.Context, ex *pipeline.Extractor, path string, names []string) fileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileResult{Path: path, Error: err.Error()}
	}
	doc, err := ex.Parse(data, path)
	if err != nil {
		return fileResult{Path: path, Error: err.Error()}
	}
	res, err := ex.Run(ctx, doc, names)
	if err != nil {
		return fileResult{Path: path, Error: err.Error()}
	}
	return fileResult{Path: path, Result: res}
}
