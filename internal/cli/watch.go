package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/poutila/doxstrux-sub002/internal/parser"
	"github.com/poutila/doxstrux-sub002/internal/pipeline"
)

func newWatchCommand(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-extract supported files under a directory as they change",
		Long: `Watch monitors a directory tree and writes one JSON object per changed
supported file to stdout, using the same format as extract. Bursts of
events are coalesced for the debounce period. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := a.logger(cmd.ErrOrStderr())
			ex, err := a.extractor(log)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, ex, args[0], a.collectorNames(), debounce, cmd.OutOrStdout(), log)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "quiet period before processing changes")
	return cmd
}

// runWatch blocks until ctx is done.
func runWatch(ctx context.Context, ex *pipeline.Extractor, dir string, names []string, debounce time.Duration, out io.Writer, log *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := addTree(w, dir); err != nil {
		return err
	}
	log.Info("watching", "dir", dir)

	enc := json.NewEncoder(out)
	pending := make(map[string]bool)
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(w, event.Name); err != nil {
						log.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 || !parser.IsSupportedExtension(event.Name) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(debounce)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)
			for _, p := range paths {
				// Renamed-away and deleted files show up here too.
				if _, err := os.Stat(p); err != nil {
					continue
				}
				if err := enc.Encode(extractFile(ctx, ex, p, names)); err != nil {
					return fmt.Errorf("write result: %w", err)
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", "error", err)
		}
	}
}

// addTree watches dir and every directory below it, skipping hidden ones.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && len(d.Name()) > 1 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
