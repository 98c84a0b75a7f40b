package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// Worker processes a single document job.
type Worker struct {
	extractor *Extractor
	log       *slog.Logger
}

func NewWorker(ex *Extractor, log *slog.Logger) *Worker {
	return &Worker{extractor: ex, log: log}
}

// Process parses the job's file and runs the requested collectors over it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := w.extractor.Parse(job.FileData(), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.Title != "" {
		doc.Title = job.Title
	}
	job.SetContentHash(ContentHashHex([]byte(doc.Text)))

	// Phase 2: Build the warehouse and dispatch.
	job.SetStatus(StatusExtracting, "extracting")
	res, err := w.extractor.Run(ctx, doc, job.Collectors)
	if err != nil {
		phase := "extracting"
		if errors.Is(err, warehouse.ErrAdmission) {
			phase = "admission"
		}
		log.Error("extraction failed", "phase", phase, "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, phase)
		return
	}

	job.SetResult(res)
	for _, f := range res.Failures {
		job.AddError(fmt.Sprintf("collector %s: %s", f.Collector, f.Err))
	}
	if len(res.Failures) > 0 {
		log.Warn("extraction finished with collector failures", "failures", len(res.Failures))
		job.SetStatus(StatusPartial, "done")
		return
	}
	log.Info("extraction complete", "tokens", res.Tokens, "cached", res.Cached)
	job.SetStatus(StatusCompleted, "done")
}
