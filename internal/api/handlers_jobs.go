package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/poutila/doxstrux-sub002/internal/parser"
	"github.com/poutila/doxstrux-sub002/internal/pipeline"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	up, code, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	job := pipeline.NewJob(up.filename, up.title, up.data, up.collectors)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": pollURL(job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// batchEntry reports the outcome of one file in a batch submission.
type batchEntry struct {
	Filename string             `json:"filename"`
	JobID    string             `json:"job_id,omitempty"`
	Status   pipeline.JobStatus `json:"status,omitempty"`
	PollURL  string             `json:"poll_url,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func (s *Server) handleBatchJobs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	names := splitNames(r.FormValue("collectors"))

	entries := make([]batchEntry, 0, len(files))
	for _, fh := range files {
		entry := batchEntry{Filename: sanitizeFilename(fh.Filename)}
		data, err := s.readPart(fh, entry.Filename)
		if err != nil {
			entry.Error = err.Error()
			entries = append(entries, entry)
			continue
		}

		job := pipeline.NewJob(entry.Filename, "", data, names)
		entry.JobID = job.ID
		switch err := s.orchestrator.Submit(job); {
		case errors.Is(err, pipeline.ErrQueueFull):
			entry.Error = "queue full, retry later"
		case err != nil:
			entry.Error = err.Error()
		default:
			entry.Status = pipeline.StatusQueued
			entry.PollURL = pollURL(job.ID)
		}
		entries = append(entries, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": entries})
}

// readPart reads one uploaded batch file, enforcing type and size limits.
func (s *Server) readPart(fh *multipart.FileHeader, filename string) ([]byte, error) {
	if !parser.IsSupportedExtension(filename) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, errors.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, s.cfg.MaxUploadBytes)
	}
	return data, nil
}

func pollURL(jobID string) string {
	return fmt.Sprintf("/api/jobs/%s", jobID)
}
