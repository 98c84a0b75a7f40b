package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/poutila/doxstrux-sub002/internal/collectors"
	"github.com/poutila/doxstrux-sub002/internal/parser"
	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// upload is one document received from a client.
type upload struct {
	filename   string
	title      string
	collectors []string
	data       []byte
}

// errTooLarge marks uploads over MaxUploadBytes.
var errTooLarge = errors.New("file exceeds max size")

// readUpload accepts either a multipart form with a "file" part or a raw
// body named by the "filename" query parameter.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, int, error) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	var (
		src io.Reader
		up  upload
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
		}
		defer file.Close()
		src = file
		up.filename = header.Filename
		up.title = r.FormValue("title")
		up.collectors = splitNames(r.FormValue("collectors"))
	} else {
		q := r.URL.Query()
		up.filename = q.Get("filename")
		if up.filename == "" {
			return nil, http.StatusBadRequest, errors.New("filename query parameter is required")
		}
		src = r.Body
		up.title = q.Get("title")
	}
	if names := splitNames(r.URL.Query().Get("collectors")); len(names) > 0 {
		up.collectors = names
	}

	up.filename = sanitizeFilename(up.filename)
	if !parser.IsSupportedExtension(up.filename) {
		return nil, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported file type: %s", filepath.Ext(up.filename))
	}

	data, err := io.ReadAll(io.LimitReader(src, s.cfg.MaxUploadBytes+1))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("%w (%d bytes)", errTooLarge, s.cfg.MaxUploadBytes)
		}
		return nil, http.StatusInternalServerError, errors.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("%w (%d bytes)", errTooLarge, s.cfg.MaxUploadBytes)
	}
	up.data = data
	return &up, 0, nil
}

// handleExtract parses and dispatches one document synchronously.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	up, code, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	ex := s.orchestrator.Extractor()
	doc, err := ex.Parse(up.data, up.filename)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	if up.title != "" {
		doc.Title = up.title
	}

	res, err := ex.Run(r.Context(), doc, up.collectors)
	if err != nil {
		s.log.Warn("extract failed", "filename", up.filename, "error", err)
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (s *Server) handleCollectors(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"collectors": collectors.Names(),
		"extensions": supportedExtensions(),
	})
}

// statusFor maps extraction errors onto HTTP status codes.
func statusFor(err error) int {
	var ce *warehouse.CollectorError
	switch {
	case errors.Is(err, parser.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, warehouse.ErrAdmission):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, collectors.ErrUnknownCollector):
		return http.StatusBadRequest
	case errors.As(err, &ce):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func splitNames(v string) []string {
	var out []string
	for name := range strings.SplitSeq(v, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func supportedExtensions() []string {
	exts := make([]string, 0, len(parser.SupportedExtensions))
	for ext := range parser.SupportedExtensions {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
