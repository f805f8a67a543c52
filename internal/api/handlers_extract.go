package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/titlegest/internal/doctree"
	"github.com/dgallion1/titlegest/internal/parser"
	"github.com/dgallion1/titlegest/internal/pipeline"
	"github.com/dgallion1/titlegest/internal/titles"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	cfg := s.settings.Get()

	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	// Thresholds default to the live config; form fields override per job.
	tc, opts, err := jobSettings(r, cfg.Titles())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if strings.EqualFold(filepath.Ext(filename), ".pdf") && cfg.MaxPages > 0 {
		n, err := pdfPageCount(data)
		if err != nil {
			jsonError(w, "invalid pdf: "+err.Error(), http.StatusBadRequest)
			return
		}
		if n > cfg.MaxPages {
			jsonError(w, fmt.Sprintf("pdf has %d pages, limit is %d", n, cfg.MaxPages), http.StatusRequestEntityTooLarge)
			return
		}
	}

	job := pipeline.NewJob(filename, data, tc, opts)
	if docID := r.FormValue("doc_id"); docID != "" {
		job.DocID = sanitizeFilename(docID)
	}
	job.Force = r.FormValue("force") == "true"

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"doc_id":     job.DocID,
		"status":     pipeline.StatusQueued,
		"poll_url":   fmt.Sprintf("/api/extract/%s/status", job.ID),
		"result_url": fmt.Sprintf("/api/extract/%s/result", job.ID),
	})
}

// jobSettings applies optional form overrides to the configured thresholds
// and builds the parser options.
func jobSettings(r *http.Request, tc titles.Config) (titles.Config, parser.Options, error) {
	opts := parser.DefaultOptions()

	if v := r.FormValue("title_font_size"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return tc, opts, fmt.Errorf("invalid title_font_size: %q", v)
		}
		tc.TitleFontSize = f
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"min_title_length", &tc.MinTitleLength},
		{"min_title_distance", &tc.MinTitleDistance},
		{"start_page", &opts.StartPage},
		{"end_page", &opts.EndPage},
	}
	for _, f := range ints {
		v := r.FormValue(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return tc, opts, fmt.Errorf("invalid %s: %q", f.name, v)
		}
		*f.dst = n
	}
	if opts.EndPage > 0 && opts.StartPage > opts.EndPage {
		return tc, opts, fmt.Errorf("start_page %d is after end_page %d", opts.StartPage, opts.EndPage)
	}
	if err := tc.Validate(); err != nil {
		return tc, opts, err
	}
	return tc, opts, nil
}

func (s *Server) handleExtractStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// handleExtractResult returns the titles of a finished job. Duplicate jobs
// answer with the stored result of the matching document.
func (s *Server) handleExtractResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()

	var res titles.DocumentResult
	switch snap.Status {
	case pipeline.StatusCompleted:
		var ok bool
		if res, ok = job.Result(); !ok {
			jsonError(w, "result unavailable", http.StatusInternalServerError)
			return
		}
	case pipeline.StatusDupSkipped:
		var err error
		if res, err = s.store.GetResult(r.Context(), snap.DocID); err != nil {
			jsonError(w, "failed to load stored result: "+err.Error(), http.StatusInternalServerError)
			return
		}
	case pipeline.StatusFailed:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": snap.ID,
			"status": snap.Status,
			"phase":  snap.Phase,
			"errors": snap.Progress.Errors,
		})
		return
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"job_id": snap.ID,
			"status": snap.Status,
			"error":  "job not finished",
		})
		return
	}

	body := map[string]any{
		"job_id":      snap.ID,
		"doc_id":      snap.DocID,
		"filename":    snap.Filename,
		"status":      snap.Status,
		"title_count": res.TitleCount(),
		"pages":       res.Pages,
	}
	if r.URL.Query().Get("outline") == "true" {
		body["outline"] = doctree.Build(snap.Filename, res)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

var errBadLimit = errors.New("limit must be a positive integer")

func queryLimit(r *http.Request, fallback int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errBadLimit
	}
	return n, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
