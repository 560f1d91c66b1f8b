package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/pipeline"
	"github.com/dgallion1/acadwrite/internal/workflow"
)

// submission is the common shape of expand and process requests, whether
// sent as JSON or as a multipart upload.
type submission struct {
	Markdown      string   `json:"markdown"`
	Collection    string   `json:"collection"`
	CitationStyle string   `json:"citation_style"`
	Operations    []string `json:"operations"`

	filename string
}

var draftExtensions = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// readSubmission decodes a JSON body or a multipart form with a "file"
// field. Errors are client errors; the returned status says which.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (*submission, int, error) {
	limit := s.cfg.Server.MaxUploadBytes
	// Extra 1MB for form and JSON overhead.
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return s.readUpload(r, limit)
	}

	var sub submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("request exceeds max size (%d bytes)", limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err)
	}
	if int64(len(sub.Markdown)) > limit {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("markdown exceeds max size (%d bytes)", limit)
	}
	return &sub, http.StatusOK, nil
}

func (s *Server) readUpload(r *http.Request, limit int64) (*submission, int, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !draftExtensions[strings.ToLower(filepath.Ext(filename))] {
		return nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, http.StatusInternalServerError, errors.New("failed to read file")
	}
	if int64(len(data)) > limit {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", limit)
	}

	sub := &submission{
		Markdown:      string(data),
		Collection:    r.FormValue("collection"),
		CitationStyle: r.FormValue("citation_style"),
		filename:      filename,
	}
	for _, op := range strings.Split(r.FormValue("operations"), ",") {
		if op = strings.TrimSpace(op); op != "" {
			sub.Operations = append(sub.Operations, op)
		}
	}
	return sub, http.StatusOK, nil
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	sub, code, err := s.readSubmission(w, r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	if strings.TrimSpace(sub.Markdown) == "" {
		jsonError(w, "markdown is required", http.StatusBadRequest)
		return
	}
	if sub.CitationStyle != "" {
		if _, err := citation.ParseStyle(sub.CitationStyle); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	job := pipeline.NewJob(pipeline.KindExpand, sub.filename, []byte(sub.Markdown))
	job.Collection = sub.Collection
	job.CitationStyle = sub.CitationStyle
	s.submit(w, job)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	sub, code, err := s.readSubmission(w, r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	if strings.TrimSpace(sub.Markdown) == "" {
		jsonError(w, "markdown is required", http.StatusBadRequest)
		return
	}
	if len(sub.Operations) == 0 {
		jsonError(w, "operations is required", http.StatusBadRequest)
		return
	}
	for _, name := range sub.Operations {
		op, err := workflow.ParseDocOperation(name)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if op.RequiresLLM() && s.llm == nil {
			jsonError(w, fmt.Sprintf("%s requires an LLM, none is configured", op), http.StatusBadRequest)
			return
		}
	}

	job := pipeline.NewJob(pipeline.KindProcess, sub.filename, []byte(sub.Markdown))
	job.Collection = sub.Collection
	job.Operations = sub.Operations
	s.submit(w, job)
}

func (s *Server) submit(w http.ResponseWriter, job *pipeline.Job) {
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"kind":     job.Kind,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s/status", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleJobResult returns the rewritten markdown. With ?format=markdown the
// body is the bare document.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	text, details, done := job.Result()
	snap := job.Snapshot()
	if !done {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "job not finished",
			"status": snap.Status,
		})
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, text)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"markdown": text,
		"details":  details,
		"progress": snap.Progress,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
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
