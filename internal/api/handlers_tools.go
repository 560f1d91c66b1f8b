package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/rag"
	"github.com/dgallion1/acadwrite/internal/workflow"
)

type contraRequest struct {
	Claim      string `json:"claim"`
	Collection string `json:"collection"`
	Depth      string `json:"depth"`
	Synthesis  *bool  `json:"synthesis"`
	MaxSources int    `json:"max_sources"`
}

// handleContra runs a counterargument analysis synchronously.
func (s *Server) handleContra(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		jsonError(w, "counterargument analysis requires an LLM, none is configured", http.StatusServiceUnavailable)
		return
	}

	var req contraRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Claim = strings.TrimSpace(req.Claim)
	if req.Claim == "" {
		jsonError(w, "claim is required", http.StatusBadRequest)
		return
	}
	if req.Collection == "" {
		req.Collection = s.cfg.FileIntel.Collection
	}
	if req.Collection == "" {
		jsonError(w, "collection is required", http.StatusBadRequest)
		return
	}
	depth, err := workflow.ParseDepth(req.Depth)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	synthesis := req.Synthesis == nil || *req.Synthesis

	gen := workflow.Counterarguments{
		RAG:         s.rag,
		LLM:         s.llm,
		Temperature: s.cfg.LLM.Temperature,
		Log:         s.log,
	}
	report, err := gen.Generate(r.Context(), req.Claim, workflow.CounterOptions{
		Collection:        req.Collection,
		Depth:             depth,
		Synthesis:         synthesis,
		MaxSourcesPerSide: req.MaxSources,
	})
	if err != nil {
		s.log.Error("counterargument analysis failed", "error", err)
		code := http.StatusBadGateway
		if errors.Is(err, rag.ErrCollectionNotFound) {
			code = http.StatusNotFound
		}
		jsonError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report":   report,
		"markdown": workflow.FormatReport(report),
	})
}

type citationsCheckRequest struct {
	Markdown string `json:"markdown"`
	Strict   bool   `json:"strict"`
}

func (s *Server) handleCitationsCheck(w http.ResponseWriter, r *http.Request) {
	var req citationsCheckRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes+1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res := citation.Check(req.Markdown, req.Strict)
	cites := citation.ExtractFromText(req.Markdown)
	if cites == nil {
		cites = []citation.Citation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        res.OK(),
		"result":    res,
		"citations": cites,
	})
}
