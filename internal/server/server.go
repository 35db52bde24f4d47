// Package server exposes the build pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"buildsmith/internal/build"
	"buildsmith/internal/checkpoint"
	"buildsmith/internal/orchestrator"
	"buildsmith/internal/store"
)

// Server handles HTTP requests against a single Orchestrator.
type Server struct {
	orch   *orchestrator.Orchestrator
	router chi.Router
}

// New creates a Server with all routes registered.
func New(orch *orchestrator.Orchestrator) *Server {
	s := &Server{orch: orch}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/build", s.handleCreate)
	r.Route("/build/{taskID}", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/approve-features", s.handleApproveFeatures)
		r.Post("/approve-techstack", s.handleApproveTechStack)
		r.Get("/download", s.handleDownload)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type buildRequest struct {
	Query        string `json:"query"`
	ReferenceURL string `json:"reference_url,omitempty"`
}

type approveFeaturesRequest struct {
	Features    []build.Feature   `json:"features,omitempty"`
	DesignSpecs map[string]string `json:"design_specs,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}

type approveTechStackRequest struct {
	TechStack     build.TechStack  `json:"tech_stack,omitempty"`
	FileStructure []build.FileSpec `json:"file_structure,omitempty"`
	AssetManifest []build.Asset    `json:"asset_manifest,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreate starts a new build and runs it to its first suspension point,
// normally the feature approval checkpoint.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	st, err := s.orch.Create(req.Query, req.ReferenceURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	st, err = s.orch.Run(r.Context(), st.TaskID)
	s.writeState(w, http.StatusCreated, st, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.orch.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeState(w, 0, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleApproveFeatures(w http.ResponseWriter, r *http.Request) {
	var req approveFeaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := s.orch.ApproveFeatures(r.Context(), chi.URLParam(r, "taskID"), checkpoint.FeatureApproval{
		Features:    req.Features,
		DesignSpecs: req.DesignSpecs,
		Notes:       req.Notes,
	})
	s.writeState(w, http.StatusOK, st, err)
}

func (s *Server) handleApproveTechStack(w http.ResponseWriter, r *http.Request) {
	var req approveTechStackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := s.orch.ApproveTechStack(r.Context(), chi.URLParam(r, "taskID"), checkpoint.TechStackApproval{
		TechStack:     req.TechStack,
		FileStructure: req.FileStructure,
		AssetManifest: req.AssetManifest,
		Notes:         req.Notes,
	})
	s.writeState(w, http.StatusOK, st, err)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	st, err := s.orch.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeState(w, 0, nil, err)
		return
	}
	if st.ZipFilePath == "" {
		writeError(w, http.StatusConflict, "build has not produced an archive yet")
		return
	}
	if _, err := os.Stat(st.ZipFilePath); err != nil {
		writeError(w, http.StatusNotFound, "archive is missing from disk")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+st.TaskID+`.zip"`)
	http.ServeFile(w, r, st.ZipFilePath)
}

// writeState maps pipeline outcomes to responses. A state with a recorded
// failure is still a successful response; the error taxonomy only changes
// the status code when no state can be returned.
func (s *Server) writeState(w http.ResponseWriter, okStatus int, st *build.State, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, checkpoint.ErrStaleCheckpoint):
		writeError(w, http.StatusConflict, err.Error())
	case st != nil:
		writeJSON(w, okStatus, st)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "no state available")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
