// Package webui exposes a JSON API for submitting and inspecting runs.
// It is the contract the out-of-scope interactive scrubber/renderer is
// defined to consume, not a renderer itself.
package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eqsat/eqsat/internal/repository"
	"github.com/eqsat/eqsat/internal/storage"
	"github.com/eqsat/eqsat/pkg/model"
	"github.com/eqsat/eqsat/pkg/utils"
)

// Server is the JSON API server fronting presets and runs.
type Server struct {
	port    int
	logger  utils.Logger
	repos   *repository.Repositories
	storage storage.Storage
	server  *http.Server
}

// NewServer creates a new web UI server.
func NewServer(port int, repos *repository.Repositories, store storage.Storage, logger utils.Logger) *Server {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	return &Server{
		port:    port,
		logger:  logger,
		repos:   repos,
		storage: store,
	}
}

// Start starts the web server. Blocks until the server stops or errors.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/presets/", s.handlePresetByID)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRunByID)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("Starting web API at http://localhost:%d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handlePresets handles GET /api/presets (list) and POST /api/presets (create).
func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		presets, err := s.repos.Preset.ListPresets(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, presets)
	case http.MethodPost:
		s.createPreset(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

type createPresetRequest struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Preset      model.Preset `json:"preset"`
}

func (s *Server) createPreset(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req createPresetRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	rec := model.PresetRecord{
		ID:          req.ID,
		Label:       req.Label,
		Description: req.Description,
		Preset:      req.Preset,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.repos.Preset.SavePreset(r.Context(), rec); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

// handlePresetByID handles GET /api/presets/{id}.
func (s *Server) handlePresetByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/presets/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("preset id is required"))
		return
	}

	rec, err := s.repos.Preset.GetPreset(r.Context(), id)
	if err != nil {
		s.writeNotFoundOrError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleRuns handles POST /api/runs (submit) and GET /api/runs (not supported
// without a backing list operation; kept narrow per the documented contract).
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	s.submitRun(w, r)
}

type submitRunRequest struct {
	PresetId string        `json:"preset_id"`
	Options  model.Options `json:"options,omitempty"`
	Priority int           `json:"priority,omitempty"`
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req submitRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.PresetId == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("preset_id is required"))
		return
	}

	run := model.RunRecord{
		ID:        uuid.NewString(),
		PresetId:  req.PresetId,
		Options:   req.Options,
		Priority:  req.Priority,
		Status:    model.RunStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.repos.Run.CreateRun(r.Context(), run); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, run)
}

// handleRunByID handles GET /api/runs/{id} and GET /api/runs/{id}/timeline.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	id, sub, hasSub := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("run id is required"))
		return
	}

	run, err := s.repos.Run.GetRun(r.Context(), id)
	if err != nil {
		s.writeNotFoundOrError(w, err)
		return
	}

	if !hasSub {
		s.writeJSON(w, http.StatusOK, run)
		return
	}
	if sub != "timeline" {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown sub-resource %q", sub))
		return
	}

	if run.TimelineURL == "" {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("run %s has no timeline yet", id))
		return
	}
	http.Redirect(w, r, run.TimelineURL, http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeNotFoundOrError maps a repository "not found" error to 404; any
// other error is a 500.
func (s *Server) writeNotFoundOrError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "not found") {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}
