package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

type queryRequest struct {
	Question    string   `json:"question"`
	Role        string   `json:"role,omitempty"`
	K           int      `json:"k,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("query request", zap.String("role", req.Role), zap.Int("k", req.K))

	opts := models.QueryOptions{Role: req.Role, K: req.K, Temperature: req.Temperature}
	result, err := s.composer.Answer(r.Context(), req.Question, opts)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type syncRequest struct {
	ManifestPath string `json:"manifest_path,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	manifestPath := req.ManifestPath
	if manifestPath == "" {
		manifestPath = s.config.ManifestPath
	}
	s.logger.Debug("sync request", zap.String("manifest", manifestPath))

	report, err := s.syncer.Run(r.Context(), manifestPath)
	if err != nil {
		s.logger.Error("sync failed", zap.Error(err))
		status := statusForError(err)
		if report != nil {
			s.respondJSON(w, status, map[string]interface{}{"error": err.Error(), "report": report})
			return
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.tracker.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("audit recent failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*models.QALogRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

func (s *Server) handleAuditAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rec, err := s.tracker.GetAnswer(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "answer not found")
			return
		}
		s.logger.Error("audit answer failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAuditSyncs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.tracker.RecentSyncRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("audit syncs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.SyncRun{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"index_size": s.store.Size(),
		"config": map[string]interface{}{
			"manifest_path":      s.config.ManifestPath,
			"embedding_provider": s.config.Embedding.Provider,
			"llm_provider":       s.config.LLM.Provider,
			"top_k":              s.config.Retrieval.TopK,
			"threshold":          s.config.Retrieval.ThresholdOrDefault(),
			"chunk_size":         s.config.Retrieval.ChunkSize,
			"chunk_overlap":      s.config.Retrieval.ChunkOverlap,
			"audit_db_path":      s.config.Storage.AuditDBPath,
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForError maps the error taxonomy onto HTTP statuses. An abstention is
// a normal 200 answer; only transport and state failures reach here.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrNoIndex):
		return http.StatusConflict
	case errors.Is(err, models.ErrBackendTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrBackend):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnsupportedFormat), errors.Is(err, models.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
