package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"lorerag/internal/domain"
	"lorerag/internal/service"
)

const maxBodyBytes = 1 << 20

type askRequest struct {
	Question string `json:"question"`
}

type source struct {
	Position int     `json:"position"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

type askResponse struct {
	Answer  string   `json:"answer"`
	Sources []source `json:"sources"`
}

type retrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type retrieveResponse struct {
	Results []source `json:"results"`
}

type snapshotInfo struct {
	BuildID    string    `json:"build_id"`
	Model      string    `json:"model"`
	Dimension  int       `json:"dimension"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type healthResponse struct {
	Status   string        `json:"status"`
	Snapshot *snapshotInfo `json:"snapshot,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	m, ok := s.retriever.Info()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "no_snapshot"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Snapshot: &snapshotInfo{
			BuildID:    m.BuildID,
			Model:      m.Model,
			Dimension:  m.Dimension,
			ChunkCount: m.ChunkCount,
			CreatedAt:  m.CreatedAt,
		},
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decode(w, r, &req) {
		return
	}
	ans, err := s.asker.Ask(r.Context(), req.Question)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: ans.Text, Sources: toSources(ans.Sources)})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, "top_k must be positive")
		return
	}
	if req.TopK == 0 {
		req.TopK = s.cfg.DefaultTopK
	}
	results, err := s.retriever.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, retrieveResponse{Results: toSources(results)})
}

func toSources(results []domain.SearchResult) []source {
	out := make([]source, len(results))
	for i, r := range results {
		out[i] = source{Position: r.Chunk.Index, Text: r.Chunk.Text, Distance: r.Distance}
	}
	return out
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmptyQuestion):
		return http.StatusBadRequest, "question must not be empty"
	case errors.Is(err, domain.ErrSnapshotNotFound):
		return http.StatusServiceUnavailable, "vectorstore not found, build the index first"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, domain.ErrAnswer):
		return http.StatusBadGateway, "answer generation failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	ev := s.logger.Warn()
	if status >= 500 {
		ev = s.logger.Error()
	}
	ev.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeError(w, status, msg)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": msg})
}
