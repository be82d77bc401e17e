package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"procura-backend/internal/assistant"
	"procura-backend/internal/logging"
	"procura-backend/internal/modules"
	"procura-backend/internal/types"
	"procura-backend/internal/views"
)

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	sid := getOrCreateSessionID(r, w)
	writeJSON(w, http.StatusOK, s.engine.Panel(s.store.Get(sid)))
}

// handleDropAction turns text dropped on the panel into a custom action.
func (s *Server) handleDropAction(w http.ResponseWriter, r *http.Request) {
	var req types.DropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := getOrCreateSessionID(r, w)
	var created assistant.CustomAction
	var panel assistant.Panel
	err := s.store.Update(sid, func(sess assistant.Session) (assistant.Session, error) {
		next, ca, err := s.engine.Drop(sess, req.Content)
		if err != nil {
			return sess, err
		}
		created = ca
		panel = s.engine.Panel(next)
		return next, nil
	})
	if errors.Is(err, assistant.ErrEmptyDrop) {
		s.writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if err != nil {
		logging.ErrorLogger.Error("failed to add custom action", zap.String("session_id", sid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to add custom action")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"action": created, "panel": panel})
}

// handleModule renders a dashboard module. Filters come from the query
// string; unknown types render the placeholder.
func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	data := map[string]any{}
	q := r.URL.Query()
	for _, key := range []string{modules.FlagCategoryFilter, modules.FlagFilteredByGMP} {
		if v := q.Get(key); v != "" {
			data[key] = v
		}
	}
	writeJSON(w, http.StatusOK, s.renderer.Render(typ, data))
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, views.All())
}

func (s *Server) handleResolveView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, views.Resolve(r.URL.Query().Get("path")))
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req types.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	tag := s.engine.Classify(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, types.ClassifyResponse{Intent: string(tag)})
}
