package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"procura-backend/internal/assistant"
	"procura-backend/internal/logging"
	"procura-backend/internal/store"
	"procura-backend/internal/types"
)

const archiveTimeout = 5 * time.Second

// sessionFor prefers the cookie/header/query session and falls back to the
// id in the request body.
func sessionFor(r *http.Request, w http.ResponseWriter, bodySID string) string {
	if getSessionID(r) == "" && strings.TrimSpace(bodySID) != "" {
		w.Header().Set("X-Session-Id", bodySID)
		SetSessionCookie(w, bodySID)
		return bodySID
	}
	return getOrCreateSessionID(r, w)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := sessionFor(r, w, req.SessionID)
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}
	turn := s.store.BeginTurn(ctx, sid)
	defer turn.End()

	resp, err := s.runTurn(turn, sid, req.Message)
	switch {
	case errors.Is(err, store.ErrTurnSuperseded):
		s.writeError(w, http.StatusConflict, "superseded by a newer message")
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "request timed out")
	case err != nil:
		logging.AppLogger.Debug("chat turn aborted", zap.String("session_id", sid), zap.Error(err))
		s.writeError(w, http.StatusRequestTimeout, "request cancelled")
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// runTurn decides the reply, waits out the thinking delay and commits the
// turn. A turn that is superseded while thinking never commits.
func (s *Server) runTurn(turn *store.Turn, sid, text string) (types.ChatResponse, error) {
	defer logging.LogDuration("runTurn", zap.String("session_id", sid))()
	ctx := turn.Context()
	t := s.engine.Decide(ctx, s.store.Get(sid), text)
	if err := assistant.Think(ctx, s.engine.DelayFor(t)); err != nil {
		if turn.Superseded() {
			return types.ChatResponse{}, store.ErrTurnSuperseded
		}
		return types.ChatResponse{}, err
	}
	if err := turn.Commit(func(cur assistant.Session) assistant.Session {
		return s.engine.Apply(cur, t)
	}); err != nil {
		return types.ChatResponse{}, err
	}
	logging.AppLogger.Info("turn committed",
		zap.String("session_id", sid),
		zap.String("intent", string(t.Tag)),
		zap.Bool("flow_active", t.Context != nil),
	)
	s.archiveTurn(sid, t)
	return s.chatResponse(sid, t), nil
}

func (s *Server) archiveTurn(sid string, t assistant.Turn) {
	if s.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := s.archive.SaveMessages(ctx, sid, t.User, t.Reply); err != nil {
		logging.ErrorLogger.Error("failed to archive turn", zap.String("session_id", sid), zap.Error(err))
	}
}

func (s *Server) chatResponse(sid string, t assistant.Turn) types.ChatResponse {
	resp := types.ChatResponse{
		SessionID: sid,
		Reply:     t.Reply.Content,
		Message:   t.Reply,
		Intent:    &types.IntentResponse{Type: string(t.Tag), Payload: t.Response.Payload},
		Actions:   t.Actions,
		Flow:      types.NewFlowStatus(t.Context),
	}
	if p := t.Response.Payload; p != nil && p.ModuleRequest != nil {
		m := s.renderer.Render(string(p.ModuleRequest.Type), p.ModuleRequest.Data)
		resp.Module = &m
	}
	return resp
}

// handleChatWS runs a conversation over a websocket. Every inbound message
// starts a new turn and cancels the one still thinking.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sid := getOrCreateSessionID(r, w)
	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		logging.AppLogger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := func(ev types.WSEvent) {
		if err := wsjson.Write(ctx, conn, ev); err != nil && ctx.Err() == nil {
			logging.AppLogger.Debug("websocket write failed", zap.String("session_id", sid), zap.Error(err))
		}
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				conn.Close(websocket.StatusNormalClosure, "")
			default:
				logging.AppLogger.Debug("websocket closed", zap.String("session_id", sid), zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "unsupported data")
			return
		}
		var in types.ChatRequest
		if err := json.Unmarshal(data, &in); err != nil {
			send(types.WSEvent{Event: "error", Error: "invalid json"})
			continue
		}
		if strings.TrimSpace(in.Message) == "" {
			send(types.WSEvent{Event: "error", Error: "message is required"})
			continue
		}

		turn := s.store.BeginTurn(ctx, sid)
		send(types.WSEvent{Event: "thinking"})
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			defer turn.End()
			resp, err := s.runTurn(turn, sid, text)
			switch {
			case err == nil:
				send(types.WSEvent{Event: "reply", Chat: &resp})
			case errors.Is(err, store.ErrTurnSuperseded):
				send(types.WSEvent{Event: "cancelled"})
			case ctx.Err() == nil:
				send(types.WSEvent{Event: "error", Error: err.Error()})
			}
		}(in.Message)
	}
}

func (s *Server) acceptOptions() *websocket.AcceptOptions {
	origin := strings.TrimSpace(s.cfg.AllowedOrigin)
	if origin == "" || origin == "*" {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		return &websocket.AcceptOptions{OriginPatterns: []string{u.Host}}
	}
	return &websocket.AcceptOptions{OriginPatterns: []string{origin}}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sid := getSessionID(r)
	if sid == "" {
		writeJSON(w, http.StatusOK, types.HistoryResponse{Messages: []assistant.Message{}})
		return
	}
	w.Header().Set("X-Session-Id", sid)

	if r.URL.Query().Get("source") == "archive" {
		if s.archive == nil {
			s.writeError(w, http.StatusNotFound, "conversation archive is not configured")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		rows, err := s.archive.ListMessages(r.Context(), sid, limit)
		if err != nil {
			logging.ErrorLogger.Error("failed to read archive", zap.String("session_id", sid), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to read archive")
			return
		}
		msgs := make([]assistant.Message, 0, len(rows))
		for _, row := range rows {
			msgs = append(msgs, archivedToMessage(row))
		}
		writeJSON(w, http.StatusOK, types.HistoryResponse{SessionID: sid, Messages: msgs})
		return
	}

	sess := s.store.Get(sid)
	msgs := sess.Messages
	if msgs == nil {
		msgs = []assistant.Message{}
	}
	writeJSON(w, http.StatusOK, types.HistoryResponse{SessionID: sid, Messages: msgs, Flow: types.NewFlowStatus(sess.Context)})
}

func archivedToMessage(row store.ArchivedMessage) assistant.Message {
	m := assistant.Message{
		ID:        row.MessageID,
		Content:   row.Content,
		Sender:    assistant.Sender(row.Sender),
		Timestamp: row.CreatedAt,
		Intent:    assistant.IntentTag(row.Intent),
	}
	if len(row.Payload) > 0 {
		var p assistant.Payload
		if err := json.Unmarshal(row.Payload, &p); err == nil {
			m.Payload = &p
		}
	}
	return m
}

// handleReset discards the conversation, cancels any thinking turn and
// hands out a fresh session id.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if sid := getSessionID(r); sid != "" {
		s.store.Reset(sid)
		if s.archive != nil {
			if err := s.archive.DeleteSession(r.Context(), sid); err != nil {
				logging.ErrorLogger.Error("failed to delete archived session", zap.String("session_id", sid), zap.Error(err))
			}
		}
		logging.AppLogger.Info("conversation reset", zap.String("session_id", sid))
	}
	ClearSessionCookie(w)
	sid := newSessionID()
	SetSessionCookie(w, sid)
	w.Header().Set("X-Session-Id", sid)
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": sid})
}
