package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura-backend/internal/assistant"
	"procura-backend/internal/config"
	"procura-backend/internal/modules"
	"procura-backend/internal/types"
	"procura-backend/internal/views"
)

func newTestServer(think time.Duration) *Server {
	return New(config.Config{
		AllowedOrigin:    "*",
		ThinkDelay:       think,
		ResearchDelay:    think,
		FlowTTL:          time.Minute,
		MaxMessages:      100,
		MaxCustomActions: 100,
	}, Deps{})
}

func do(t *testing.T, h http.Handler, method, path, sid string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.Header.Set("X-Session-Id", sid)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(0).Router(), http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["archive"])
}

func TestChatCreatesSession(t *testing.T) {
	h := newTestServer(0).Router()
	rec := do(t, h, http.MethodPost, "/api/chat", "", types.ChatRequest{Message: "show top GMP suppliers"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sid := rec.Header().Get("X-Session-Id")
	require.NotEmpty(t, sid)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), CookieName+"="+sid)

	resp := decode[types.ChatResponse](t, rec)
	assert.Equal(t, sid, resp.SessionID)
	require.NotNil(t, resp.Intent)
	assert.Equal(t, string(assistant.IntentSupplierSearch), resp.Intent.Type)
	require.NotNil(t, resp.Intent.Payload)
	assert.Len(t, resp.Intent.Payload.Suppliers, 3)
	for _, s := range resp.Intent.Payload.Suppliers {
		assert.True(t, s.GMPCertified)
	}
	require.NotNil(t, resp.Module)
	assert.Equal(t, modules.TypeSuppliers, resp.Module.Type)
	assert.True(t, resp.Module.Filters[modules.FlagFilteredByGMP])
	assert.Equal(t, assistant.SenderAgent, resp.Message.Sender)
	assert.NotEmpty(t, resp.Actions)
	assert.Nil(t, resp.Flow)
}

func TestChatUsesBodySessionID(t *testing.T) {
	h := newTestServer(0).Router()
	rec := do(t, h, http.MethodPost, "/api/chat", "", types.ChatRequest{SessionID: "abc", Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", decode[types.ChatResponse](t, rec).SessionID)
}

func TestChatRejectsBadInput(t *testing.T) {
	h := newTestServer(0).Router()
	rec := do(t, h, http.MethodPost, "/api/chat", "s1", types.ChatRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRFQFlowOverHTTP(t *testing.T) {
	h := newTestServer(0).Router()
	rec := do(t, h, http.MethodPost, "/api/chat", "s1", types.ChatRequest{Message: "create an rfq for insulin"})
	resp := decode[types.ChatResponse](t, rec)
	require.NotNil(t, resp.Flow)
	assert.Equal(t, "rfq", resp.Flow.Flow)
	assert.Equal(t, 1, resp.Flow.Step)
	assert.Equal(t, "NEEDS_INFO", resp.Flow.Status)

	for _, answer := range []string{"10,000 vials", "next month"} {
		resp = decode[types.ChatResponse](t, do(t, h, http.MethodPost, "/api/chat", "s1", types.ChatRequest{Message: answer}))
		require.NotNil(t, resp.Flow)
		assert.Equal(t, string(assistant.IntentRFQCreate), resp.Intent.Type)
	}
	resp = decode[types.ChatResponse](t, do(t, h, http.MethodPost, "/api/chat", "s1", types.ChatRequest{Message: "100 IU/ml"}))
	assert.Nil(t, resp.Flow)
	assert.Contains(t, resp.Reply, "10,000 vials")

	hist := decode[types.HistoryResponse](t, do(t, h, http.MethodGet, "/api/chat/history", "s1", nil))
	assert.Len(t, hist.Messages, 8)
	assert.Nil(t, hist.Flow)
}

func TestNewerMessageSupersedesThinkingTurn(t *testing.T) {
	h := newTestServer(300 * time.Millisecond).Router()
	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i, msg := range []string{"compare suppliers", "show inventory"} {
		wg.Add(1)
		go func(i int, msg string) {
			defer wg.Done()
			codes[i] = do(t, h, http.MethodPost, "/api/chat", "s1", types.ChatRequest{Message: msg}).Code
		}(i, msg)
		time.Sleep(50 * time.Millisecond)
	}
	wg.Wait()
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)

	hist := decode[types.HistoryResponse](t, do(t, h, http.MethodGet, "/api/chat/history", "s1", nil))
	assert.Len(t, hist.Messages, 2)
}

func TestResetStartsNewConversation(t *testing.T) {
	h := newTestServer(0).Router()
	do(t, h, http.MethodPost, "/api/chat", "s1", types.ChatRequest{Message: "start an rfq"})

	rec := do(t, h, http.MethodPost, "/api/chat/reset", "s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.NotEqual(t, "s1", body["sessionId"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.Equal(t, body["sessionId"], cookies[1].Value)

	hist := decode[types.HistoryResponse](t, do(t, h, http.MethodGet, "/api/chat/history", "s1", nil))
	assert.Empty(t, hist.Messages)
	assert.Nil(t, hist.Flow)
}

func TestHistoryWithoutSession(t *testing.T) {
	rec := do(t, newTestServer(0).Router(), http.MethodGet, "/api/chat/history", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[types.HistoryResponse](t, rec).Messages)

	rec = do(t, newTestServer(0).Router(), http.MethodGet, "/api/chat/history?source=archive", "s1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActionPanel(t *testing.T) {
	h := newTestServer(0).Router()
	panel := decode[assistant.Panel](t, do(t, h, http.MethodGet, "/api/actions", "s1", nil))
	assert.Equal(t, assistant.IntentFallback, panel.Tag)
	assert.Equal(t, assistant.ComputeActions(assistant.IntentFallback), panel.Actions)

	do(t, h, http.MethodPost, "/api/chat", "s1", types.ChatRequest{Message: "research insulin market"})
	panel = decode[assistant.Panel](t, do(t, h, http.MethodGet, "/api/actions", "s1", nil))
	assert.Equal(t, assistant.IntentResearchRequest, panel.Tag)
	assert.Equal(t, assistant.ComputeActions(assistant.IntentResearchRequest), panel.Actions)
}

func TestDropCustomAction(t *testing.T) {
	h := newTestServer(0).Router()
	rec := do(t, h, http.MethodPost, "/api/actions/custom", "s1", types.DropRequest{Content: "Follow up with Nordic BioSupply"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	panel := decode[assistant.Panel](t, do(t, h, http.MethodGet, "/api/actions", "s1", nil))
	require.Len(t, panel.Custom, 1)
	assert.Equal(t, "Follow up with Nordic BioSupply", panel.Custom[0].Content)
	assert.Equal(t, assistant.ComputeActions(panel.Tag), panel.Actions)

	rec = do(t, h, http.MethodPost, "/api/actions/custom", "s1", types.DropRequest{Content: " \n"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	panel = decode[assistant.Panel](t, do(t, h, http.MethodGet, "/api/actions", "s1", nil))
	assert.Len(t, panel.Custom, 1)
}

func TestModuleEndpoint(t *testing.T) {
	h := newTestServer(0).Router()
	m := decode[modules.Module](t, do(t, h, http.MethodGet, "/api/modules/inventory?categoryFilter=true", "", nil))
	assert.Equal(t, modules.TypeInventory, m.Type)
	assert.True(t, m.Filters[modules.FlagCategoryFilter])
	for _, item := range m.Inventory {
		assert.True(t, item.LowStock())
	}

	m = decode[modules.Module](t, do(t, h, http.MethodGet, "/api/modules/forecasting", "", nil))
	assert.True(t, m.Placeholder)
	assert.Equal(t, modules.PlaceholderMessage, m.Message)
}

func TestViewEndpoints(t *testing.T) {
	h := newTestServer(0).Router()
	all := decode[[]views.View](t, do(t, h, http.MethodGet, "/api/views", "", nil))
	assert.Equal(t, views.All(), all)

	v := decode[views.View](t, do(t, h, http.MethodGet, "/api/views/resolve?path=/", "", nil))
	assert.Equal(t, views.DefaultPath, v.Path)

	v = decode[views.View](t, do(t, h, http.MethodGet, "/api/views/resolve?path=/nowhere", "", nil))
	assert.True(t, v.NotFound)
	assert.Equal(t, views.NotFound, v.Page)
}

func TestClassifyEndpoint(t *testing.T) {
	h := newTestServer(0).Router()
	rec := do(t, h, http.MethodPost, "/api/classify", "", types.ClassifyRequest{Message: "which vendor is cheaper"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, assistant.IntentTag(decode[types.ClassifyResponse](t, rec).Intent).IsSupplierTag())

	rec = do(t, h, http.MethodPost, "/api/classify", "", types.ClassifyRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func dialChat(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/chat/ws?sessionId=ws1", nil)
	require.NoError(t, err)
	return conn
}

func readEvents(t *testing.T, conn *websocket.Conn, n int) []types.WSEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := make([]types.WSEvent, 0, n)
	for len(out) < n {
		var ev types.WSEvent
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
		out = append(out, ev)
	}
	return out
}

func TestChatWebsocket(t *testing.T) {
	srv := httptest.NewServer(newTestServer(0).Router())
	defer srv.Close()
	conn := dialChat(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := context.Background()
	require.NoError(t, wsjson.Write(ctx, conn, types.ChatRequest{Message: "compare suppliers"}))
	events := readEvents(t, conn, 2)
	assert.Equal(t, "thinking", events[0].Event)
	require.Equal(t, "reply", events[1].Event)
	require.NotNil(t, events[1].Chat)
	assert.Equal(t, "ws1", events[1].Chat.SessionID)
	assert.Equal(t, string(assistant.IntentSupplierComparison), events[1].Chat.Intent.Type)

	require.NoError(t, wsjson.Write(ctx, conn, types.ChatRequest{Message: ""}))
	events = readEvents(t, conn, 1)
	assert.Equal(t, "error", events[0].Event)
}

func TestChatWebsocketCancelsPendingTurn(t *testing.T) {
	srv := httptest.NewServer(newTestServer(300 * time.Millisecond).Router())
	defer srv.Close()
	conn := dialChat(t, srv)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := context.Background()
	require.NoError(t, wsjson.Write(ctx, conn, types.ChatRequest{Message: "compare suppliers"}))
	require.NoError(t, wsjson.Write(ctx, conn, types.ChatRequest{Message: "show compliance dashboard"}))

	counts := map[string]int{}
	var reply *types.ChatResponse
	for _, ev := range readEvents(t, conn, 4) {
		counts[ev.Event]++
		if ev.Event == "reply" {
			reply = ev.Chat
		}
	}
	assert.Equal(t, map[string]int{"thinking": 2, "cancelled": 1, "reply": 1}, counts)
	require.NotNil(t, reply)
	assert.Equal(t, string(assistant.IntentModuleRequest), reply.Intent.Type)
}
