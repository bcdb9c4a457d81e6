package ginserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homechat/internal/app/chatsync"
	"homechat/internal/app/hub"
	"homechat/internal/domain/chat"
	"homechat/internal/infra/obs"
)

type stubHub struct {
	openErr  error
	sendErr  error
	sent     chat.Message
	snapshot chatsync.Snapshot
	unread   hub.UnreadSummary

	openedConversation string
	openedCounterpart  string
	closedFor          string
	sentText           string
}

func (s *stubHub) Open(_ context.Context, userID, conversationID, counterpartID string) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.openedConversation = conversationID
	s.openedCounterpart = counterpartID
	return nil
}

func (s *stubHub) CloseView(userID string) error {
	s.closedFor = userID
	return nil
}

func (s *stubHub) Send(_ context.Context, userID, text string) (chat.Message, error) {
	if s.sendErr != nil {
		return chat.Message{}, s.sendErr
	}
	s.sentText = text
	return s.sent, nil
}

func (s *stubHub) Snapshot(string) (chatsync.Snapshot, error) {
	return s.snapshot, nil
}

func (s *stubHub) Watch(string) (<-chan chat.Event, func(), error) {
	ch := make(chan chat.Event)
	close(ch)
	return ch, func() {}, nil
}

func (s *stubHub) Unread(string) (hub.UnreadSummary, error) {
	return s.unread, nil
}

func newTestRouter(h *stubHub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(
		obs.Middleware{},
		obs.HealthHandlers{},
		Handlers{Chat: ChatHandler{Hub: h}},
	)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestOpenViewAccepted(t *testing.T) {
	stub := &stubHub{}
	router := newTestRouter(stub)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/view/open", "me",
		`{"conversation_id":"c1","counterpart_id":"u2"}`)

	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.Equal(t, "c1", stub.openedConversation)
	assert.Equal(t, "u2", stub.openedCounterpart)
}

func TestOpenViewRequiresIdentity(t *testing.T) {
	router := newTestRouter(&stubHub{})
	resp := doJSON(t, router, http.MethodPost, "/api/v1/view/open", "",
		`{"conversation_id":"c1","counterpart_id":"u2"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestOpenViewValidatesPayload(t *testing.T) {
	router := newTestRouter(&stubHub{})
	resp := doJSON(t, router, http.MethodPost, "/api/v1/view/open", "me",
		`{"conversation_id":"","counterpart_id":"u2"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSendMessage(t *testing.T) {
	stub := &stubHub{sent: chat.Message{ID: "m9", Text: "hello"}}
	router := newTestRouter(stub)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/view/messages", "me",
		`{"text":"hello"}`)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "hello", stub.sentText)

	var message chat.Message
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &message))
	assert.Equal(t, "m9", message.ID)
}

func TestSendMessageNotLive(t *testing.T) {
	router := newTestRouter(&stubHub{sendErr: chatsync.ErrNotLive})
	resp := doJSON(t, router, http.MethodPost, "/api/v1/view/messages", "me",
		`{"text":"hello"}`)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestSendMessageEmptyText(t *testing.T) {
	router := newTestRouter(&stubHub{sendErr: chatsync.ErrEmptyText})
	resp := doJSON(t, router, http.MethodPost, "/api/v1/view/messages", "me",
		`{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetView(t *testing.T) {
	stub := &stubHub{snapshot: chatsync.Snapshot{
		Phase:          chatsync.PhaseLive,
		ConversationID: "c1",
		Messages:       []chat.Message{{ID: "m1", Text: "hi"}},
	}}
	router := newTestRouter(stub)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/view", "me", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var snap chatsync.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	assert.Equal(t, chatsync.PhaseLive, snap.Phase)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "m1", snap.Messages[0].ID)
}

func TestCloseView(t *testing.T) {
	stub := &stubHub{}
	router := newTestRouter(stub)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/view/close", "me", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "me", stub.closedFor)
}

func TestGetUnread(t *testing.T) {
	stub := &stubHub{unread: hub.UnreadSummary{Total: 3, Counts: map[string]int{"u3": 3}}}
	router := newTestRouter(stub)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/unread", "me", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var summary hub.UnreadSummary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Counts["u3"])
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(&stubHub{})
	resp := doJSON(t, router, http.MethodGet, "/livez", "", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = doJSON(t, router, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, resp.Code)
}
