package gateway

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
)

func dialStream(t *testing.T, server *httptest.Server, query url.Values, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/architecture/ws"
	if len(query) > 0 {
		wsURL += "?" + query.Encode()
	}
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func waitForSubscriber(t *testing.T, srv *testServer, sessionID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return srv.hub.SubscriberCount(sessionID) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSessionStream_DeliversEvents(t *testing.T) {
	srv := newTestServer(t, "", nil)
	server := httptest.NewServer(srv.router)
	defer server.Close()

	token := srv.token(t, "user-1")

	conn, resp, err := dialStream(t, server, url.Values{"token": {token}}, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	waitForSubscriber(t, srv, "user-1")

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/architecture/command",
		bytes.NewReader([]byte(`{"command":"set a=1","document":{}}`)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	cmdResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	cmdResp.Body.Close()
	require.Equal(t, http.StatusOK, cmdResp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.SessionEvent
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, models.EventCommandApplied, event.Type)
	assert.Equal(t, "user-1", event.SessionID)
	assert.Equal(t, 1, event.HistoryLength)
	assert.Equal(t, models.Document{"a": "1"}, event.CurrentDocument)
}

func TestSessionStream_ScopedByHeader(t *testing.T) {
	srv := newTestServer(t, "", nil)
	server := httptest.NewServer(srv.router)
	defer server.Close()

	token := srv.token(t, "user-1")
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set(SessionHeader, "tab-9")

	conn, _, err := dialStream(t, server, nil, header)
	require.NoError(t, err)
	defer conn.Close()

	waitForSubscriber(t, srv, "user-1:tab-9")
	assert.Equal(t, 0, srv.hub.SubscriberCount("user-1"))
}

func TestSessionStream_RequiresToken(t *testing.T) {
	srv := newTestServer(t, "", nil)
	server := httptest.NewServer(srv.router)
	defer server.Close()

	tests := []struct {
		name  string
		query url.Values
	}{
		{"no_token", nil},
		{"bad_token", url.Values{"token": {"garbage"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := dialStream(t, server, tt.query, nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestSessionStream_ClosesOnHubShutdown(t *testing.T) {
	srv := newTestServer(t, "", nil)
	server := httptest.NewServer(srv.router)
	defer server.Close()

	conn, _, err := dialStream(t, server, url.Values{"token": {srv.token(t, "user-1")}}, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForSubscriber(t, srv, "user-1")

	srv.hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}

func TestSessionStream_UnsubscribesOnClientClose(t *testing.T) {
	srv := newTestServer(t, "", nil)
	server := httptest.NewServer(srv.router)
	defer server.Close()

	conn, _, err := dialStream(t, server, url.Values{"token": {srv.token(t, "user-1")}}, nil)
	require.NoError(t, err)
	waitForSubscriber(t, srv, "user-1")

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	conn.Close()

	assert.Eventually(t, func() bool {
		return srv.hub.SubscriberCount("user-1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionStream_RateLimited(t *testing.T) {
	srv := newTestServer(t, "", NewRateLimiter(0.001, 1))
	server := httptest.NewServer(srv.router)
	defer server.Close()

	token := srv.token(t, "user-1")

	conn, _, err := dialStream(t, server, url.Values{"token": {token}}, nil)
	require.NoError(t, err)
	conn.Close()

	_, resp, err := dialStream(t, server, url.Values{"token": {token}}, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
