package toast

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialHub(t *testing.T, hub *Hub, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user_id=" + userID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSession(t *testing.T, hub *Hub, userID uuid.UUID) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.SessionCount(userID) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSendToastReachesLiveSession(t *testing.T) {
	hub := NewHub(DefaultConfig(), zap.NewNop())
	defer hub.Close()
	userID := uuid.New()

	conn := dialHub(t, hub, userID)
	waitForSession(t, hub, userID)

	err := hub.SendToast(context.Background(), userID, "deploy finished", "v2.4.1 live")
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var toast Toast
	require.NoError(t, json.Unmarshal(payload, &toast))
	assert.Equal(t, userID, toast.UserID)
	assert.Equal(t, "deploy finished", toast.Subject)
	assert.Equal(t, "v2.4.1 live", toast.Details)
	assert.NotEqual(t, uuid.Nil, toast.ID)
}

func TestSendToastFailsWithoutSession(t *testing.T) {
	hub := NewHub(DefaultConfig(), zap.NewNop())
	defer hub.Close()

	err := hub.SendToast(context.Background(), uuid.New(), "s", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no live session")
}

func TestSessionIsRemovedOnDisconnect(t *testing.T) {
	hub := NewHub(DefaultConfig(), zap.NewNop())
	defer hub.Close()
	userID := uuid.New()

	conn := dialHub(t, hub, userID)
	waitForSession(t, hub, userID)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.SessionCount(userID) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestRejectsMalformedUserID(t *testing.T) {
	hub := NewHub(DefaultConfig(), zap.NewNop())
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user_id=not-a-uuid"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
