package global

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"GymChat/config"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		App:     config.AppConfig{Name: "gym-chat-test", NodeID: 7},
		HTTP:    config.HTTPConfig{Mode: "test"},
		Storage: config.StorageConfig{Driver: config.StorageMemory},
		Gym: config.GymConfig{
			Source: config.GymSourceStatic,
			Static: []config.StaticGymConfig{{ID: "g1", Name: "Iron Temple", OwnerID: "owner-1"}},
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNodeKey(t *testing.T) {
	assert.Equal(t, "gym-chat-3", NodeKey("", 3))
	assert.Equal(t, "edge-12", NodeKey("edge", 12))
}

func TestBootMemoryEndToEnd(t *testing.T) {
	app, err := Boot(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = app.Shutdown(ctx)
	})

	hs := httptest.NewServer(app.Engine())
	t.Cleanup(hs.Close)

	resp, err := http.Get(hs.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/socket.io"
	dial := func(user string) *websocket.Conn {
		c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		require.NoError(t, c.WriteJSON(map[string]any{"event": "register-presence", "ack": "r", "data": map[string]any{"userId": user}}))
		var ack map[string]any
		require.NoError(t, c.ReadJSON(&ack))
		require.Equal(t, "ack", ack["event"])
		return c
	}
	a, b := dial("u1"), dial("u2")

	require.NoError(t, a.WriteJSON(map[string]any{
		"event": "send-message",
		"data":  map[string]any{"senderId": "u1", "recipientId": "u2", "gymTag": "Iron Temple", "text": "hi"},
	}))

	_ = b.SetReadDeadline(time.Now().Add(3 * time.Second))
	var push struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, b.ReadJSON(&push))
	assert.Equal(t, "message", push.Event)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(push.Data, &msg))
	assert.Equal(t, "hi", msg["text"])
	assert.Equal(t, "g1", msg["gymRef"])

	resp, err = http.Get(hs.URL + "/api/chat/unread?userId=u2&gymTag=Iron%20Temple")
	require.NoError(t, err)
	defer resp.Body.Close()
	var unread map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&unread))
	assert.Equal(t, float64(1), unread["count"])
}

func TestBootRejectsUnreachableRedis(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"}
	_, err := Boot(context.Background(), cfg)
	assert.Error(t, err)
}
