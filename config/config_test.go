package config

import (
	"testing"
	"time"

	"GymChat/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	c, err := Load("testdata/memory.yaml")
	require.NoError(t, err)

	assert.Equal(t, 4100, c.HTTP.Port)
	assert.Equal(t, "/chat", c.HTTP.WsPath)
	assert.Equal(t, StorageMemory, c.Storage.Driver)
	assert.Equal(t, GymSourceStatic, c.Gym.Source)
	require.Len(t, c.Gym.Static, 2)
	assert.Equal(t, "owner-1", c.Gym.Static[0].OwnerID)
	assert.Equal(t, 2*time.Second, c.Chat.EventTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)

	// 没写的 key 走默认值
	assert.Equal(t, 25*time.Second, c.Chat.PingInterval)
	assert.Equal(t, "gym-chat", c.App.Name)
	assert.Equal(t, ":4100", c.HTTPAddr())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GYMCHAT_HTTP_PORT", "5200")
	t.Setenv("GYMCHAT_CHAT_EVENT_TIMEOUT", "750ms")

	c, err := Load("testdata/memory.yaml")
	require.NoError(t, err)
	assert.Equal(t, 5200, c.HTTP.Port)
	assert.Equal(t, 750*time.Millisecond, c.Chat.EventTimeout)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("testdata/missing.yaml")
	assert.Error(t, err)

	_, err = Load("testdata/bad.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := &Config{}
	require.NoError(t, c.Validate())
	assert.Equal(t, 3002, c.HTTP.Port)
	assert.Equal(t, "/socket.io", c.HTTP.WsPath)
	assert.Equal(t, StorageMongo, c.Storage.Driver)
	assert.Equal(t, 2*c.Chat.PingInterval, c.Chat.PongWait)

	c = &Config{Auth: AuthConfig{Enabled: true}}
	assert.Error(t, c.Validate())

	c = &Config{Gym: GymConfig{Source: GymSourcePostgres}}
	assert.Error(t, c.Validate())

	c = &Config{Storage: StorageConfig{Driver: StorageMemory}}
	assert.Error(t, c.Validate(), "mongo gym directory without mongo")

	c = &Config{HTTP: HTTPConfig{WsPath: "ws"}}
	assert.Error(t, c.Validate())
}

func TestApplyRemote(t *testing.T) {
	defer func() { _ = logger.SetLevel("debug") }()

	require.NoError(t, ApplyRemote("log:\n  level: error\n"))
	assert.Equal(t, "error", logger.Level())
	assert.Equal(t, "error", CurrentRemote().Log.Level)

	assert.Error(t, ApplyRemote("log: [oops"))
	assert.Error(t, ApplyRemote("log:\n  level: shout\n"))
}
