package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	defer func() { _ = SetLevel("debug") }()

	require.NoError(t, SetLevel("warn"))
	assert.Equal(t, "warn", Level())

	// 空字符串保持原级别
	require.NoError(t, SetLevel(""))
	assert.Equal(t, "warn", Level())

	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, "warn", Level())
}

func TestInitJSON(t *testing.T) {
	defer func() { _ = Init("debug", "console") }()

	require.NoError(t, Init("info", "json"))
	assert.Equal(t, "info", Level())
	Infof("json logger up %d", 1)
}
