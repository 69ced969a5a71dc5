package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type samplePayload struct {
	UserID string   `json:"userId"`
	Count  int      `json:"count"`
	Tags   []string `json:"tags"`
}

func TestDecodeStruct(t *testing.T) {
	st, err := structpb.NewStruct(map[string]any{
		"userId": 12345, // 数字 id 也要能落到 string
		"count":  3.0,
		"tags":   []any{"a", "b"},
	})
	require.NoError(t, err)

	out, err := DecodeStruct[samplePayload](st)
	require.NoError(t, err)
	assert.Equal(t, "12345", out.UserID)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, []string{"a", "b"}, out.Tags)
}

func TestDecodeStructErrorUnused(t *testing.T) {
	st, err := structpb.NewStruct(map[string]any{"userId": "u1", "extra": true})
	require.NoError(t, err)

	_, err = DecodeStruct[samplePayload](st)
	assert.NoError(t, err)

	_, err = DecodeStruct[samplePayload](st, Options{WeaklyTypedInput: true, ErrorUnused: true})
	assert.Error(t, err)

	_, err = DecodeStruct[samplePayload](nil)
	assert.Error(t, err)
}

func TestReadHelpers(t *testing.T) {
	st, err := structpb.NewStruct(map[string]any{
		"event": "send-message",
		"num":   1,
		"data":  map[string]any{"text": "hi"},
		"none":  nil,
	})
	require.NoError(t, err)

	ev, err := ReadString(st, "event")
	require.NoError(t, err)
	assert.Equal(t, "send-message", ev)

	_, err = ReadString(st, "num")
	assert.Error(t, err)
	_, err = ReadString(st, "missing")
	assert.Error(t, err)
}
