package chat

import (
	"encoding/json"
	"testing"

	"GymChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"send-message","ack":"7","data":{"senderId":"a","recipientId":"b","gymTag":"G","text":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventSendMessage, f.Event)
	assert.Equal(t, "7", f.Ack)

	req, err := DecodeData[SendMessageReq](f)
	require.NoError(t, err)
	assert.Equal(t, SendMessageReq{SenderID: "a", RecipientID: "b", GymTag: "G", Text: "hi"}, *req)
}

func TestParseFrameNumericAckAndIDs(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"get-unread-count","ack":12,"data":{"userId":42,"gymTag":"G"}}`))
	require.NoError(t, err)
	assert.Equal(t, "12", f.Ack)

	req, err := DecodeData[UnreadReq](f)
	require.NoError(t, err)
	assert.Equal(t, "42", req.UserID)
}

func TestParseFrameLegacyAliases(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"add_user","data":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, EventRegisterPresence, f.Event)
	assert.Equal(t, "add_user", f.Alias)
	p, err := DecodeData[PresenceReq](f)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)

	f, err = ParseFrame([]byte(`{"event":"communicate","data":["a","b","hello","Iron Temple"]}`))
	require.NoError(t, err)
	assert.Equal(t, EventSendMessage, f.Event)
	m, err := DecodeData[SendMessageReq](f)
	require.NoError(t, err)
	assert.Equal(t, SendMessageReq{SenderID: "a", RecipientID: "b", Text: "hello", GymTag: "Iron Temple"}, *m)

	f, err = ParseFrame([]byte(`{"event":"remove_user","data":{"userId":"u1"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventUnregisterPresence, f.Event)
}

func TestParseFrameErrors(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`[1,2]`,
		`{"data":{}}`,
		`{"event":""}`,
	} {
		_, err := ParseFrame([]byte(raw))
		assert.True(t, errs.ErrFrame.Is(err), raw)
	}

	f, err := ParseFrame([]byte(`{"event":"send-message","ack":"3","data":"oops"}`))
	assert.True(t, errs.ErrFrame.Is(err))
	require.NotNil(t, f)
	assert.Equal(t, "3", f.Ack)
}

func TestParseFrameMissingData(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"register-presence"}`))
	require.NoError(t, err)
	p, err := DecodeData[PresenceReq](f)
	require.NoError(t, err)
	assert.True(t, errs.ErrArgs.Is(p.Check()))
}

func TestOutboundFrames(t *testing.T) {
	b, err := AckFrame("1", map[string]int{"count": 2}).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"ack","ack":"1","data":{"count":2}}`, string(b))

	b, err = AckErrorFrame("2", errs.ErrArgs.WrapMsg("text is empty")).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"ack","ack":"2","error":{"code":1001,"msg":"ArgsError"}}`, string(b))

	b, err = ErrorFrame("send-message", errs.ErrStore.WrapMsg("boom")).Encode()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "error", out["event"])
	assert.Equal(t, map[string]any{"event": "send-message"}, out["data"])
	assert.EqualValues(t, errs.StoreError, out["error"].(map[string]any)["code"])
}
