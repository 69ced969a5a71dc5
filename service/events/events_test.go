package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"GymChat/module/chat/model"
	"GymChat/module/chat/service"
	"GymChat/module/chat/store"
	gymmodel "GymChat/module/gym/model"
	"GymChat/service/kafka"
	"GymChat/service/natsx"
	"GymChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	dest, key string
	value     []byte
	hdr       map[string]string
}

type recorder struct {
	out []sent
	err error
}

func (r *recorder) Send(_ context.Context, topic, key string, value []byte) error {
	r.out = append(r.out, sent{dest: topic, key: key, value: value})
	return r.err
}

func (r *recorder) Publish(_ context.Context, biz string, data []byte, hdr map[string]string) error {
	r.out = append(r.out, sent{dest: biz, value: data, hdr: hdr})
	return r.err
}

func (r *recorder) RegisterRoute(rt natsx.NatsxRoute) error {
	r.out = append(r.out, sent{dest: rt.Biz, key: rt.Subject + "#" + rt.Queue})
	return r.err
}

func TestSinks(t *testing.T) {
	k, n := &recorder{}, &recorder{err: errors.New("down")}
	sink := MultiSink{NewKafkaSink(k, "chat.events"), NewNatsSink(n)}

	ev := &model.ChatEvent{Type: model.EventMessageRead, Key: "u1|u2", Data: map[string]string{"readerId": "u1"}}
	sink.Publish(context.Background(), ev)

	require.Len(t, k.out, 1)
	assert.Equal(t, "chat.events", k.out[0].dest)
	assert.Equal(t, "u1|u2", k.out[0].key)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(k.out[0].value, &decoded))
	assert.Equal(t, "message.read", decoded["type"])
	assert.NotContains(t, decoded, "Key")

	require.Len(t, n.out, 1)
	assert.Equal(t, model.EventMessageRead, n.out[0].dest)
	assert.Equal(t, "u1|u2", n.out[0].hdr[HeaderEventKey])
}

func TestRegisterRoutes(t *testing.T) {
	r := &recorder{}
	require.NoError(t, RegisterEventRoutes(r, "chat.events"))
	require.NoError(t, RegisterRenameRoute(r, "gym.rename", "gym-chat"))
	require.Len(t, r.out, 4)
	assert.Equal(t, "chat.events.message.stored#", r.out[0].key)
	assert.Equal(t, sent{dest: BizRename, key: "gym.rename#gym-chat"}, r.out[3])
}

func newRenamer(t *testing.T) *service.ChatService {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()
	for _, m := range []struct{ a, b string }{{"u1", "u2"}, {"u3", "u4"}} {
		_, err := st.AppendMessage(ctx, m.a, m.b, "Iron Temple", &gymmodel.GymRef{ID: "g1", OwnerID: "owner-1", Name: "Iron Temple"},
			model.Message{MessageID: m.a, SenderID: m.a, Text: "hi"})
		require.NoError(t, err)
	}
	return service.New(st, nil)
}

func TestRenameResponder(t *testing.T) {
	h := RenameResponder(newRenamer(t))

	out, err := h(context.Background(), natsx.NatsxMessage{
		Data: []byte(`{"ownerId":"owner-1","oldGymTag":"Iron Temple","newGymTag":"Steel Temple"}`),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"affected":2}`, string(out))

	_, err = h(context.Background(), natsx.NatsxMessage{Data: []byte(`{"ownerId":"owner-1"}`)})
	require.Error(t, err)
	assert.JSONEq(t, `{"affected":0,"error":{"code":1001,"msg":"ArgsError"}}`, string(RenameErrorReply(err)))

	_, err = h(context.Background(), natsx.NatsxMessage{Data: []byte(`not json`)})
	assert.True(t, errors.Is(err, errs.ErrArgs))
}

func TestGymEventHandler(t *testing.T) {
	svc := newRenamer(t)
	h := GymEventHandler(svc)
	ctx := context.Background()

	require.NoError(t, h(ctx, "gym.events", nil, []byte(`{"type":"gym.created","ownerId":"owner-1"}`)))
	require.NoError(t, h(ctx, "gym.events", nil,
		[]byte(`{"type":"gym.renamed","data":{"ownerId":"owner-1","oldGymTag":"Iron Temple","newGymTag":"Steel"}}`)))

	msgs, err := svc.History(ctx, "u2", "u1", "Steel")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	require.NoError(t, h(ctx, "gym.events", nil,
		[]byte(`{"type":"gym.renamed","ownerId":"owner-1","oldGymTag":"Steel","newGymTag":"Bronze"}`)))
	msgs, err = svc.History(ctx, "u3", "u4", "Bronze")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	err = h(ctx, "gym.events", nil, []byte(`{`))
	assert.True(t, kafka.IsPermanent(err))
	err = h(ctx, "gym.events", nil, []byte(`{"type":"gym.renamed","oldGymTag":"a","newGymTag":"b"}`))
	assert.True(t, kafka.IsPermanent(err), "缺 ownerId 不重试")
}

type downRenamer struct{}

func (downRenamer) RenameGym(context.Context, service.RenameRequest) (int64, error) {
	return 0, errs.ErrStore.WrapMsg("rename gym")
}

func TestGymEventHandlerStoreErrorIsRetryable(t *testing.T) {
	h := GymEventHandler(downRenamer{})
	err := h(context.Background(), "gym.events", nil,
		[]byte(`{"type":"gym.renamed","ownerId":"owner-1","oldGymTag":"a","newGymTag":"b"}`))
	require.Error(t, err)
	assert.False(t, kafka.IsPermanent(err))
}
