package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"GymChat/module/chat/model"
	gymmodel "GymChat/module/gym/model"
	"GymChat/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id, sender, text string, at time.Time) model.Message {
	return model.Message{MessageID: id, SenderID: sender, Text: text, SentAt: at, ReadBy: []string{sender}}
}

var (
	gymOwner1 = &gymmodel.GymRef{ID: "g1", OwnerID: "owner-1", Name: "Iron Temple"}
	gymOwner2 = &gymmodel.GymRef{ID: "g2", OwnerID: "owner-2", Name: "Iron Temple"}
)

func TestMemoryFindOrCreateIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	c1, err := s.FindOrCreate(ctx, "alice", "bob", "GymX")
	require.NoError(t, err)
	c2, err := s.FindOrCreate(ctx, "bob", "alice", "GymX")
	require.NoError(t, err)

	assert.Equal(t, c1.ID, c2.ID)
	assert.Equal(t, []string{"alice", "bob"}, c1.ParticipantIDs)
	assert.Empty(t, c1.Messages)

	other, err := s.FindOrCreate(ctx, "alice", "bob", "GymY")
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, other.ID)
}

func TestMemoryAppendReusesConversation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.AppendMessage(ctx, "alice", "bob", "GymX", nil, msg("1", "alice", "hi", t0))
	require.NoError(t, err)
	conv, err := s.AppendMessage(ctx, "bob", "alice", "GymX", gymOwner1, msg("2", "bob", "hello", t0.Add(time.Second)))
	require.NoError(t, err)
	assert.Equal(t, "g1", conv.GymRef)
	assert.Equal(t, "owner-1", conv.GymOwnerID)

	got, err := s.GetMessages(ctx, "alice", "bob", "GymX")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hi", got[0].Text)
	assert.Equal(t, "hello", got[1].Text)
	assert.Len(t, s.convs, 1)
}

func TestMemoryGetMessagesSortsAndCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	_, _ = s.AppendMessage(ctx, "a", "b", "G", nil, msg("late", "a", "late", t0.Add(time.Minute)))
	_, _ = s.AppendMessage(ctx, "a", "b", "G", nil, msg("tie1", "a", "tie1", t0))
	_, _ = s.AppendMessage(ctx, "a", "b", "G", nil, msg("tie2", "b", "tie2", t0))
	_, _ = s.AppendMessage(ctx, "a", "b", "G", nil, msg("old", "b", "old", time.Time{}))

	got, err := s.GetMessages(ctx, "b", "a", "G")
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, m := range got {
		ids = append(ids, m.MessageID)
	}
	assert.Equal(t, []string{"old", "tie1", "tie2", "late"}, ids)

	got[0].ReadBy = append(got[0].ReadBy, "mallory")
	again, _ := s.GetMessages(ctx, "a", "b", "G")
	assert.NotContains(t, again[0].ReadBy, "mallory")
}

func TestMemoryGetMessagesMissingConversation(t *testing.T) {
	got, err := NewMemoryStore().GetMessages(context.Background(), "a", "b", "G")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMemoryMarkAsReadIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	_, _ = s.AppendMessage(ctx, "a", "b", "G", nil, msg("1", "a", "x", now))
	_, _ = s.AppendMessage(ctx, "a", "b", "G", nil, msg("2", "b", "y", now))
	_, _ = s.AppendMessage(ctx, "a", "b", "G", nil, msg("3", "a", "z", now))

	n, err := s.CountUnread(ctx, "b", "G", "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	changed, err := s.MarkAsRead(ctx, "b", "a", "G")
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)
	first, _ := s.GetMessages(ctx, "a", "b", "G")

	changed, err = s.MarkAsRead(ctx, "b", "a", "G")
	require.NoError(t, err)
	assert.EqualValues(t, 0, changed)
	second, _ := s.GetMessages(ctx, "a", "b", "G")
	assert.Equal(t, first, second)

	n, _ = s.CountUnread(ctx, "b", "G", "")
	assert.EqualValues(t, 0, n)
	// a 还没读 b 的那条
	n, _ = s.CountUnread(ctx, "a", "G", "")
	assert.EqualValues(t, 1, n)
}

func TestMemoryMarkAsReadNoConversation(t *testing.T) {
	n, err := NewMemoryStore().MarkAsRead(context.Background(), "a", "b", "G")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryCountUnreadScopes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	_, _ = s.AppendMessage(ctx, "a", "u", "Iron Temple", gymOwner1, msg("1", "a", "x", now))
	_, _ = s.AppendMessage(ctx, "b", "u", "Iron Temple", gymOwner1, msg("2", "b", "x", now))
	_, _ = s.AppendMessage(ctx, "c", "u", "Pulse", nil, msg("3", "c", "x", now))
	_, _ = s.AppendMessage(ctx, "a", "b", "Iron Temple", gymOwner1, msg("4", "a", "x", now))

	n, _ := s.CountUnread(ctx, "u", "Iron Temple", "")
	assert.EqualValues(t, 2, n)
	n, _ = s.CountUnread(ctx, "u", "", "g1")
	assert.EqualValues(t, 2, n)
	n, _ = s.CountUnread(ctx, "u", "Pulse", "")
	assert.EqualValues(t, 1, n)
	n, _ = s.CountUnread(ctx, "u", "", "")
	assert.Zero(t, n)
	n, _ = s.CountUnread(ctx, "nobody", "Iron Temple", "")
	assert.Zero(t, n)
}

func TestMemoryRenameScopedByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	_, _ = s.AppendMessage(ctx, "a", "b", "Iron Temple", gymOwner1, msg("1", "a", "x", now))
	_, _ = s.AppendMessage(ctx, "a", "c", "Iron Temple", gymOwner1, msg("2", "a", "x", now))
	_, _ = s.AppendMessage(ctx, "d", "e", "Iron Temple", gymOwner2, msg("3", "d", "x", now))
	_, _ = s.AppendMessage(ctx, "f", "g", "Iron Temple", nil, msg("4", "f", "x", now))

	n, err := s.RenameGym(ctx, "owner-1", "Iron Temple", "Steel Temple")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, _ := s.GetMessages(ctx, "a", "b", "Steel Temple")
	assert.Len(t, got, 1)
	got, _ = s.GetMessages(ctx, "a", "b", "Iron Temple")
	assert.Empty(t, got)
	got, _ = s.GetMessages(ctx, "d", "e", "Iron Temple")
	assert.Len(t, got, 1)
	got, _ = s.GetMessages(ctx, "f", "g", "Iron Temple")
	assert.Len(t, got, 1)

	n, err = s.RenameGym(ctx, "owner-1", "Iron Temple", "Steel Temple")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryRenameConflictLeavesStateIntact(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	_, _ = s.AppendMessage(ctx, "a", "b", "Old", gymOwner1, msg("1", "a", "x", now))
	_, _ = s.AppendMessage(ctx, "a", "b", "New", gymOwner1, msg("2", "a", "y", now))

	_, err := s.RenameGym(ctx, "owner-1", "Old", "New")
	require.Error(t, err)
	assert.True(t, errs.ErrArgs.Is(err))

	old, _ := s.GetMessages(ctx, "a", "b", "Old")
	assert.Len(t, old, 1)
	cur, _ := s.GetMessages(ctx, "a", "b", "New")
	assert.Len(t, cur, 1)
}

func TestMemoryConcurrentFirstContact(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "a", "b"
			if i%2 == 1 {
				from, to = "b", "a"
			}
			_, err := s.AppendMessage(ctx, from, to, "G", nil, msg("", from, "hi", time.Now()))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, _ := s.GetMessages(ctx, "a", "b", "G")
	assert.Len(t, got, 20)
	assert.Len(t, s.convs, 1)
}
