package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyOrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
	assert.Equal(t, []string{"u1", "u2"}, Participants("u2", "u1"))
	assert.NotEqual(t, PairKey("a", "bc"), PairKey("ab", "c"))
}

func TestCounterpart(t *testing.T) {
	c := &Conversation{ParticipantIDs: Participants("b", "a")}
	assert.Equal(t, "b", c.Counterpart("a"))
	assert.Equal(t, "a", c.Counterpart("b"))
	assert.Equal(t, "", c.Counterpart("z"))
}

func TestMarkRead(t *testing.T) {
	m := Message{SenderID: "a", ReadBy: []string{"a"}}
	assert.True(t, m.UnreadFor("b"))
	assert.False(t, m.UnreadFor("a"))

	assert.True(t, m.MarkRead("b"))
	assert.False(t, m.MarkRead("b"), "second mark is a no-op")
	assert.False(t, m.MarkRead("a"), "sender never re-added")
	assert.Equal(t, []string{"a", "b"}, m.ReadBy)
}

func TestSortMessagesStable(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	msgs := []Message{
		{MessageID: "late", SentAt: t0.Add(time.Minute)},
		{MessageID: "tie-1", SentAt: t0},
		{MessageID: "missing"},
		{MessageID: "tie-2", SentAt: t0},
	}
	SortMessages(msgs)

	var order []string
	for _, m := range msgs {
		order = append(order, m.MessageID)
	}
	assert.Equal(t, []string{"missing", "tie-1", "tie-2", "late"}, order)
}

func TestCloneDetachesReadBy(t *testing.T) {
	m := Message{ReadBy: []string{"a"}}
	c := m.Clone()
	c.ReadBy[0] = "x"
	assert.Equal(t, "a", m.ReadBy[0])
}
