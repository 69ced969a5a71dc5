package store

import (
	"context"
	"sync"
	"time"

	"GymChat/module/chat/model"
	gymmodel "GymChat/module/gym/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore 进程内实现，语义与 MongoStore 一致；本地调试和单测用
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*model.Conversation // pair_key|gym_tag -> conv
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs: make(map[string]*model.Conversation),
		now:   time.Now,
	}
}

func convKey(pairKey, gymTag string) string { return pairKey + "#" + gymTag }

func (s *MemoryStore) EnsureIndexes(context.Context) error { return nil }

func (s *MemoryStore) findOrCreateLocked(userA, userB, gymTag string) *model.Conversation {
	pk := model.PairKey(userA, userB)
	k := convKey(pk, gymTag)
	if c, ok := s.convs[k]; ok {
		return c
	}
	now := s.now().UTC()
	c := &model.Conversation{
		ID:             primitive.NewObjectID(),
		PairKey:        pk,
		ParticipantIDs: model.Participants(userA, userB),
		GymTag:         gymTag,
		Messages:       []model.Message{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.convs[k] = c
	return c
}

func (s *MemoryStore) FindOrCreate(_ context.Context, userA, userB, gymTag string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneConv(s.findOrCreateLocked(userA, userB, gymTag)), nil
}

func (s *MemoryStore) GetMessages(_ context.Context, userA, userB, gymTag string) ([]model.Message, error) {
	s.mu.RLock()
	c, ok := s.convs[convKey(model.PairKey(userA, userB), gymTag)]
	var out []model.Message
	if ok {
		out = cloneMessages(c.Messages)
	}
	s.mu.RUnlock()

	if out == nil {
		return []model.Message{}, nil
	}
	model.SortMessages(out)
	return out, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, userA, userB, gymTag string, gym *gymmodel.GymRef, msg model.Message) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findOrCreateLocked(userA, userB, gymTag)
	if gym != nil {
		c.GymRef = gym.ID
		c.GymOwnerID = gym.OwnerID
	}
	c.Messages = append(c.Messages, msg.Clone())
	c.UpdatedAt = s.now().UTC()
	return cloneConv(c), nil
}

func (s *MemoryStore) MarkAsRead(_ context.Context, readerID, otherUserID, gymTag string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[convKey(model.PairKey(readerID, otherUserID), gymTag)]
	if !ok {
		return 0, nil
	}
	changed := false
	for i := range c.Messages {
		if c.Messages[i].MarkRead(readerID) {
			changed = true
		}
	}
	if !changed {
		return 0, nil
	}
	return 1, nil
}

func (s *MemoryStore) CountUnread(_ context.Context, userID, gymTag, gymRef string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.convs {
		if !inScope(c, userID, gymTag, gymRef) {
			continue
		}
		for i := range c.Messages {
			if c.Messages[i].UnreadFor(userID) {
				n++
			}
		}
	}
	return n, nil
}

func inScope(c *model.Conversation, userID, gymTag, gymRef string) bool {
	if c.Counterpart(userID) == "" {
		return false
	}
	if gymTag != "" {
		return c.GymTag == gymTag
	}
	return gymRef != "" && c.GymRef == gymRef
}

func (s *MemoryStore) RenameGym(_ context.Context, ownerID, oldTag, newTag string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moved []string
	for k, c := range s.convs {
		if c.GymOwnerID != ownerID || c.GymTag != oldTag {
			continue
		}
		if _, clash := s.convs[convKey(c.PairKey, newTag)]; clash {
			return 0, ErrRenameConflict
		}
		moved = append(moved, k)
	}
	now := s.now().UTC()
	for _, k := range moved {
		c := s.convs[k]
		delete(s.convs, k)
		c.GymTag = newTag
		c.UpdatedAt = now
		s.convs[convKey(c.PairKey, newTag)] = c
	}
	return int64(len(moved)), nil
}

func cloneMessages(in []model.Message) []model.Message {
	out := make([]model.Message, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func cloneConv(c *model.Conversation) *model.Conversation {
	cp := *c
	cp.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	cp.Messages = cloneMessages(c.Messages)
	return &cp
}
