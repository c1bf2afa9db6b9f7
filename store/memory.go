package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/symposium/conversation"
	"github.com/go-openapi/strfmt"
)

type record struct {
	mu   sync.Mutex
	conv *conversation.Conversation
}

// Memory is a process-local Store.
type Memory struct {
	records *haxmap.Map[string, *record]
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: haxmap.New[string, *record]()}
}

func (m *Memory) SaveConversation(_ context.Context, conv *conversation.Conversation, ownerID string) error {
	if conv == nil || conv.ID == "" {
		return errors.New("conversation id is required")
	}
	cp := conv.Clone()
	cp.OwnerID = ownerID

	rec, loaded := m.records.GetOrCompute(cp.ID, func() *record { return &record{conv: cp} })
	if !loaded {
		return nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.conv.OwnerID != ownerID {
		return fmt.Errorf("%w: %s", ErrNotFound, conv.ID)
	}
	rec.conv = cp
	return nil
}

func (m *Memory) lookup(ownerID, id string) (*record, bool) {
	rec, ok := m.records.Get(id)
	if !ok {
		return nil, false
	}
	rec.mu.Lock()
	owned := rec.conv.OwnerID == ownerID
	rec.mu.Unlock()
	return rec, owned
}

func (m *Memory) GetConversation(_ context.Context, ownerID, id string) (*conversation.Conversation, bool, error) {
	rec, ok := m.lookup(ownerID, id)
	if !ok {
		return nil, false, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.conv.Clone(), true, nil
}

func (m *Memory) SaveMessage(_ context.Context, msg conversation.Message, conversationID string) error {
	rec, ok := m.records.Get(conversationID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, conversationID)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	idx := slices.IndexFunc(rec.conv.Messages, func(existing conversation.Message) bool {
		return existing.ID == msg.ID
	})
	if idx >= 0 {
		rec.conv.Messages[idx] = msg
	} else {
		rec.conv.Messages = append(rec.conv.Messages, msg)
	}
	rec.conv.UpdatedAt = strfmt.DateTime(time.Now())
	return nil
}

func (m *Memory) UpdateStatus(_ context.Context, id, ownerID string, status conversation.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	rec, ok := m.lookup(ownerID, id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.conv.SetStatus(status)
	return nil
}

func (m *Memory) ListConversations(_ context.Context, ownerID string) ([]Summary, error) {
	var out []Summary
	m.records.ForEach(func(_ string, rec *record) bool {
		rec.mu.Lock()
		if rec.conv.OwnerID == ownerID {
			out = append(out, Summarize(rec.conv))
		}
		rec.mu.Unlock()
		return true
	})
	slices.SortFunc(out, func(a, b Summary) int {
		if c := time.Time(b.CreatedAt).Compare(time.Time(a.CreatedAt)); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (m *Memory) DeleteConversation(_ context.Context, ownerID, id string) error {
	if _, ok := m.lookup(ownerID, id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.records.Del(id)
	return nil
}
