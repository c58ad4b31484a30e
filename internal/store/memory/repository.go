// Package memory provides an in-memory implementation of the store interfaces
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/google/uuid"
)

type Repository struct {
	mu       sync.RWMutex
	meetings map[domain.RoomID]*domain.Meeting
	messages map[domain.RoomID][]*domain.ChatMessage
}

func NewRepository() *Repository {
	return &Repository{
		meetings: make(map[domain.RoomID]*domain.Meeting),
		messages: make(map[domain.RoomID][]*domain.ChatMessage),
	}
}

func (r *Repository) Close() error { return nil }

func cloneMeeting(m *domain.Meeting) *domain.Meeting {
	cp := *m
	cp.Participants = append([]domain.UserID(nil), m.Participants...)
	return &cp
}

func cloneMessage(m *domain.ChatMessage) *domain.ChatMessage {
	cp := *m
	if m.Attachment != nil {
		a := *m.Attachment
		cp.Attachment = &a
	}
	return &cp
}

func (r *Repository) CreateMeeting(_ context.Context, m *domain.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetings[m.RoomID]; ok {
		return domain.ErrMeetingExists
	}
	r.meetings[m.RoomID] = cloneMeeting(m)
	return nil
}

func (r *Repository) GetMeeting(_ context.Context, id domain.RoomID) (*domain.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meetings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneMeeting(m), nil
}

func (r *Repository) AddParticipant(_ context.Context, id domain.RoomID, user domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !m.HasParticipant(user) {
		m.Participants = append(m.Participants, user)
	}
	return nil
}

func (r *Repository) SetStatus(_ context.Context, id domain.RoomID, status domain.MeetingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Status = status
	return nil
}

func (r *Repository) SaveMessage(_ context.Context, msg *domain.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.RoomID] = append(r.messages[msg.RoomID], cloneMessage(msg))
	return nil
}

func (r *Repository) ListMessages(_ context.Context, room domain.RoomID, limit int) ([]*domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.messages[room]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*domain.ChatMessage, 0, len(all))
	for _, m := range all {
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

func (r *Repository) DeleteRoomMessages(_ context.Context, room domain.RoomID) ([]*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages[room]
	delete(r.messages, room)
	if out == nil {
		out = []*domain.ChatMessage{}
	}
	return out, nil
}
