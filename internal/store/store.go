// Package store defines the durable storage used for meeting records and
// chat history, and picks a backend from configuration.
package store

import (
	"context"
	"fmt"

	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/store/memory"
	"github.com/dkeye/Meet/internal/store/mongo"
	"github.com/dkeye/Meet/internal/store/redis"
)

// MeetingStore holds the authorization source for rooms.
type MeetingStore interface {
	// CreateMeeting fails with domain.ErrMeetingExists on a duplicate room id.
	CreateMeeting(ctx context.Context, m *domain.Meeting) error
	// GetMeeting returns domain.ErrNotFound for an unknown room id.
	GetMeeting(ctx context.Context, id domain.RoomID) (*domain.Meeting, error)
	// AddParticipant is idempotent and keeps join order.
	AddParticipant(ctx context.Context, id domain.RoomID, user domain.UserID) error
	SetStatus(ctx context.Context, id domain.RoomID, status domain.MeetingStatus) error
}

// ChatStore holds persisted (non-ephemeral) chat messages.
type ChatStore interface {
	// SaveMessage assigns ID and CreatedAt when they are empty.
	SaveMessage(ctx context.Context, msg *domain.ChatMessage) error
	// ListMessages returns up to limit most recent messages, oldest first.
	ListMessages(ctx context.Context, room domain.RoomID, limit int) ([]*domain.ChatMessage, error)
	// DeleteRoomMessages removes the whole history and returns what was removed.
	DeleteRoomMessages(ctx context.Context, room domain.RoomID) ([]*domain.ChatMessage, error)
}

type Store interface {
	MeetingStore
	ChatStore
	Close() error
}

// New builds the backend named by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.NewRepository(), nil
	case "redis":
		return redis.NewRepository(ctx, cfg.Redis)
	case "mongo":
		return mongo.NewRepository(ctx, cfg.Mongo)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
