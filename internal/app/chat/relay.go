// Package chat turns chat:send requests into room messages and keeps the
// transient typing state.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EphemeralPrefix marks ids of messages that were never stored.
const EphemeralPrefix = "tmp-"

// Attachments tells which uploaded file URLs belong to a room.
type Attachments interface {
	Owns(room domain.RoomID, url string) bool
}

type Relay struct {
	// Files vets attachment URLs. Without it only inline attachments pass.
	Files Attachments

	store        store.ChatStore
	historyLimit int
	now          func() time.Time
}

func NewRelay(s store.ChatStore, historyLimit int) *Relay {
	return &Relay{store: s, historyLimit: historyLimit, now: time.Now}
}

// Prepare validates a message and persists it unless its attachment carries
// inline data, in which case it gets a synthetic id and is only relayed.
func (r *Relay) Prepare(ctx context.Context, room domain.RoomID, sender domain.UserID, body string, att *domain.Attachment) (*domain.ChatMessage, error) {
	if att.Empty() {
		att = nil
	}
	msg := &domain.ChatMessage{
		RoomID:     room,
		SenderID:   sender,
		Body:       body,
		Attachment: att,
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if att != nil && !att.Inline() && att.URL != "" && (r.Files == nil || !r.Files.Owns(room, att.URL)) {
		log.Warn().Str("module", "chat").Str("room", string(room)).Str("user", string(sender)).Str("url", att.URL).Msg("foreign attachment")
		return nil, domain.ErrForeignAttachment
	}

	if att.Inline() {
		msg.ID = EphemeralPrefix + uuid.NewString()
		msg.CreatedAt = r.now().UTC()
		msg.Ephemeral = true
		log.Debug().Str("module", "chat").Str("room", string(room)).Str("user", string(sender)).Msg("relaying ephemeral attachment")
		return msg, nil
	}

	if err := r.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	log.Debug().Str("module", "chat").Str("room", string(room)).Str("user", string(sender)).Str("id", msg.ID).Msg("message stored")
	return msg, nil
}

// History returns up to limit persisted messages, oldest first. limit is
// clamped to the configured maximum.
func (r *Relay) History(ctx context.Context, room domain.RoomID, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 || (r.historyLimit > 0 && limit > r.historyLimit) {
		limit = r.historyLimit
	}
	return r.store.ListMessages(ctx, room, limit)
}
