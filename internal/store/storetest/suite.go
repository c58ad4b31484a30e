// Package storetest holds behaviour shared by every store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backend is the subset of store.Store exercised here; kept local so that
// backend packages can run the suite without importing the store package.
type Backend interface {
	CreateMeeting(ctx context.Context, m *domain.Meeting) error
	GetMeeting(ctx context.Context, id domain.RoomID) (*domain.Meeting, error)
	AddParticipant(ctx context.Context, id domain.RoomID, user domain.UserID) error
	SetStatus(ctx context.Context, id domain.RoomID, status domain.MeetingStatus) error
	SaveMessage(ctx context.Context, msg *domain.ChatMessage) error
	ListMessages(ctx context.Context, room domain.RoomID, limit int) ([]*domain.ChatMessage, error)
	DeleteRoomMessages(ctx context.Context, room domain.RoomID) ([]*domain.ChatMessage, error)
}

func newMeeting(id domain.RoomID) *domain.Meeting {
	return &domain.Meeting{
		RoomID:       id,
		Title:        "standup",
		HostID:       "host",
		Participants: []domain.UserID{"host"},
		Type:         domain.RoomTypeP2P,
		Status:       domain.MeetingStatusActive,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

// Run exercises a fresh backend returned by open.
func Run(t *testing.T, open func(t *testing.T) Backend) {
	t.Run("meetings", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		_, err := s.GetMeeting(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.AddParticipant(ctx, "missing", "x"), domain.ErrNotFound)

		m := newMeeting("room-1")
		require.NoError(t, s.CreateMeeting(ctx, m))
		assert.ErrorIs(t, s.CreateMeeting(ctx, newMeeting("room-1")), domain.ErrMeetingExists)

		require.NoError(t, s.AddParticipant(ctx, "room-1", "guest"))
		require.NoError(t, s.AddParticipant(ctx, "room-1", "guest"))

		got, err := s.GetMeeting(ctx, "room-1")
		require.NoError(t, err)
		assert.Equal(t, domain.UserID("host"), got.HostID)
		assert.Equal(t, domain.RoomTypeP2P, got.Type)
		assert.Equal(t, []domain.UserID{"host", "guest"}, got.Participants)
		assert.True(t, got.CreatedAt.Equal(m.CreatedAt))

		require.NoError(t, s.SetStatus(ctx, "room-1", domain.MeetingStatusEnded))
		got, err = s.GetMeeting(ctx, "room-1")
		require.NoError(t, err)
		assert.Equal(t, domain.MeetingStatusEnded, got.Status)
		assert.ErrorIs(t, s.SetStatus(ctx, "missing", domain.MeetingStatusEnded), domain.ErrNotFound)
	})

	t.Run("messages", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		base := time.Now().UTC().Truncate(time.Millisecond)
		for i, body := range []string{"one", "two", "three"} {
			msg := &domain.ChatMessage{RoomID: "room-2", SenderID: "host", Body: body, CreatedAt: base.Add(time.Duration(i) * time.Second)}
			require.NoError(t, s.SaveMessage(ctx, msg))
			assert.NotEmpty(t, msg.ID)
		}
		withFile := &domain.ChatMessage{
			RoomID:     "room-2",
			SenderID:   "guest",
			Attachment: &domain.Attachment{Name: "a.png", MimeType: "image/png", URL: "/uploads/a.png"},
			CreatedAt:  base.Add(4 * time.Second),
		}
		require.NoError(t, s.SaveMessage(ctx, withFile))
		require.NoError(t, s.SaveMessage(ctx, &domain.ChatMessage{RoomID: "other", SenderID: "x", Body: "elsewhere"}))

		last, err := s.ListMessages(ctx, "room-2", 2)
		require.NoError(t, err)
		require.Len(t, last, 2)
		assert.Equal(t, "three", last[0].Body)
		assert.Equal(t, "/uploads/a.png", last[1].Attachment.URL)

		all, err := s.ListMessages(ctx, "room-2", 0)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		deleted, err := s.DeleteRoomMessages(ctx, "room-2")
		require.NoError(t, err)
		assert.Len(t, deleted, 4)

		after, err := s.ListMessages(ctx, "room-2", 0)
		require.NoError(t, err)
		assert.Empty(t, after)

		other, err := s.ListMessages(ctx, "other", 0)
		require.NoError(t, err)
		assert.Len(t, other, 1)

		deleted, err = s.DeleteRoomMessages(ctx, "never-used")
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})
}
