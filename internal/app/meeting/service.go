// Package meeting manages durable meeting records: creation, REST joins,
// lookups for admission and ending a meeting.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/store"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

const MaxTitleLen = 200

var ErrBadType = errors.New("unknown meeting type")

type Service struct {
	store store.MeetingStore
	cache *cache.Cache
	now   func() time.Time
}

// NewService reads meetings through a cache holding entries for ttl.
// A non-positive ttl disables caching.
func NewService(s store.MeetingStore, ttl time.Duration) *Service {
	svc := &Service{store: s, now: time.Now}
	if ttl > 0 {
		svc.cache = cache.New(ttl, 2*ttl)
	}
	return svc
}

// Create registers a new meeting hosted by host, who is also its first
// participant. An empty type means p2p.
func (s *Service) Create(ctx context.Context, host domain.UserID, typ domain.RoomType, title string) (*domain.Meeting, error) {
	if err := host.Validate(); err != nil {
		return nil, err
	}
	if typ == "" {
		typ = domain.RoomTypeP2P
	}
	if !typ.Valid() {
		return nil, ErrBadType
	}
	title = strings.TrimSpace(title)
	title = domain.Truncate(title, MaxTitleLen)

	m := &domain.Meeting{
		RoomID:       domain.NewRoomID(),
		Title:        title,
		HostID:       host,
		Participants: []domain.UserID{host},
		Type:         typ,
		Status:       domain.MeetingStatusActive,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}
	log.Info().Str("module", "meeting").Str("room", string(m.RoomID)).Str("host", string(host)).Str("type", string(typ)).Msg("meeting created")
	return m, nil
}

func (s *Service) Get(ctx context.Context, id domain.RoomID) (*domain.Meeting, error) {
	if err := id.Validate(); err != nil {
		return nil, domain.ErrNotFound
	}
	if s.cache != nil {
		if v, ok := s.cache.Get(string(id)); ok {
			return v.(*domain.Meeting), nil
		}
	}
	m, err := s.store.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetDefault(string(id), m)
	}
	return m, nil
}

// Join durably adds user to the meeting's participants.
func (s *Service) Join(ctx context.Context, id domain.RoomID, user domain.UserID) (*domain.Meeting, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status == domain.MeetingStatusEnded {
		return nil, domain.ErrMeetingEnded
	}
	if m.HasParticipant(user) {
		return m, nil
	}
	if err := s.store.AddParticipant(ctx, id, user); err != nil {
		return nil, fmt.Errorf("join meeting: %w", err)
	}
	s.invalidate(id)
	log.Info().Str("module", "meeting").Str("room", string(id)).Str("user", string(user)).Msg("participant joined")
	return s.Get(ctx, id)
}

// End marks the meeting ended. Only the host may end it.
func (s *Service) End(ctx context.Context, id domain.RoomID, user domain.UserID) (*domain.Meeting, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.HostID != user {
		return nil, domain.ErrNotHost
	}
	if m.Status == domain.MeetingStatusEnded {
		return m, nil
	}
	if err := s.store.SetStatus(ctx, id, domain.MeetingStatusEnded); err != nil {
		return nil, fmt.Errorf("end meeting: %w", err)
	}
	s.invalidate(id)
	log.Info().Str("module", "meeting").Str("room", string(id)).Msg("meeting ended")
	return s.Get(ctx, id)
}

func (s *Service) invalidate(id domain.RoomID) {
	if s.cache != nil {
		s.cache.Delete(string(id))
	}
}
