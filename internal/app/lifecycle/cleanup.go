// Package lifecycle removes the chat history and attachment files of rooms
// that stayed empty for a grace period.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// History is the slice of the chat store cleanup needs.
type History interface {
	DeleteRoomMessages(ctx context.Context, room domain.RoomID) ([]*domain.ChatMessage, error)
}

// Unlinker removes an attachment stored for room by URL.
type Unlinker interface {
	Remove(room domain.RoomID, url string) error
}

type pending struct {
	timer *time.Timer
	gen   uint64
}

type Scheduler struct {
	// Live reports whether a room has participants again. A cleanup whose
	// timer already fired is skipped for a live room.
	Live func(domain.RoomID) bool

	mu      sync.Mutex
	grace   time.Duration
	timers  map[domain.RoomID]*pending
	gen     uint64
	history History
	files   Unlinker
	timeout time.Duration
	// onDone is called after a cleanup ran; used by tests.
	onDone func(domain.RoomID)
}

func NewScheduler(grace time.Duration, history History, files Unlinker) *Scheduler {
	return &Scheduler{
		grace:   grace,
		timers:  make(map[domain.RoomID]*pending),
		history: history,
		files:   files,
		timeout: 30 * time.Second,
	}
}

// Schedule arms cleanup for room. While one is pending this is a no-op.
func (s *Scheduler) Schedule(room domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[room]; ok {
		return false
	}
	s.gen++
	gen := s.gen
	s.timers[room] = &pending{
		gen:   gen,
		timer: time.AfterFunc(s.grace, func() { s.fire(room, gen) }),
	}
	log.Info().Str("module", "lifecycle").Str("room", string(room)).Dur("grace", s.grace).Msg("cleanup scheduled")
	return true
}

// Cancel disarms a pending cleanup. Canceling nothing is fine.
func (s *Scheduler) Cancel(room domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.timers[room]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.timers, room)
	log.Info().Str("module", "lifecycle").Str("room", string(room)).Msg("cleanup canceled")
	return true
}

func (s *Scheduler) Pending(room domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[room]
	return ok
}

// Stop disarms every pending cleanup.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for room, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, room)
	}
}

func (s *Scheduler) fire(room domain.RoomID, gen uint64) {
	s.mu.Lock()
	p, ok := s.timers[room]
	if !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, room)
	s.mu.Unlock()

	if s.Live != nil && s.Live(room) {
		log.Info().Str("module", "lifecycle").Str("room", string(room)).Msg("room is live again, cleanup skipped")
	} else {
		s.Run(room)
	}
	if s.onDone != nil {
		s.onDone(room)
	}
}

// Run deletes the room's history and unlinks its attachments right away.
// File failures are logged and skipped.
func (s *Scheduler) Run(room domain.RoomID) {
	logger := log.With().Str("module", "lifecycle").Str("room", string(room)).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	removed, err := s.history.DeleteRoomMessages(ctx, room)
	if err != nil {
		logger.Error().Err(err).Msg("failed to delete chat history")
		return
	}

	files := 0
	for _, msg := range removed {
		if msg.Attachment == nil || msg.Attachment.URL == "" || s.files == nil {
			continue
		}
		if err := s.files.Remove(room, msg.Attachment.URL); err != nil {
			logger.Warn().Err(err).Str("url", msg.Attachment.URL).Msg("failed to remove attachment")
			continue
		}
		files++
	}
	logger.Info().Int("messages", len(removed)).Int("files", files).Msg("room cleaned up")
}

