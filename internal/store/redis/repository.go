// Package redis provides a Redis/Valkey implementation of the store interfaces
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// meetingState is what lives under the meeting key; participants are kept
// in a sorted set scored by join time.
type meetingState struct {
	RoomID    domain.RoomID        `json:"roomId"`
	Title     string               `json:"title,omitempty"`
	HostID    domain.UserID        `json:"hostId"`
	Type      domain.RoomType      `json:"type"`
	Status    domain.MeetingStatus `json:"status"`
	CreatedAt time.Time            `json:"createdAt"`
}

type Repository struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRepository(ctx context.Context, cfg config.RedisConfig) (*Repository, error) {
	var opt *redis.Options
	if cfg.URI != "" {
		parsed, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}
		if parsed.DB == 0 {
			parsed.DB = cfg.DB
		}
		if parsed.Password == "" && cfg.Password != "" {
			parsed.Password = cfg.Password
		}
		opt = parsed
	} else {
		opt = &redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Repository{client: client, keyPrefix: cfg.KeyPrefix, ttl: cfg.TTL}, nil
}

func (r *Repository) Close() error { return r.client.Close() }

func (r *Repository) meetingKey(id domain.RoomID) string {
	return fmt.Sprintf("%smeetings:%s", r.keyPrefix, id)
}

func (r *Repository) participantsKey(id domain.RoomID) string {
	return fmt.Sprintf("%smeetings:%s:participants", r.keyPrefix, id)
}

func (r *Repository) chatKey(id domain.RoomID) string {
	return fmt.Sprintf("%schat:%s", r.keyPrefix, id)
}

func (r *Repository) CreateMeeting(ctx context.Context, m *domain.Meeting) error {
	data, err := json.Marshal(meetingState{
		RoomID:    m.RoomID,
		Title:     m.Title,
		HostID:    m.HostID,
		Type:      m.Type,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal meeting: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.meetingKey(m.RoomID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save meeting: %w", err)
	}
	if !ok {
		return domain.ErrMeetingExists
	}
	now := float64(time.Now().UnixNano())
	if len(m.Participants) > 0 {
		members := make([]redis.Z, 0, len(m.Participants))
		for i, p := range m.Participants {
			members = append(members, redis.Z{Score: now + float64(i), Member: string(p)})
		}
		pipe := r.client.TxPipeline()
		pipe.ZAddNX(ctx, r.participantsKey(m.RoomID), members...)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.participantsKey(m.RoomID), r.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to save participants: %w", err)
		}
	}
	return nil
}

func (r *Repository) loadState(ctx context.Context, id domain.RoomID) (*meetingState, error) {
	data, err := r.client.Get(ctx, r.meetingKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	var state meetingState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meeting: %w", err)
	}
	return &state, nil
}

func (r *Repository) GetMeeting(ctx context.Context, id domain.RoomID) (*domain.Meeting, error) {
	state, err := r.loadState(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, err := r.client.ZRange(ctx, r.participantsKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	participants := make([]domain.UserID, 0, len(ids))
	for _, p := range ids {
		participants = append(participants, domain.UserID(p))
	}
	return &domain.Meeting{
		RoomID:       state.RoomID,
		Title:        state.Title,
		HostID:       state.HostID,
		Participants: participants,
		Type:         state.Type,
		Status:       state.Status,
		CreatedAt:    state.CreatedAt,
	}, nil
}

func (r *Repository) AddParticipant(ctx context.Context, id domain.RoomID, user domain.UserID) error {
	n, err := r.client.Exists(ctx, r.meetingKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check meeting: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	pipe := r.client.TxPipeline()
	pipe.ZAddNX(ctx, r.participantsKey(id), redis.Z{Score: float64(time.Now().UnixNano()), Member: string(user)})
	if r.ttl > 0 {
		pipe.Expire(ctx, r.participantsKey(id), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func (r *Repository) SetStatus(ctx context.Context, id domain.RoomID, status domain.MeetingStatus) error {
	state, err := r.loadState(ctx, id)
	if err != nil {
		return err
	}
	state.Status = status
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal meeting: %w", err)
	}
	if err := r.client.Set(ctx, r.meetingKey(id), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to save meeting: %w", err)
	}
	return nil
}

func (r *Repository) SaveMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.chatKey(msg.RoomID), data)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.chatKey(msg.RoomID), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func decodeMessages(values []string) []*domain.ChatMessage {
	out := make([]*domain.ChatMessage, 0, len(values))
	for _, v := range values {
		var m domain.ChatMessage
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out
}

func (r *Repository) ListMessages(ctx context.Context, room domain.RoomID, limit int) ([]*domain.ChatMessage, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	values, err := r.client.LRange(ctx, r.chatKey(room), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return decodeMessages(values), nil
}

func (r *Repository) DeleteRoomMessages(ctx context.Context, room domain.RoomID) ([]*domain.ChatMessage, error) {
	var list *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		list = pipe.LRange(ctx, r.chatKey(room), 0, -1)
		pipe.Del(ctx, r.chatKey(room))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete messages: %w", err)
	}
	return decodeMessages(list.Val()), nil
}
