// Package mongo provides a MongoDB implementation of the store interfaces
package mongo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	meetingsCollName = "meetings"
	messagesCollName = "messages"
)

type Repository struct {
	client   *mongo.Client
	meetings *mongo.Collection
	messages *mongo.Collection
}

func NewRepository(ctx context.Context, cfg config.MongoConfig) (*Repository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	r := &Repository{
		client:   client,
		meetings: db.Collection(meetingsCollName),
		messages: db.Collection(messagesCollName),
	}
	if err := r.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	_, err := r.meetings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create meetings index: %w", err)
	}
	_, err = r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create messages index: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *Repository) CreateMeeting(ctx context.Context, m *domain.Meeting) error {
	doc := *m
	if doc.Participants == nil {
		doc.Participants = []domain.UserID{}
	}
	if _, err := r.meetings.InsertOne(ctx, &doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrMeetingExists
		}
		return fmt.Errorf("failed to insert meeting: %w", err)
	}
	return nil
}

func (r *Repository) GetMeeting(ctx context.Context, id domain.RoomID) (*domain.Meeting, error) {
	var m domain.Meeting
	err := r.meetings.FindOne(ctx, bson.M{"roomId": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return &m, nil
}

func (r *Repository) AddParticipant(ctx context.Context, id domain.RoomID, user domain.UserID) error {
	res, err := r.meetings.UpdateOne(ctx,
		bson.M{"roomId": id},
		bson.M{"$addToSet": bson.M{"participants": user}},
	)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) SetStatus(ctx context.Context, id domain.RoomID, status domain.MeetingStatus) error {
	res, err := r.meetings.UpdateOne(ctx,
		bson.M{"roomId": id},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
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
	if _, err := r.messages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *Repository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.ChatMessage, error) {
	cur, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	out := []*domain.ChatMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return out, nil
}

func (r *Repository) ListMessages(ctx context.Context, room domain.RoomID, limit int) ([]*domain.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	out, err := r.find(ctx, bson.M{"roomId": room}, opts)
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

func (r *Repository) DeleteRoomMessages(ctx context.Context, room domain.RoomID) ([]*domain.ChatMessage, error) {
	out, err := r.find(ctx, bson.M{"roomId": room}, options.Find())
	if err != nil {
		return nil, err
	}
	if _, err := r.messages.DeleteMany(ctx, bson.M{"roomId": room}); err != nil {
		return nil, fmt.Errorf("failed to delete messages: %w", err)
	}
	return out, nil
}
