package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type (
	RoomID string
	// ConnID is unique per transport connection.
	ConnID string
)

const MaxRoomIDLen = 64

var ErrRoomIDInvalid = errors.New("invalid room id")

func NewRoomID() RoomID { return RoomID(uuid.NewString()) }

func NewConnID() ConnID { return ConnID(uuid.NewString()) }

func (id RoomID) Validate() error {
	if len(id) == 0 || len(id) > MaxRoomIDLen {
		return ErrRoomIDInvalid
	}
	return nil
}

type RoomType string

const (
	RoomTypeP2P RoomType = "p2p"
	RoomTypeSFU RoomType = "sfu"
)

func (t RoomType) Valid() bool { return t == RoomTypeP2P || t == RoomTypeSFU }

type MeetingStatus string

const (
	MeetingStatusActive MeetingStatus = "active"
	MeetingStatusEnded  MeetingStatus = "ended"
)

// Meeting is the durable authorization record for a room.
type Meeting struct {
	RoomID       RoomID        `json:"roomId" bson:"roomId"`
	Title        string        `json:"title,omitempty" bson:"title,omitempty"`
	HostID       UserID        `json:"hostId" bson:"hostId"`
	Participants []UserID      `json:"participants" bson:"participants"`
	Type         RoomType      `json:"type" bson:"type"`
	Status       MeetingStatus `json:"status" bson:"status"`
	CreatedAt    time.Time     `json:"createdAt" bson:"createdAt"`
}

func (m *Meeting) HasParticipant(id UserID) bool {
	for _, p := range m.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Peer is a connection admitted into a live room.
type Peer struct {
	ConnID ConnID `json:"connectionId"`
	UserID UserID `json:"userId"`
}
