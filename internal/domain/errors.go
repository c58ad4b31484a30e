package domain

import "errors"

var (
	// ErrUnauthorized: no or invalid identity on the connection.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound: the room id has no durable meeting.
	ErrNotFound = errors.New("meeting not found")
	// ErrForbidden: identity is not a durable participant of the meeting.
	ErrForbidden = errors.New("not a participant of this meeting")
	// ErrRoomFull: P2P capacity exceeded by a non-member.
	ErrRoomFull = errors.New("room is full")
	// ErrInvalidTarget: signaling target is not in the sender's room.
	ErrInvalidTarget = errors.New("invalid signaling target")
	// ErrSignalingCollision: offer received while a local offer is outstanding.
	ErrSignalingCollision = errors.New("signaling collision")

	ErrMeetingEnded = errors.New("meeting has ended")
	ErrNotHost      = errors.New("only the host can do that")
	ErrNotInRoom    = errors.New("not in room")
	ErrEmptyMessage = errors.New("message or attachment required")
	ErrRateLimited  = errors.New("rate limited")
	// ErrForeignAttachment: the attachment URL was not uploaded to this room.
	ErrForeignAttachment = errors.New("attachment does not belong to this room")
)

var ErrMeetingExists = errors.New("meeting already exists")
