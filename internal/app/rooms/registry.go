// Package rooms owns the live, in-memory view of who is connected to which
// meeting: admission, capacity and host failover.
package rooms

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// Meetings resolves the durable record admission is checked against.
type Meetings interface {
	Get(ctx context.Context, id domain.RoomID) (*domain.Meeting, error)
}

type member struct {
	user domain.UserID
	seq  uint64
}

type room struct {
	id      domain.RoomID
	typ     domain.RoomType
	host    domain.UserID
	peers   map[domain.ConnID]member
	nextSeq uint64
}

// ordered returns the peers by insertion sequence.
func (r *room) ordered() []domain.Peer {
	type entry struct {
		conn domain.ConnID
		member
	}
	entries := make([]entry, 0, len(r.peers))
	for c, m := range r.peers {
		entries = append(entries, entry{conn: c, member: m})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]domain.Peer, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.Peer{ConnID: e.conn, UserID: e.user})
	}
	return out
}

func (r *room) connOf(user domain.UserID) (domain.ConnID, bool) {
	for c, m := range r.peers {
		if m.user == user {
			return c, true
		}
	}
	return "", false
}

// JoinResult describes a successful admission.
type JoinResult struct {
	// Peers are the other members, in join order. Never nil.
	Peers []domain.Peer
	// Replaced is the user's previous connection in this room, if any.
	Replaced *domain.Peer
	HostID   domain.UserID
	Created  bool
}

// LeaveResult describes a removal from a room.
type LeaveResult struct {
	Peer domain.Peer
	// Remaining members after the removal, in join order.
	Remaining []domain.Peer
	// NewHost is set when the host left and someone was promoted.
	NewHost *domain.UserID
	// Closed reports that the room became empty and was deleted.
	Closed bool
}

// Summary is a read-only snapshot of a live room.
type Summary struct {
	RoomID domain.RoomID   `json:"roomId"`
	Type   domain.RoomType `json:"type"`
	HostID domain.UserID   `json:"hostId"`
	Peers  int             `json:"peers"`
}

// P2PCapacity is the number of distinct users a p2p mesh room admits.
const P2PCapacity = 2

type Registry struct {
	mu       sync.Mutex
	rooms    map[domain.RoomID]*room
	meetings Meetings
}

func NewRegistry(meetings Meetings) *Registry {
	return &Registry{
		rooms:    make(map[domain.RoomID]*room),
		meetings: meetings,
	}
}

// Join admits conn into roomID for user. It fails with domain.ErrNotFound,
// domain.ErrMeetingEnded, domain.ErrForbidden or domain.ErrRoomFull.
func (r *Registry) Join(ctx context.Context, conn domain.ConnID, roomID domain.RoomID, user domain.UserID) (JoinResult, error) {
	m, err := r.meetings.Get(ctx, roomID)
	if err != nil {
		return JoinResult{}, err
	}
	if m.Status == domain.MeetingStatusEnded {
		return JoinResult{}, domain.ErrMeetingEnded
	}
	if !m.HasParticipant(user) {
		return JoinResult{}, domain.ErrForbidden
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	res := JoinResult{Created: !ok}
	if !ok {
		rm = &room{
			id:    roomID,
			typ:   m.Type,
			host:  m.HostID,
			peers: make(map[domain.ConnID]member),
		}
	}

	prev, rejoin := rm.connOf(user)
	if !rejoin && rm.typ == domain.RoomTypeP2P && len(rm.peers) >= P2PCapacity {
		return JoinResult{}, domain.ErrRoomFull
	}
	if rejoin && prev != conn {
		delete(rm.peers, prev)
		res.Replaced = &domain.Peer{ConnID: prev, UserID: user}
	}

	res.Peers = make([]domain.Peer, 0, len(rm.peers))
	for _, p := range rm.ordered() {
		if p.ConnID != conn {
			res.Peers = append(res.Peers, p)
		}
	}

	if _, already := rm.peers[conn]; !already {
		rm.nextSeq++
		rm.peers[conn] = member{user: user, seq: rm.nextSeq}
	}
	r.rooms[roomID] = rm
	res.HostID = rm.host

	log.Info().Str("module", "rooms").Str("room", string(roomID)).Str("conn", string(conn)).Str("user", string(user)).Int("peers", len(rm.peers)).Msg("admitted")
	return res, nil
}

// Leave removes conn from roomID. ok is false when conn was not a member.
func (r *Registry) Leave(conn domain.ConnID, roomID domain.RoomID) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return LeaveResult{}, false
	}
	m, ok := rm.peers[conn]
	if !ok {
		return LeaveResult{}, false
	}
	delete(rm.peers, conn)

	res := LeaveResult{Peer: domain.Peer{ConnID: conn, UserID: m.user}}
	if len(rm.peers) == 0 {
		delete(r.rooms, roomID)
		res.Closed = true
		res.Remaining = []domain.Peer{}
		log.Info().Str("module", "rooms").Str("room", string(roomID)).Msg("room closed")
		return res, true
	}

	res.Remaining = rm.ordered()
	if m.user == rm.host {
		next := res.Remaining[0].UserID
		rm.host = next
		res.NewHost = &next
		log.Info().Str("module", "rooms").Str("room", string(roomID)).Str("host", string(next)).Msg("host promoted")
	}
	log.Info().Str("module", "rooms").Str("room", string(roomID)).Str("conn", string(conn)).Int("peers", len(rm.peers)).Msg("left")
	return res, true
}

// IsValidPeer reports whether both from and to are current members of roomID.
func (r *Registry) IsValidPeer(roomID domain.RoomID, from, to domain.ConnID) bool {
	if from == to {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	_, okFrom := rm.peers[from]
	_, okTo := rm.peers[to]
	return okFrom && okTo
}

// Members returns the peers of roomID in join order.
func (r *Registry) Members(roomID domain.RoomID) []domain.Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return rm.ordered()
}

func (r *Registry) Get(roomID domain.RoomID) (Summary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return Summary{}, false
	}
	return summarize(rm), true
}

// Snapshot lists live rooms ordered by id.
func (r *Registry) Snapshot() []Summary {
	r.mu.Lock()
	out := make([]Summary, 0, len(r.rooms))
	for _, rm := range r.rooms {
		out = append(out, summarize(rm))
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b Summary) int {
		switch {
		case a.RoomID < b.RoomID:
			return -1
		case a.RoomID > b.RoomID:
			return 1
		}
		return 0
	})
	return out
}

func summarize(rm *room) Summary {
	return Summary{RoomID: rm.id, Type: rm.typ, HostID: rm.host, Peers: len(rm.peers)}
}
