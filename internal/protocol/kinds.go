// Package protocol defines the closed set of messages exchanged over a
// signaling connection and the codecs that put them on the wire.
//
// Every frame is an envelope {type, data}. Inbound (client to server) and
// outbound (server to client) messages are sealed interfaces, so a
// dispatcher can switch over them exhaustively instead of looking handlers
// up by event name.
package protocol

type Kind string

// Client to server.
const (
	KindJoinRoom     Kind = "join-room"
	KindLeaveRoom    Kind = "leave-room"
	KindOffer        Kind = "offer"
	KindAnswer       Kind = "answer"
	KindICECandidate Kind = "ice-candidate"
	KindChatSend     Kind = "chat:send"
	KindTypingStart  Kind = "chat:typing:start"
	KindTypingStop   Kind = "chat:typing:stop"
	KindPing         Kind = "ping"
)

// Server to client. offer, answer and ice-candidate are reused with a
// "from" field instead of "to".
const (
	KindExistingPeers Kind = "existing-peers"
	KindUserJoined    Kind = "user-joined"
	KindUserLeft      Kind = "user-left"
	KindHostChanged   Kind = "host-changed"
	KindChatNew       Kind = "chat:new"
	KindChatTyping    Kind = "chat:typing"
	KindError         Kind = "error"
	KindPong          Kind = "pong"
	KindLeft          Kind = "left"
)
