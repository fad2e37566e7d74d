// Package protocol defines the server-to-client events the signaling core
// emits. Each transport adapter owns its own wire encoding of these; the
// core never touches raw frames.
package protocol

import (
	"encoding/json"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
)

type ServerEvent interface {
	EventName() string
}

const (
	EventRoomEstablished = "room_connection_established"
	EventRoomTerminated  = "room_connection_terminated"
	EventEstablishPeer   = "establish_peer_connection"
	EventTerminatePeer   = "terminate_peer_connection"
	EventMessageReceived = "message_received"
	EventSessionEnded    = "session-ended"
	EventError           = "error"

	KindOffer        = "offer"
	KindAnswer       = "answer"
	KindICECandidate = "ice-candidate"
)

// RoomConnectionEstablished is sent to a client once it is attached to a
// room, either after create_room or join_room.
type RoomConnectionEstablished struct {
	Room *domain.Room `json:"room"`
}

func (RoomConnectionEstablished) EventName() string { return EventRoomEstablished }

// RoomConnectionTerminated tells a client it is no longer attached to the
// room. Idempotent on the receiving side.
type RoomConnectionTerminated struct {
	RoomID domain.RoomID `json:"roomId"`
}

func (RoomConnectionTerminated) EventName() string { return EventRoomTerminated }

// EstablishPeerConnection tells existing members a newcomer is joining so
// they can start WebRTC negotiation towards it.
type EstablishPeerConnection struct {
	UserID   domain.UserID `json:"userId"`
	UserName string        `json:"userName"`
}

func (EstablishPeerConnection) EventName() string { return EventEstablishPeer }

// TerminatePeerConnection tells members to tear down their peer objects
// for a departed user.
type TerminatePeerConnection struct {
	UserID domain.UserID `json:"userId"`
}

func (TerminatePeerConnection) EventName() string { return EventTerminatePeer }

type MessageReceived struct {
	From domain.UserID   `json:"from"`
	Data json.RawMessage `json:"data"`
}

func (MessageReceived) EventName() string { return EventMessageReceived }

// SignalRelay carries WebRTC negotiation metadata (offer, answer or ICE
// candidate) between peers. The payload is validated on ingress and
// forwarded opaque; no media ever passes through here.
type SignalRelay struct {
	Kind     string          `json:"kind"`
	SenderID domain.UserID   `json:"sender_id"`
	RoomID   domain.RoomID   `json:"roomId"`
	Payload  json.RawMessage `json:"payload"`
}

func (e SignalRelay) EventName() string { return e.Kind }

// SessionEnded is the advisory host broadcast; clients are expected to
// leave on their own, cleanup still runs through normal disconnect paths.
type SessionEnded struct {
	RoomID domain.RoomID `json:"roomId"`
}

func (SessionEnded) EventName() string { return EventSessionEnded }

// ErrorReply is a structured failure sent only to the originating
// connection.
type ErrorReply struct {
	Name    string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (ErrorReply) EventName() string { return EventError }
