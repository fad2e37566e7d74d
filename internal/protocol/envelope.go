package protocol

import (
	"encoding/json"
	"fmt"
)

// envelope is the framing used when an event crosses the pub/sub bridge
// between gateway instances.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func Encode(ev ServerEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	return json.Marshal(envelope{Event: ev.EventName(), Data: data})
}

func Decode(b []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var (
		ev      ServerEvent
		decoded any
	)
	switch env.Event {
	case EventRoomEstablished:
		decoded = &RoomConnectionEstablished{}
	case EventRoomTerminated:
		decoded = &RoomConnectionTerminated{}
	case EventEstablishPeer:
		decoded = &EstablishPeerConnection{}
	case EventTerminatePeer:
		decoded = &TerminatePeerConnection{}
	case EventMessageReceived:
		decoded = &MessageReceived{}
	case KindOffer, KindAnswer, KindICECandidate:
		decoded = &SignalRelay{}
	case EventSessionEnded:
		decoded = &SessionEnded{}
	case EventError:
		decoded = &ErrorReply{}
	default:
		return nil, fmt.Errorf("decode envelope: unknown event %q", env.Event)
	}
	if err := json.Unmarshal(env.Data, decoded); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Event, err)
	}

	// Hand adapters value events so they match what the router emits
	// locally.
	switch e := decoded.(type) {
	case *RoomConnectionEstablished:
		ev = *e
	case *RoomConnectionTerminated:
		ev = *e
	case *EstablishPeerConnection:
		ev = *e
	case *TerminatePeerConnection:
		ev = *e
	case *MessageReceived:
		ev = *e
	case *SignalRelay:
		ev = *e
	case *SessionEnded:
		ev = *e
	case *ErrorReply:
		ev = *e
	}
	return ev, nil
}
