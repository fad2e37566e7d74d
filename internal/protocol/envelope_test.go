package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	for _, ev := range []ServerEvent{
		RoomConnectionEstablished{Room: &domain.Room{ID: "r1", Name: "Maths", CreatedBy: "t1"}},
		RoomConnectionTerminated{RoomID: "r1"},
		EstablishPeerConnection{UserID: "u1", UserName: "Alice"},
		TerminatePeerConnection{UserID: "u1"},
		MessageReceived{From: "u1", Data: json.RawMessage(`{"kind":"chat"}`)},
		SignalRelay{Kind: KindAnswer, SenderID: "u1", RoomID: "r1", Payload: json.RawMessage(`{"sdp":"v=0"}`)},
		SessionEnded{RoomID: "r1"},
		ErrorReply{Name: "room_full", Message: "Room is full"},
	} {
		t.Run(ev.EventName(), func(t *testing.T) {
			b, err := Encode(ev)
			require.NoError(t, err)

			got, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, ev.EventName(), got.EventName())
			assert.Equal(t, ev, got)
		})
	}
}

func TestDecodeRejectsUnknownEvent(t *testing.T) {
	_, err := Decode([]byte(`{"event":"whatever","data":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
