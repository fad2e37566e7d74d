package signal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

// handleRelay validates negotiation payloads once at the boundary and
// forwards them opaque. Only metadata moves here; media never touches
// this layer.
func (ctl *WSController) handleRelay(ctx context.Context, st *connState, kind string, data []byte) error {
	var p struct {
		Type      string          `json:"type"`
		RoomID    string          `json:"roomId" validate:"required"`
		TargetID  string          `json:"target_id"`
		Offer     json.RawMessage `json:"offer"`
		Answer    json.RawMessage `json:"answer"`
		Candidate json.RawMessage `json:"candidate"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}

	var payload json.RawMessage
	switch kind {
	case protocol.KindOffer:
		payload = p.Offer
	case protocol.KindAnswer:
		payload = p.Answer
	case protocol.KindICECandidate:
		payload = p.Candidate
	}
	if err := checkRelayPayload(kind, payload); err != nil {
		return err
	}

	return ctl.Orch.Relay(ctx, st.id, kind, domain.RoomID(p.RoomID), domain.UserID(p.TargetID), payload)
}

func checkRelayPayload(kind string, payload json.RawMessage) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: missing %s body", domain.ErrMalformedEvent, kind)
	}
	switch kind {
	case protocol.KindOffer, protocol.KindAnswer:
		var sdp webrtc.SessionDescription
		if err := json.Unmarshal(payload, &sdp); err != nil || sdp.SDP == "" {
			return fmt.Errorf("%w: bad session description", domain.ErrMalformedEvent)
		}
	case protocol.KindICECandidate:
		var cand webrtc.ICECandidateInit
		if err := json.Unmarshal(payload, &cand); err != nil || cand.Candidate == "" {
			return fmt.Errorf("%w: bad ice candidate", domain.ErrMalformedEvent)
		}
	}
	return nil
}
