package signal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mahendrakanna/edupravahaa-web/internal/app/orch"
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
)

func (ctl *WSController) handleAuth(ctx context.Context, cancel context.CancelFunc, st *connState, data []byte) {
	var p struct {
		Type          string `json:"type"`
		Token         string `json:"token" validate:"required"`
		CurrentRoomID string `json:"currentRoomId"`
	}
	if err := decode(data, &p); err != nil {
		ctl.sendError(st.conn, err)
		return
	}
	if err := ctl.authenticate(ctx, st, cancel, p.Token, p.CurrentRoomID); err != nil {
		ctl.sendError(st.conn, err)
		return
	}
	_ = st.conn.trySend([]byte(`{"type":"authenticated"}`))
}

func (ctl *WSController) handleCreateRoom(ctx context.Context, st *connState, data []byte) error {
	var p struct {
		Type string `json:"type"`
		Room struct {
			ID   string             `json:"id"`
			Name string             `json:"name" validate:"omitempty,max=64"`
			Opts domain.RoomOptions `json:"opts"`
		} `json:"room"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}
	_, err := ctl.Orch.CreateRoom(ctx, st.id, orch.CreateRoomRequest{
		ID:      p.Room.ID,
		Name:    p.Room.Name,
		Options: p.Room.Opts,
	})
	return err
}

func (ctl *WSController) handleJoinRoom(ctx context.Context, st *connState, data []byte) error {
	var p struct {
		Type     string `json:"type"`
		UserName string `json:"userName" validate:"omitempty,max=64"`
		RoomID   string `json:"roomId" validate:"required"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}
	_, err := ctl.Orch.JoinRoom(ctx, st.id, p.UserName, domain.RoomID(p.RoomID))
	return err
}

func (ctl *WSController) handleLeaveRoom(ctx context.Context, st *connState, data []byte) error {
	var p struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId" validate:"required"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}
	return ctl.Orch.LeaveRoom(ctx, st.id, domain.RoomID(p.RoomID))
}

func (ctl *WSController) handleSendMessage(ctx context.Context, st *connState, data []byte) error {
	var p struct {
		Type   string          `json:"type"`
		RoomID string          `json:"roomId" validate:"required"`
		Data   json.RawMessage `json:"data" validate:"required"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}
	return ctl.Orch.SendMessage(ctx, st.id, domain.RoomID(p.RoomID), p.Data)
}

func (ctl *WSController) handleEndSession(ctx context.Context, st *connState, data []byte) error {
	var p struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId" validate:"required"`
	}
	if err := decode(data, &p); err != nil {
		return err
	}
	return ctl.Orch.EndSession(ctx, st.id, domain.RoomID(p.RoomID))
}

// decode unmarshals and validates an inbound payload; anything off gets
// the malformed-event rejection before reaching business logic.
func decode(data []byte, into any) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrMalformedEvent, "bad payload")
	}
	if err := validate.Struct(into); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrMalformedEvent, err)
	}
	return nil
}
