package classroom

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahendrakanna/edupravahaa-web/internal/app"
	"github.com/mahendrakanna/edupravahaa-web/internal/app/orch"
	"github.com/mahendrakanna/edupravahaa-web/internal/auth"
	"github.com/mahendrakanna/edupravahaa-web/internal/config"
	"github.com/mahendrakanna/edupravahaa-web/internal/core"
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
	"github.com/mahendrakanna/edupravahaa-web/internal/presence"
	"github.com/mahendrakanna/edupravahaa-web/internal/protocol"
)

func newSession(uid, name string) *classSession {
	return &classSession{
		user: &domain.User{ID: domain.UserID(uid), Username: name, Role: domain.RoleStudent},
		conn: &classConn{send: make(chan []byte, 8)},
	}
}

func drain(t *testing.T, s *classSession) map[string]any {
	t.Helper()
	select {
	case b := <-s.conn.send:
		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		return m
	default:
		t.Fatal("expected a frame on the send queue")
		return nil
	}
}

func TestEmitChatMessage(t *testing.T) {
	s := newSession("u1", "Alice")
	body, _ := json.Marshal(relayed{Kind: "chat", Message: "hello", Sender: "u2"})

	require.NoError(t, s.Emit(protocol.MessageReceived{From: "u2", Data: body}))

	m := drain(t, s)
	assert.Equal(t, "chat", m["type"])
	assert.Equal(t, "hello", m["message"])
	assert.Equal(t, "u2", m["sender"])
	assert.Equal(t, false, m["is_emoji"])
}

func TestEmitSignalingMessage(t *testing.T) {
	s := newSession("u1", "Alice")
	body, _ := json.Marshal(relayed{Kind: "signaling", Data: json.RawMessage(`{"sdp":"v=0"}`), Sender: "u2"})

	require.NoError(t, s.Emit(protocol.MessageReceived{From: "u2", Data: body}))

	m := drain(t, s)
	assert.Equal(t, "signaling", m["type"])
	assert.Equal(t, "u2", m["sender"])
	assert.NotNil(t, m["data"])
}

func TestEmitJoinLeaveBecomeSystemNotices(t *testing.T) {
	s := newSession("u1", "Alice")

	require.NoError(t, s.Emit(protocol.EstablishPeerConnection{UserID: "u2", UserName: "Bob"}))
	m := drain(t, s)
	assert.Equal(t, "chat", m["type"])
	assert.Equal(t, "Bob joined the class", m["message"])
	assert.Equal(t, "system", m["sender"])

	require.NoError(t, s.Emit(protocol.TerminatePeerConnection{UserID: "u2"}))
	m = drain(t, s)
	assert.Equal(t, "u2 left the class", m["message"])
	assert.Equal(t, "system", m["sender"])
}

func TestEmitSessionEnded(t *testing.T) {
	s := newSession("u1", "Alice")
	require.NoError(t, s.Emit(protocol.SessionEnded{RoomID: "c1"}))
	assert.Equal(t, "session-ended", drain(t, s)["type"])
}

func TestEmitDropsEventsWithoutChatMeaning(t *testing.T) {
	s := newSession("u1", "Alice")
	require.NoError(t, s.Emit(protocol.RoomConnectionEstablished{Room: &domain.Room{ID: "c1"}}))
	assert.Empty(t, s.conn.send)
}

func newClassroomHarness(t *testing.T) (*WSController, presence.Store) {
	t.Helper()
	store := presence.NewMemoryStore()
	reg := app.NewRegistry(store)
	o := &orch.Orchestrator{
		Registry: reg,
		Rooms:    app.NewRoomManager(store),
		Store:    store,
		Gate:     auth.AllowAll{},
		Policy:   app.DropPolicy{},
	}
	return NewWSController(o, nil, &config.Config{}), store
}

func connect(t *testing.T, ctl *WSController, cid core.ConnID, s *classSession, classID domain.RoomID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, ctl.Orch.Connect(ctx, cid, s, func() {}, ""))
	_, err := ctl.Orch.JoinRoom(ctx, cid, s.user.Username, classID)
	require.NoError(t, err)
}

func TestChatRelayReachesPeersAndEchoesSender(t *testing.T) {
	ctl, _ := newClassroomHarness(t)
	alice := newSession("u1", "Alice")
	bob := newSession("u2", "Bob")
	connect(t, ctl, "c1", alice, "class1")
	connect(t, ctl, "c2", bob, "class1")

	// Bob hears Alice joining; clear both queues first.
	for len(alice.conn.send) > 0 {
		<-alice.conn.send
	}
	for len(bob.conn.send) > 0 {
		<-bob.conn.send
	}

	ctl.handleMessage(context.Background(), "c1", "class1", alice, []byte(`{"type":"chat","message":"hi all"}`))

	m := drain(t, bob)
	assert.Equal(t, "chat", m["type"])
	assert.Equal(t, "hi all", m["message"])
	assert.Equal(t, "u1", m["sender"])

	// Sender sees their own line too.
	m = drain(t, alice)
	assert.Equal(t, "hi all", m["message"])
}

func TestOverlongChatDroppedSilently(t *testing.T) {
	ctl, _ := newClassroomHarness(t)
	alice := newSession("u1", "Alice")
	bob := newSession("u2", "Bob")
	connect(t, ctl, "c1", alice, "class1")
	connect(t, ctl, "c2", bob, "class1")
	for len(bob.conn.send) > 0 {
		<-bob.conn.send
	}

	long := strings.Repeat("я", maxChatLen+1)
	payload, _ := json.Marshal(map[string]string{"type": "chat", "message": long})
	ctl.handleMessage(context.Background(), "c1", "class1", alice, payload)
	assert.Empty(t, bob.conn.send)

	// Exactly at the cap still goes through; the limit counts runes,
	// not bytes.
	ok := strings.Repeat("я", maxChatLen)
	payload, _ = json.Marshal(map[string]string{"type": "chat", "message": ok})
	ctl.handleMessage(context.Background(), "c1", "class1", alice, payload)
	assert.Equal(t, ok, drain(t, bob)["message"])
}

func TestEmptyChatDropped(t *testing.T) {
	ctl, _ := newClassroomHarness(t)
	alice := newSession("u1", "Alice")
	connect(t, ctl, "c1", alice, "class1")
	for len(alice.conn.send) > 0 {
		<-alice.conn.send
	}

	ctl.handleMessage(context.Background(), "c1", "class1", alice, []byte(`{"type":"chat","message":""}`))
	assert.Empty(t, alice.conn.send)
}

func TestEmojiAllowlist(t *testing.T) {
	ctl, _ := newClassroomHarness(t)
	alice := newSession("u1", "Alice")
	bob := newSession("u2", "Bob")
	connect(t, ctl, "c1", alice, "class1")
	connect(t, ctl, "c2", bob, "class1")
	for len(bob.conn.send) > 0 {
		<-bob.conn.send
	}

	ctl.handleMessage(context.Background(), "c1", "class1", alice, []byte(`{"type":"emoji","emoji":"👍"}`))
	m := drain(t, bob)
	assert.Equal(t, "\U0001F44D", m["message"])
	assert.Equal(t, true, m["is_emoji"])

	// Not on the list: dropped without a frame to anyone.
	ctl.handleMessage(context.Background(), "c1", "class1", alice, []byte(`{"type":"emoji","emoji":"😈"}`))
	assert.Empty(t, bob.conn.send)
}

type denyGate struct{}

func (denyGate) CanJoin(context.Context, *domain.User, domain.RoomID) (bool, error) {
	return false, nil
}

func TestRejectedJoinGetsErrorFrame(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := presence.NewMemoryStore()
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(store),
		Rooms:    app.NewRoomManager(store),
		Store:    store,
		Gate:     denyGate{},
		Policy:   app.DropPolicy{},
	}
	tokens := auth.NewTokenVerifier("test-secret")
	ctl := NewWSController(o, tokens, &config.Config{})

	r := gin.New()
	r.GET("/api/ws/class/:id", func(c *gin.Context) { ctl.Handle(context.Background(), c) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		SessionID: "sess-1",
		Name:      "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/class/c1?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err, "rejected join must deliver a named error, not a bare close")

	var m map[string]any
	require.NoError(t, json.Unmarshal(frame, &m))
	assert.Equal(t, "error", m["type"])
	assert.Equal(t, "authorization_denied", m["error"])
}

func TestUnknownMessageTypeIgnored(t *testing.T) {
	ctl, _ := newClassroomHarness(t)
	alice := newSession("u1", "Alice")
	connect(t, ctl, "c1", alice, "class1")
	for len(alice.conn.send) > 0 {
		<-alice.conn.send
	}

	ctl.handleMessage(context.Background(), "c1", "class1", alice, []byte(`{"type":"dance"}`))
	assert.Empty(t, alice.conn.send)
}
