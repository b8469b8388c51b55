package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bomberman-arena/internal/chat"
	"bomberman-arena/internal/game"
	"bomberman-arena/internal/protocol"
	"bomberman-arena/internal/room"
)

func TestHandleJoinGame(t *testing.T) {
	m := &fakeManager{}
	h := NewMessageHandler(m, nil)
	p := newPeer("p1")

	h.Handle(p, []byte(`{"type":"JOIN_GAME","nickname":"  Ann ","mapId":2}`))

	require.Len(t, m.joins, 1)
	assert.Equal(t, joinCall{"p1", "Ann", 2}, m.joins[0])
	assert.Empty(t, p.sent(), "manager sends LOBBY_JOINED itself")
}

func TestHandleErrorsGoToSender(t *testing.T) {
	tests := []struct {
		name    string
		manager *fakeManager
		frame   string
		want    protocol.Code
	}{
		{"malformed", &fakeManager{}, `{"type":`, protocol.CodeInvalidMessage},
		{"unknown type", &fakeManager{}, `{"type":"DANCE"}`, protocol.CodeUnknownType},
		{"bad nickname", &fakeManager{}, `{"type":"JOIN_GAME","nickname":"<script>"}`, protocol.CodeInvalidNickname},
		{"bad map", &fakeManager{}, `{"type":"JOIN_GAME","nickname":"Ann","mapId":77}`, protocol.CodeInvalidMap},
		{"already joined", &fakeManager{joinErr: room.ErrAlreadyJoined}, `{"type":"JOIN_GAME","nickname":"Ann"}`, protocol.CodeAlreadyJoined},
		{"move without room", &fakeManager{inputErr: room.ErrNoRoom}, `{"type":"MOVE","direction":"UP","sequenceNumber":1}`, protocol.CodeNoRoom},
		{"bomb without room", &fakeManager{inputErr: room.ErrNoRoom}, `{"type":"PLACE_BOMB"}`, protocol.CodeNoRoom},
		{"chat outside lobby", &fakeManager{chatErr: room.ErrNotInLobbyOrRoom}, `{"type":"CHAT_MESSAGE","text":"hi"}`, protocol.CodeNoRoom},
		{"internal error", &fakeManager{inputErr: errBroken}, `{"type":"PLACE_BOMB"}`, protocol.CodeMessageError},
		{"bad direction", &fakeManager{}, `{"type":"MOVE","direction":"NORTH","sequenceNumber":1}`, protocol.CodeInvalidDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPeer("p1")
			NewMessageHandler(tt.manager, nil).Handle(p, []byte(tt.frame))
			assert.Equal(t, []protocol.Code{tt.want}, p.errorCodes())
		})
	}
}

func TestHandleMoveRoutesToManager(t *testing.T) {
	m := &fakeManager{}
	h := NewMessageHandler(m, nil)
	p := newPeer("p1")

	h.Handle(p, []byte(`{"type":"MOVE","direction":"LEFT","sequenceNumber":7}`))
	h.Handle(p, []byte(`{"type":"PLACE_BOMB"}`))

	require.Len(t, m.inputs, 2)
	assert.Equal(t, protocol.Move{Direction: game.Left, SequenceNumber: 7}, m.inputs[0])
	assert.Equal(t, protocol.PlaceBomb{}, m.inputs[1])
	assert.Empty(t, p.sent())
}

func TestHandleRateLimited(t *testing.T) {
	m := &fakeManager{}
	p := newPeer("p1")
	p.blocked = true

	NewMessageHandler(m, nil).Handle(p, []byte(`{"type":"PLACE_BOMB"}`))

	assert.Equal(t, []protocol.Code{protocol.CodeRateLimited}, p.errorCodes())
	assert.Empty(t, m.inputs)
}

func TestHandleRecoversPanics(t *testing.T) {
	m := &fakeManager{panicOnInput: true}
	p := newPeer("p1")

	assert.NotPanics(t, func() {
		NewMessageHandler(m, nil).Handle(p, []byte(`{"type":"PLACE_BOMB"}`))
	})
	assert.Equal(t, []protocol.Code{protocol.CodeMessageError}, p.errorCodes())
}

func TestHandleChatModeration(t *testing.T) {
	m := &fakeManager{}
	moderator := chat.NewModerator(chat.NewRateLimiter(chat.RateLimitConfig{
		MaxPerWindow:   1,
		WindowDuration: 1 << 40,
	}))
	h := NewMessageHandler(m, moderator)
	p := newPeer("p1")

	h.Handle(p, []byte(`{"type":"CHAT_MESSAGE","text":"gg   wp"}`))
	h.Handle(p, []byte(`{"type":"CHAT_MESSAGE","text":"again"}`))

	assert.Equal(t, []string{"gg wp"}, m.chats)
	assert.Equal(t, []protocol.Code{protocol.CodeRateLimited}, p.errorCodes())
}

func TestHandleQuitIsSilentWhenNotJoined(t *testing.T) {
	m := &fakeManager{disconnectErr: room.ErrNotInLobbyOrRoom}
	p := newPeer("p1")

	NewMessageHandler(m, nil).Handle(p, []byte(`{"type":"QUIT_GAME"}`))

	assert.Equal(t, []string{"p1"}, m.disconnects)
	assert.Empty(t, p.sent())
}

func TestDisconnectUsesQuitPath(t *testing.T) {
	m := &fakeManager{}
	NewMessageHandler(m, nil).Disconnect(newPeer("p9"))
	assert.Equal(t, []string{"p9"}, m.disconnects)
}

func TestHandleWithRealManager(t *testing.T) {
	mgr := room.NewManager(testGameConfig(), testLobbyConfig(), room.ManagerOptions{})
	t.Cleanup(mgr.Shutdown)
	h := NewMessageHandler(mgr, nil)

	a, b := newPeer("a"), newPeer("b")
	h.Handle(a, []byte(`{"type":"JOIN_GAME","nickname":"Ann","mapId":1}`))
	h.Handle(b, []byte(`{"type":"JOIN_GAME","nickname":"Bob","mapId":1}`))
	h.Handle(a, []byte(`{"type":"JOIN_GAME","nickname":"Ann","mapId":1}`))

	require.NotEmpty(t, a.sent())
	assert.Equal(t, protocol.TypeLobbyJoined, a.sent()[0].Type)
	assert.Equal(t, []protocol.Code{protocol.CodeAlreadyJoined}, a.errorCodes())

	h.Handle(a, []byte(`{"type":"MOVE","direction":"UP","sequenceNumber":1}`))
	assert.Equal(t, []protocol.Code{protocol.CodeAlreadyJoined, protocol.CodeNoRoom}, a.errorCodes())

	h.Handle(b, []byte(`{"type":"CHAT_MESSAGE","text":"hi"}`))
	var chats int
	for _, msg := range a.sent() {
		if msg.Type == protocol.TypeChatMessage {
			chats++
		}
	}
	assert.Equal(t, 1, chats)

	h.Disconnect(b)
	assert.Equal(t, 1, mgr.Stats().PlayersInLobbies)
}
