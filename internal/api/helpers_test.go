package api

import (
	"errors"
	"sync"

	"bomberman-arena/internal/protocol"
	"bomberman-arena/internal/room"
)

type fakePeer struct {
	mu      sync.Mutex
	id      string
	msgs    []protocol.Message
	blocked bool
}

func newPeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) PlayerID() string { return p.id }
func (p *fakePeer) Connected() bool  { return true }
func (p *fakePeer) allow() bool      { return !p.blocked }

func (p *fakePeer) Send(msg protocol.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePeer) sent() []protocol.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]protocol.Message(nil), p.msgs...)
}

// errorCodes lists the codes of every ERROR frame received
func (p *fakePeer) errorCodes() []protocol.Code {
	var codes []protocol.Code
	for _, m := range p.sent() {
		if m.Type == protocol.TypeError {
			codes = append(codes, m.Payload.(protocol.ErrorPayload).ErrorCode)
		}
	}
	return codes
}

type joinCall struct {
	playerID, nickname string
	mapID              int
}

// fakeManager records calls; the err fields are returned by the matching method
type fakeManager struct {
	mu sync.Mutex

	joins       []joinCall
	inputs      []protocol.Intent
	chats       []string
	disconnects []string

	joinErr       error
	inputErr      error
	chatErr       error
	disconnectErr error
	panicOnInput  bool

	rooms map[string]*room.Room
	stats room.Stats
}

func (m *fakeManager) JoinLobby(playerID, nickname string, mapID int, conn room.Connection) (*room.LobbyInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joins = append(m.joins, joinCall{playerID, nickname, mapID})
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	return &room.LobbyInfo{ID: "lobby-1", MapID: mapID, PlayerCount: 1, MaxPlayers: 4}, nil
}

func (m *fakeManager) HandleInput(playerID string, intent protocol.Intent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOnInput {
		panic("boom")
	}
	m.inputs = append(m.inputs, intent)
	return m.inputErr == nil, m.inputErr
}

func (m *fakeManager) HandleDisconnect(playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects = append(m.disconnects, playerID)
	return m.disconnectErr
}

func (m *fakeManager) Chat(playerID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, text)
	return m.chatErr
}

func (m *fakeManager) Lobbies() []room.LobbyInfo { return []room.LobbyInfo{} }
func (m *fakeManager) Rooms() []room.Summary     { return []room.Summary{} }
func (m *fakeManager) Stats() room.Stats         { return m.stats }

func (m *fakeManager) Room(roomID string) (*room.Room, bool) {
	r, ok := m.rooms[roomID]
	return r, ok
}

var errBroken = errors.New("broken")
