package api

import (
	"errors"
	"fmt"
	"log"
	"runtime/debug"

	"bomberman-arena/internal/chat"
	"bomberman-arena/internal/metrics"
	"bomberman-arena/internal/protocol"
	"bomberman-arena/internal/room"
)

// Peer is the sending side of a frame: a room connection with an inbound budget
type Peer interface {
	room.Connection
	allow() bool
}

// MessageHandler decodes client frames and routes them to the manager.
// Protocol failures go back to the sender only; rejected moves and bombs
// are silent.
type MessageHandler struct {
	manager Manager
	chat    *chat.Moderator
}

// NewMessageHandler creates a handler. A nil moderator relays chat unfiltered.
func NewMessageHandler(manager Manager, moderator *chat.Moderator) *MessageHandler {
	return &MessageHandler{manager: manager, chat: moderator}
}

// Handle processes one inbound frame
func (h *MessageHandler) Handle(p Peer, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic handling message from %s: %v\n%s", p.PlayerID(), r, debug.Stack())
			h.reply(p, protocol.ErrorMessage(protocol.CodeMessageError, "failed to process message"))
		}
	}()

	if !p.allow() {
		metrics.InboundMessage("rate_limited")
		h.reply(p, protocol.ErrorMessage(protocol.CodeRateLimited, "too many messages"))
		return
	}

	intent, err := protocol.Decode(raw)
	if err != nil {
		metrics.InboundMessage("invalid")
		h.reply(p, protocol.ErrorFrom(err))
		return
	}
	metrics.InboundMessage(intent.Kind())

	if err := h.route(p, intent); err != nil {
		h.reply(p, protocol.ErrorFrom(toProtocolError(err)))
	}
}

func (h *MessageHandler) route(p Peer, intent protocol.Intent) error {
	id := p.PlayerID()

	switch in := intent.(type) {
	case protocol.JoinGame:
		info, err := h.manager.JoinLobby(id, in.Nickname, in.MapID, p)
		if err != nil {
			return err
		}
		log.Printf("🙋 %s (%s) joined lobby %s", in.Nickname, id, info.ID)
		return nil

	case protocol.Move, protocol.PlaceBomb:
		_, err := h.manager.HandleInput(id, in)
		return err

	case protocol.Chat:
		text := in.Text
		if h.chat != nil {
			var err error
			if text, err = h.chat.Review(id, text); err != nil {
				return err
			}
		}
		return h.manager.Chat(id, text)

	case protocol.Quit:
		if err := h.manager.HandleDisconnect(id); err != nil && !errors.Is(err, room.ErrNotInLobbyOrRoom) {
			return err
		}
		return nil
	}

	return fmt.Errorf("unhandled intent %s", intent.Kind())
}

// Disconnect is called once when a socket closes
func (h *MessageHandler) Disconnect(p Peer) {
	id := p.PlayerID()
	if err := h.manager.HandleDisconnect(id); err != nil && !errors.Is(err, room.ErrNotInLobbyOrRoom) {
		log.Printf("⚠️ Disconnect cleanup for %s failed: %v", id, err)
	}
	if h.chat != nil {
		h.chat.Forget(id)
	}
}

func (h *MessageHandler) reply(p Peer, msg protocol.Message) {
	if err := p.Send(msg); err != nil {
		metrics.SendFailed()
	}
}

// toProtocolError maps manager errors onto wire codes
func toProtocolError(err error) error {
	switch {
	case errors.Is(err, room.ErrAlreadyJoined):
		return protocol.Errorf(protocol.CodeAlreadyJoined, "already in a lobby or game")
	case errors.Is(err, room.ErrNoRoom), errors.Is(err, room.ErrNotInLobbyOrRoom):
		return protocol.Errorf(protocol.CodeNoRoom, "not in an active game")
	case errors.Is(err, room.ErrUnknownMap):
		return protocol.Errorf(protocol.CodeInvalidMap, "unknown map")
	}
	return err
}
