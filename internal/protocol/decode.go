package protocol

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"bomberman-arena/internal/game"
)

// Client -> Server message types
const (
	TypeJoinGame  = "JOIN_GAME"
	TypeMove      = "MOVE"
	TypePlaceBomb = "PLACE_BOMB"
	TypeChat      = "CHAT_MESSAGE"
	TypeQuitGame  = "QUIT_GAME"
)

// MaxChatLength is the longest chat line accepted, in runes
const MaxChatLength = 200

var nicknameRegex = regexp.MustCompile(`^[A-Za-z0-9 _-]{1,20}$`)

// Intent is a decoded client message. The concrete types below are the
// only implementations.
type Intent interface {
	Kind() string
}

// JoinGame asks to enter a lobby for a map. MapID 0 means any map.
type JoinGame struct {
	Nickname string
	MapID    int
}

// Move is a one-step movement request
type Move struct {
	Direction      game.Direction
	SequenceNumber int64
}

// PlaceBomb drops a bomb on the sender's cell
type PlaceBomb struct{}

// Chat is a chat line, already trimmed
type Chat struct {
	Text string
}

// Quit leaves the current lobby or room
type Quit struct{}

func (JoinGame) Kind() string  { return TypeJoinGame }
func (Move) Kind() string      { return TypeMove }
func (PlaceBomb) Kind() string { return TypePlaceBomb }
func (Chat) Kind() string      { return TypeChat }
func (Quit) Kind() string      { return TypeQuitGame }

type inbound struct {
	Type string `json:"type"`

	Nickname       *string `json:"nickname"`
	MapID          *int    `json:"mapId"`
	Direction      *string `json:"direction"`
	SequenceNumber *int64  `json:"sequenceNumber"`
	Text           *string `json:"text"`
}

// Decode parses one client frame into a typed intent. Failures are *Error.
func Decode(data []byte) (Intent, error) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, Errorf(CodeInvalidMessage, "malformed JSON")
	}

	switch msg.Type {
	case TypeJoinGame:
		return decodeJoin(msg)
	case TypeMove:
		return decodeMove(msg)
	case TypePlaceBomb:
		return PlaceBomb{}, nil
	case TypeChat:
		return decodeChat(msg)
	case TypeQuitGame:
		return Quit{}, nil
	case "":
		return nil, Errorf(CodeInvalidMessage, "missing message type")
	default:
		return nil, Errorf(CodeUnknownType, "unknown message type %q", msg.Type)
	}
}

func decodeJoin(msg inbound) (Intent, error) {
	if msg.Nickname == nil {
		return nil, Errorf(CodeInvalidNickname, "nickname is required")
	}
	nickname := strings.TrimSpace(*msg.Nickname)
	if !ValidNickname(nickname) {
		return nil, Errorf(CodeInvalidNickname, "nickname must be 1-20 letters, digits, spaces, '-' or '_'")
	}

	mapID := game.RandomMap
	if msg.MapID != nil {
		mapID = *msg.MapID
	}
	if !game.ValidMapID(mapID) {
		return nil, Errorf(CodeInvalidMap, "unknown map %d", mapID)
	}

	return JoinGame{Nickname: nickname, MapID: mapID}, nil
}

func decodeMove(msg inbound) (Intent, error) {
	if msg.Direction == nil || !game.Direction(*msg.Direction).Valid() {
		return nil, Errorf(CodeInvalidDirection, "direction must be UP, DOWN, LEFT or RIGHT")
	}
	if msg.SequenceNumber == nil || *msg.SequenceNumber < 0 {
		return nil, Errorf(CodeInvalidSequence, "sequenceNumber must be a non-negative integer")
	}
	return Move{Direction: game.Direction(*msg.Direction), SequenceNumber: *msg.SequenceNumber}, nil
}

func decodeChat(msg inbound) (Intent, error) {
	if msg.Text == nil {
		return nil, Errorf(CodeInvalidChat, "text is required")
	}
	text := strings.TrimSpace(*msg.Text)
	if text == "" || utf8.RuneCountInString(text) > MaxChatLength || !utf8.ValidString(text) {
		return nil, Errorf(CodeInvalidChat, "chat must be 1-%d characters", MaxChatLength)
	}
	return Chat{Text: text}, nil
}

// ValidNickname reports whether name is acceptable as a display name
func ValidNickname(name string) bool {
	return nicknameRegex.MatchString(name)
}
