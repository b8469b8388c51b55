package protocol

import "bomberman-arena/internal/game"

// =============================================================================
// LOBBY
// =============================================================================

func LobbyJoined(playerID, lobbyID string, mapID, count, capacity int) Message {
	return newMessage(TypeLobbyJoined, LobbyJoinedPayload{
		PlayerID:    playerID,
		LobbyID:     lobbyID,
		MapID:       mapID,
		PlayerCount: count,
		MaxPlayers:  capacity,
	})
}

func PlayerJoined(playerID, nickname string, count int) Message {
	return newMessage(TypePlayerJoined, PlayerJoinedPayload{PlayerID: playerID, Nickname: nickname, PlayerCount: count})
}

func PlayerLeft(playerID string) Message {
	return newMessage(TypePlayerLeft, PlayerIDPayload{PlayerID: playerID})
}

func CountdownStart(seconds int) Message {
	return newMessage(TypeCountdownStart, CountdownStartPayload{Duration: seconds})
}

func CountdownTick(remaining int) Message {
	return newMessage(TypeCountdownTick, CountdownTickPayload{Remaining: remaining})
}

// =============================================================================
// ROOM
// =============================================================================

// GameStarted is unicast; yourPlayerID differs per recipient
func GameStarted(roomID string, def *game.MapDefinition, grid [][]int, players []game.Player, yourPlayerID string) Message {
	views := make([]PlayerView, len(players))
	for i := range players {
		views[i] = ViewPlayer(&players[i])
	}
	return newMessage(TypeGameStarted, GameStartedPayload{
		RoomID:       roomID,
		MapID:        def.ID,
		Players:      views,
		YourPlayerID: yourPlayerID,
		Map: MapView{
			ID:     def.ID,
			Name:   def.Name,
			Grid:   grid,
			Assets: def.Assets,
		},
	})
}

func PlayerDisconnected(playerID string) Message {
	return newMessage(TypePlayerDisconnected, PlayerIDPayload{PlayerID: playerID})
}

// GameOver carries a nil winner for a draw
func GameOver(winner *string, reason string) Message {
	return newMessage(TypeGameOver, GameOverPayload{Winner: winner, Reason: reason})
}

func ChatMessage(playerID, nickname, text string) Message {
	return newMessage(TypeChatMessage, ChatMessagePayload{PlayerID: playerID, Nickname: nickname, Message: text})
}

func ErrorMessage(code Code, message string) Message {
	return newMessage(TypeError, ErrorPayload{ErrorCode: code, Message: message})
}

// ErrorFrom converts any error into an ERROR frame
func ErrorFrom(err error) Message {
	pe := AsError(err)
	return ErrorMessage(pe.Code, pe.Message)
}

// =============================================================================
// SIMULATION EVENTS
// =============================================================================

// FromEvent translates a simulation event into its broadcast frame.
// GameOver is not translated here: the room adds the end reason.
func FromEvent(ev game.Event) (Message, bool) {
	switch p := ev.Payload.(type) {
	case game.PlayerMovedPayload:
		return newMessage(TypePlayerMoved, PlayerMovedPayload{
			PlayerID:       p.PlayerID,
			X:              p.X,
			Y:              p.Y,
			Direction:      p.Direction,
			SequenceNumber: p.SequenceNumber,
		}), true
	case game.BombPlacedPayload:
		return newMessage(TypeBombPlaced, BombPlacedPayload(p)), true
	case game.BombExplodedPayload:
		return BombExploded(p), true
	case game.PowerUpSpawnedPayload:
		return newMessage(TypePowerUpSpawned, ViewPowerUp(p.PowerUp)), true
	case game.PowerUpCollectedPayload:
		return newMessage(TypePowerUpCollected, PowerUpCollectedPayload(p)), true
	case game.PlayerDamagedPayload:
		return newMessage(TypePlayerDamaged, PlayerDamagedPayload(p)), true
	case game.PlayerDiedPayload:
		return newMessage(TypePlayerDied, PlayerIDPayload(p)), true
	}
	return Message{}, false
}

func BombExploded(p game.BombExplodedPayload) Message {
	payload := BombExplodedPayload{
		BombID:          p.BombID,
		Explosions:      viewCells(p.Explosions),
		DestroyedBlocks: viewCells(p.DestroyedBlocks),
		DamagedPlayers:  p.DamagedPlayers,
		SpawnedPowerUps: make([]PowerUpView, len(p.SpawnedPowerUps)),
	}
	if payload.DamagedPlayers == nil {
		payload.DamagedPlayers = []string{}
	}
	for i, pu := range p.SpawnedPowerUps {
		payload.SpawnedPowerUps[i] = ViewPowerUp(pu)
	}
	if first := p.SpawnedPowerUp(); first != nil {
		view := ViewPowerUp(*first)
		payload.SpawnedPowerUp = &view
	}
	return newMessage(TypeBombExploded, payload)
}

// ViewPlayer strips server-only fields
func ViewPlayer(p *game.Player) PlayerView {
	return PlayerView{
		ID:        p.ID,
		Nickname:  p.Nickname,
		X:         p.X,
		Y:         p.Y,
		GridX:     p.GridX,
		GridY:     p.GridY,
		Lives:     p.Lives,
		Speed:     p.Speed,
		MaxBombs:  p.MaxBombs,
		BombRange: p.BombRange,
		Alive:     p.Alive,
	}
}

func ViewPowerUp(pu game.PowerUp) PowerUpView {
	return PowerUpView{PowerUpID: pu.ID, Type: pu.Type, GridX: pu.GridX, GridY: pu.GridY}
}

func viewCells(cells []game.Cell) []CellView {
	out := make([]CellView, len(cells))
	for i, c := range cells {
		out[i] = CellView{GridX: c.X, GridY: c.Y}
	}
	return out
}
