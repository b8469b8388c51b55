package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bomberman-arena/internal/game"
	"bomberman-arena/internal/protocol"
)

// Read-only introspection handlers. Nothing here mutates a lobby or room.

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.manager.Stats())
}

type mapSummary struct {
	ID      int              `json:"id"`
	Name    string           `json:"name"`
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Spawns  int              `json:"spawns"`
	Assets  game.MapAssets   `json:"assets"`
	Preview protocol.MapView `json:"preview"`
}

func (h *routerHandlers) handleGetMaps(w http.ResponseWriter, r *http.Request) {
	list := make([]mapSummary, 0)
	for _, id := range game.MapIDs() {
		def, grid, err := game.LoadMap(id)
		if err != nil {
			writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		list = append(list, mapSummary{
			ID:      def.ID,
			Name:    def.Name,
			Width:   grid.Width(),
			Height:  grid.Height(),
			Spawns:  len(def.Spawns),
			Assets:  def.Assets,
			Preview: protocol.MapView{ID: def.ID, Name: def.Name, Grid: grid.Rows(), Assets: def.Assets},
		})
	}
	writeJSON(w, list)
}

func (h *routerHandlers) handleGetLobbies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.manager.Lobbies())
}

func (h *routerHandlers) handleGetRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.manager.Rooms())
}

func (h *routerHandlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.manager.Room(chi.URLParam(r, "roomID"))
	if !ok {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rm.Summary())
}

// handleGetRoomState serves the full-state snapshot used for client resync
func (h *routerHandlers) handleGetRoomState(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.manager.Room(chi.URLParam(r, "roomID"))
	if !ok {
		writeError(w, "Room not found", http.StatusNotFound)
		return
	}
	state, ok := rm.Snapshot()
	if !ok {
		writeError(w, "Room not initialized", http.StatusConflict)
		return
	}
	writeJSON(w, state)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
