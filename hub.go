package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"werewolf-extreme/engine"
)

// WSMessage represents a message from the client
type WSMessage struct {
	Action            string `json:"action"`
	Preset            string `json:"preset,omitempty"`
	TargetID          string `json:"target_id,omitempty"`
	SecondaryTargetID string `json:"secondary_target_id,omitempty"`
	Kind              string `json:"kind,omitempty"`
	IsAlive           *bool  `json:"is_alive,omitempty"`
}

// Outbound message types
const (
	msgState   = "state"
	msgPrivate = "private"
	msgToast   = "toast"
	msgStory   = "story"
)

// OutMessage is every server → client frame.
type OutMessage struct {
	Type    string        `json:"type"`
	State   *PublicState  `json:"state,omitempty"`
	Private *PrivateState `json:"private,omitempty"`
	Toast   *Toast        `json:"toast,omitempty"`
	Story   string        `json:"story,omitempty"`
}

// PublicState is what everyone in the room sees.
type PublicState struct {
	RoomCode  string                `json:"room_code"`
	HostID    string                `json:"host_id"`
	Phase     engine.Phase          `json:"phase"`
	Turn      int                   `json:"turn"`
	Players   []engine.PublicPlayer `json:"players"`
	Log       []string              `json:"log"`
	Winner    engine.Winner         `json:"winner,omitempty"`
	WinReason string                `json:"win_reason,omitempty"`
	Submitted int                   `json:"submitted"`
}

// PrivateState is one player's role card.
type PrivateState struct {
	PlayerID      string            `json:"player_id"`
	Role          engine.Role       `json:"role"`
	IsAlive       bool              `json:"is_alive"`
	PrivateResult string            `json:"private_result,omitempty"`
	Pack          []string          `json:"pack,omitempty"`
	Lover         string            `json:"lover,omitempty"`
	Attributes    engine.Attributes `json:"attributes"`
}

// Client represents a websocket connection with player info
type Client struct {
	conn     *websocket.Conn
	roomCode string
	playerID string
	writeMu  sync.Mutex // Serialize writes to WebSocket (required by gorilla/websocket)
}

func (c *Client) write(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

type roomMessage struct {
	roomCode string
	data     []byte
}

// Hub fans room updates out to connected clients.
type Hub struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan roomMessage
	register   chan *Client
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	done       chan struct{}
	wg         sync.WaitGroup
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan roomMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn, 64),
		done:       make(chan struct{}),
	}
}

// stop signals the hub goroutine to exit and waits for it to finish
func (h *Hub) stop() {
	close(h.done)
	h.wg.Wait()
}

var hub = newHub()

func encode(msg OutMessage) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		logError("encode "+msg.Type, err)
		return nil
	}
	return data
}

func (h *Hub) sendToPlayer(roomCode, playerID string, msg OutMessage) {
	data := encode(msg)
	if data == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.roomCode != roomCode || client.playerID != playerID {
			continue
		}
		LogWSMessage("OUT", getPlayerName(roomCode, playerID), string(data))
		if err := client.write(data); err != nil {
			appLogger.Warnf("WebSocket write error to player %s: %v", playerID, err)
		}
	}
}

// sendToRoom queues msg for every client in the room. It never blocks once
// the hub has stopped.
func (h *Hub) sendToRoom(roomCode string, msg OutMessage) {
	data := encode(msg)
	if data == nil {
		return
	}
	select {
	case h.broadcast <- roomMessage{roomCode: roomCode, data: data}:
	case <-h.done:
	}
}

// connectedPlayerIDs lists the players of a room with at least one socket.
func (h *Hub) connectedPlayerIDs(roomCode string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for _, c := range h.clients {
		if c.roomCode == roomCode && !seen[c.playerID] {
			seen[c.playerID] = true
			ids = append(ids, c.playerID)
		}
	}
	return ids
}

func (h *Hub) run() {
	h.wg.Add(1)
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.mu.Unlock()
			playerName := getPlayerName(client.roomCode, client.playerID)
			appLogger.Infof("WebSocket client connected (room %s, player %s). Total: %d", client.roomCode, playerName, total)
			DebugLog("hub.register", "Player '%s' (ID: %s) connected via WebSocket", playerName, client.playerID)
			sendSnapshot(client)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				DebugLog("hub.unregister", "Player %s left room %s", client.playerID, client.roomCode)
			}
			total := len(h.clients)
			h.mu.Unlock()
			appLogger.Infof("WebSocket client disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn, client := range h.clients {
				if client.roomCode != message.roomCode {
					continue
				}
				if err := client.write(message.data); err != nil {
					appLogger.Warnf("WebSocket write error: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// sendSnapshot brings a freshly connected client up to date.
func sendSnapshot(client *Client) {
	room, players, lines, err := loadPublicView(client.roomCode)
	if err != nil {
		logError("sendSnapshot", err)
		return
	}
	state := publicState(room, players, lines)
	if data := encode(OutMessage{Type: msgState, State: &state}); data != nil {
		client.write(data)
	}
	for _, p := range players {
		if p.ID == client.playerID {
			priv := privateState(p, players)
			if data := encode(OutMessage{Type: msgPrivate, Private: &priv}); data != nil {
				client.write(data)
			}
		}
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Capture the hub at entry; tests swap the global between runs
	currentHub := hub

	session, err := getSessionFromRequest(r)
	if err != nil {
		DebugLog("handleWebSocket", "Rejected WebSocket connection - no session")
		http.Error(w, "Not logged in", http.StatusUnauthorized)
		return
	}
	if _, err := getRoomPlayer(session.RoomCode, session.PlayerID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errPlayerNotInRoom) {
			status = http.StatusForbidden
		}
		http.Error(w, userMessage(err), status)
		return
	}

	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLogger.Warnf("WebSocket upgrade error for player %s: %v", session.PlayerID, err)
		return
	}

	client := &Client{conn: conn, roomCode: session.RoomCode, playerID: session.PlayerID}
	select {
	case currentHub.register <- client:
	case <-currentHub.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case currentHub.unregister <- conn:
			case <-currentHub.done:
			}
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				break
			}
			handleWSMessage(client, message)
		}
	}()
}
