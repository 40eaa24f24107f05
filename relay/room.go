package relay

import (
	"log"
	"sync"

	"game-duel-system/models"

	"github.com/gorilla/websocket"
)

// Room is the ephemeral broadcast channel for one session. It holds only
// per-room state: which connections are present, which player each one
// claimed via its join frame, and whether the session has ended. None of it
// is a source of truth; losing it cannot corrupt the store.
type Room struct {
	id string

	mu    sync.Mutex
	conns map[*websocket.Conn]string // conn → playerID, "" until the join frame
	ended bool
}

func newRoom(id string) *Room {
	return &Room{
		id:    id,
		conns: make(map[*websocket.Conn]string),
	}
}

// add registers a connection. Returns false when the room has already
// received its end signal: retired rooms refuse all further connections.
func (r *Room) add(conn *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return false
	}
	r.conns[conn] = ""
	return true
}

// bind associates the player identity from the first join frame with the
// connection. Only used to attribute a later disconnect.
func (r *Room) bind(conn *websocket.Conn, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[conn]; ok {
		r.conns[conn] = playerID
	}
}

// drop removes a closing connection. If the room is still live and the
// connection had identified itself, the remaining connections are told who
// left; after the end signal the broadcast is suppressed.
func (r *Room) drop(conn *websocket.Conn) {
	r.mu.Lock()
	playerID, ok := r.conns[conn]
	if ok {
		delete(r.conns, conn)
	}
	notify := ok && !r.ended && playerID != ""
	r.mu.Unlock()

	conn.Close()

	if notify {
		r.broadcast(models.RelayMessage{
			Type:     models.MessagePlayerLeft,
			PlayerID: playerID,
		})
	}
}

// broadcast fans the message out to every connection, best-effort. A failed
// write drops that connection; there is no retry and no replay.
func (r *Room) broadcast(msg models.RelayMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for conn := range r.conns {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("relay: write error in room %s: %v", r.id, err)
			conn.Close()
			delete(r.conns, conn)
		}
	}
}

// end marks the room terminal. Joins are refused and player_left broadcasts
// suppressed from here on.
func (r *Room) end() {
	r.mu.Lock()
	r.ended = true
	r.mu.Unlock()
}

func (r *Room) isEnded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// closeAll tears down every remaining connection, used when the room is
// retired from the manager.
func (r *Room) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for conn := range r.conns {
		conn.Close()
		delete(r.conns, conn)
	}
}
