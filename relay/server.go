package relay

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"game-duel-system/models"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const retireDelay = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Manager owns the set of live rooms, one per session id. The relay runs on
// its own plain net/http server: the API layer pushes messages in over
// /notify and connected clients receive them over per-session websockets.
type Manager struct {
	secret string

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewManager(secret string) *Manager {
	return &Manager{
		secret: secret,
		rooms:  make(map[string]*Room),
	}
}

func (m *Manager) room(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[id]; ok {
		return room
	}
	room := newRoom(id)
	m.rooms[id] = room
	return room
}

// retire drops an ended room from the map after a grace window, leaving late
// stragglers long enough to read the terminal message off their sockets.
func (m *Manager) retire(id string) {
	time.AfterFunc(retireDelay, func() {
		m.mu.Lock()
		room, ok := m.rooms[id]
		if ok {
			delete(m.rooms, id)
		}
		m.mu.Unlock()
		if ok {
			room.closeAll()
		}
	})
}

// ServeWS upgrades a client connection into a session room.
func (m *Manager) ServeWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionID := ps.ByName("session_id")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	room := m.room(sessionID)
	if room.isEnded() {
		http.Error(w, "session has ended", http.StatusGone)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("relay: upgrade error: %v", err)
		return
	}

	if !room.add(conn) {
		conn.Close()
		return
	}

	defer room.drop(conn)

	for {
		var msg models.RelayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == models.MessageJoin && msg.Valid() {
			room.bind(conn, msg.PlayerID)
		}
	}
}

// Notify is the privileged server-to-room push. When a shared secret is
// configured the caller must present it as a bearer token; without one the
// endpoint is open, which is only acceptable in development.
func (m *Manager) Notify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if m.secret != "" {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token != m.secret {
			http.Error(w, "invalid relay token", http.StatusUnauthorized)
			return
		}
	}

	var msg models.RelayMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	if (msg.Type != models.MessageSessionUpdate && msg.Type != models.MessageSessionEnd) || !msg.Valid() {
		http.Error(w, "unsupported message", http.StatusBadRequest)
		return
	}

	room := m.room(msg.Session.ID)
	room.broadcast(msg)

	if msg.Type == models.MessageSessionEnd {
		room.end()
		m.retire(msg.Session.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}`))
}

// Handler builds the relay's route table. Non-POST requests to /notify are
// rejected by the router with 405.
func (m *Manager) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/rooms/:session_id/ws", m.ServeWS)
	router.POST("/notify", m.Notify)
	return router
}

// Serve runs the relay server until the context is cancelled.
func Serve(ctx context.Context, addr, secret string) error {
	manager := NewManager(secret)

	srv := &http.Server{
		Addr:              addr,
		Handler:           manager.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("✅ Relay server running on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
