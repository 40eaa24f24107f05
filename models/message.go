package models

// Relay message kinds. The envelope is a closed variant: exactly one of the
// optional fields is meaningful for a given type, validated at each boundary.
const (
	MessageJoin          = "join"           // client → room, binds playerId to the connection
	MessageSessionUpdate = "session_update" // non-terminal state change
	MessageSessionEnd    = "session_end"    // terminal, carries the final snapshot
	MessagePlayerLeft    = "player_left"    // a participant's connection dropped
)

// RelayMessage is the single wire envelope for the per-session relay room,
// in both directions.
type RelayMessage struct {
	Type     string       `json:"type"`
	Session  *GameSession `json:"session,omitempty"`
	PlayerID string       `json:"playerId,omitempty"`
}

// Valid reports whether the envelope is well-formed for its type.
func (m *RelayMessage) Valid() bool {
	switch m.Type {
	case MessageSessionUpdate, MessageSessionEnd:
		return m.Session != nil && m.Session.ID != ""
	case MessagePlayerLeft, MessageJoin:
		return m.PlayerID != ""
	}
	return false
}
