package services

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"game-duel-system/models"
)

// RelayNotifier pushes session events to the realtime relay's privileged
// notify endpoint. Delivery is best-effort: the relay is not a source of
// truth, so every failure here is logged and swallowed.
type RelayNotifier struct {
	BaseURL string // e.g. "http://127.0.0.1:5301"; empty disables realtime
	Secret  string // bearer token for the relay; empty means auth is off
	Client  *http.Client
}

func NewRelayNotifier(baseURL, secret string) *RelayNotifier {
	return &RelayNotifier{
		BaseURL: baseURL,
		Secret:  secret,
		Client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (n *RelayNotifier) Enabled() bool {
	return n != nil && n.BaseURL != ""
}

// SessionUpdate broadcasts a non-terminal state change to the session's room.
func (n *RelayNotifier) SessionUpdate(session *models.GameSession) {
	n.push(models.MessageSessionUpdate, session)
}

// SessionEnd broadcasts the terminal snapshot and retires the room.
func (n *RelayNotifier) SessionEnd(session *models.GameSession) {
	n.push(models.MessageSessionEnd, session)
}

func (n *RelayNotifier) push(msgType string, session *models.GameSession) {
	if !n.Enabled() {
		return
	}

	body, err := json.Marshal(models.RelayMessage{
		Type:    msgType,
		Session: session.Public(),
	})
	if err != nil {
		log.Printf("relay notify: marshal error for session %s: %v", session.ID, err)
		return
	}

	req, err := http.NewRequest("POST", n.BaseURL+"/notify", bytes.NewBuffer(body))
	if err != nil {
		log.Printf("relay notify: request error: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if n.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+n.Secret)
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		log.Printf("relay notify: unreachable (%s %s): %v", msgType, session.ID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("relay notify: %s for session %s returned status %d", msgType, session.ID, resp.StatusCode)
	}
}
