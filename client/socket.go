package client

import (
	"context"
	"fmt"
	"strings"

	"game-duel-system/models"

	"github.com/gorilla/websocket"
)

// roomConn is an open connection to a session's relay room. The machine only
// ever closes it; everything inbound arrives through the deliver callback
// given at dial time.
type roomConn interface {
	Close() error
}

// Dialer opens a room connection. deliver is called for every inbound relay
// message, closed once when the connection dies. Injectable so tests can
// feed pushes without a live relay.
type Dialer func(ctx context.Context, relayHost, sessionID, playerID string,
	deliver func(models.RelayMessage), closed func(error)) (roomConn, error)

type wsRoomConn struct {
	conn *websocket.Conn
}

func (c *wsRoomConn) Close() error {
	return c.conn.Close()
}

// dialRoom is the production Dialer: a gorilla websocket into the relay's
// per-session room, announcing the player with a join frame so a later
// disconnect is attributable.
func dialRoom(ctx context.Context, relayHost, sessionID, playerID string,
	deliver func(models.RelayMessage), closed func(error)) (roomConn, error) {

	url := fmt.Sprintf("%s/rooms/%s/ws", wsBase(relayHost), sessionID)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	join := models.RelayMessage{Type: models.MessageJoin, PlayerID: playerID}
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		return nil, err
	}

	go func() {
		for {
			var msg models.RelayMessage
			if err := conn.ReadJSON(&msg); err != nil {
				closed(err)
				return
			}
			if msg.Valid() {
				deliver(msg)
			}
		}
	}()

	return &wsRoomConn{conn: conn}, nil
}

func wsBase(relayHost string) string {
	if strings.HasPrefix(relayHost, "ws://") || strings.HasPrefix(relayHost, "wss://") {
		return relayHost
	}
	return "ws://" + relayHost
}
