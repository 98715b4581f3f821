package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CoR-Forum/RegnumNostalgia-sub000/internal/sim/fpmove"
)

const writeWait = 10 * time.Second

// client is one authenticated connection. Writes are serialized by
// the mutex; the websocket conn does not allow concurrent writers.
type client struct {
	userID int64
	conn   *websocket.Conn

	mu sync.Mutex

	fpMu sync.Mutex
	fp   *fpmove.Session
}

func (c *client) send(typ string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = data
	}
	frame, err := json.Marshal(Envelope{Type: typ, Payload: raw})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// fpSession returns the active 3D session, if any.
func (c *client) fpSession() *fpmove.Session {
	c.fpMu.Lock()
	defer c.fpMu.Unlock()
	return c.fp
}

func (c *client) setFPSession(s *fpmove.Session) {
	c.fpMu.Lock()
	c.fp = s
	c.fpMu.Unlock()
}

// takeFPSession clears and returns the active 3D session.
func (c *client) takeFPSession() *fpmove.Session {
	c.fpMu.Lock()
	s := c.fp
	c.fp = nil
	c.fpMu.Unlock()
	return s
}
