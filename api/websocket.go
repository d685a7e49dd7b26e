package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seenimoa/stockqa/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; restrict in production
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message or pong from an idle peer.
	// The deadline is lifted while a request is being handled.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 8 << 10
)

// Websocket message types.
const (
	WSTypeFetch       = "fetch"
	WSTypeAsk         = "ask"
	WSTypePing        = "ping"
	WSTypeSession     = "session"
	WSTypeFetchResult = "fetch_result"
	WSTypeAnswer      = "answer"
	WSTypePong        = "pong"
	WSTypeError       = "error"
)

// WSMessage is the envelope for every websocket frame in both directions.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WSAskData is the payload of an "ask" message.
type WSAskData struct {
	Question string `json:"question"`
}

// WSSessionData is sent once when the connection opens.
type WSSessionData struct {
	ID string `json:"id"`
}

// WSErrorData carries a protocol-level error.
type WSErrorData struct {
	Message string `json:"message"`
}

// wsConn serialises writes to one connection.
type wsConn struct {
	conn     *websocket.Conn
	send     chan WSMessage
	pongWait time.Duration
	logger   *slog.Logger
}

// handleWebSocket upgrades the connection and binds it to a fresh session.
// Requests on one connection are processed one at a time, in order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := s.svc.NewSession()
	logger := s.logger.With("session", sess.ID)
	c := &wsConn{conn: conn, send: make(chan WSMessage, 16), pongWait: s.wsPongWait, logger: logger}

	logger.Info("websocket session opened", "remote", r.RemoteAddr)
	done := make(chan struct{})
	go func() {
		c.writePump()
		close(done)
	}()

	c.reply(WSTypeSession, WSSessionData{ID: sess.ID})
	s.wsReadLoop(r.Context(), c, sess)

	close(c.send)
	<-done
	logger.Info("websocket session closed")
}

// wsReadLoop reads requests until the peer goes away.
func (s *Server) wsReadLoop(ctx context.Context, c *wsConn, sess *session.Session) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(WSTypeError, WSErrorData{Message: "invalid message: " + err.Error()})
			_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
			continue
		}

		// Pongs are only consumed by ReadMessage, so a fetch or answer
		// running longer than pongWait would otherwise expire the deadline.
		_ = c.conn.SetReadDeadline(time.Time{})
		s.handleWSMessage(ctx, c, sess, msg)
		_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	}
}

func (s *Server) handleWSMessage(ctx context.Context, c *wsConn, sess *session.Session, msg WSMessage) {
	switch msg.Type {
	case WSTypePing:
		c.reply(WSTypePong, nil)

	case WSTypeFetch:
		var in QueryInput
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			c.reply(WSTypeError, WSErrorData{Message: "invalid fetch payload: " + err.Error()})
			return
		}
		q, err := in.Query(s.cfg.UI)
		if err != nil {
			c.reply(WSTypeError, WSErrorData{Message: err.Error()})
			return
		}
		rctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		c.reply(WSTypeFetchResult, sess.Fetch(rctx, q))

	case WSTypeAsk:
		var in WSAskData
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			c.reply(WSTypeError, WSErrorData{Message: "invalid ask payload: " + err.Error()})
			return
		}
		rctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		c.reply(WSTypeAnswer, sess.Ask(rctx, in.Question))

	default:
		c.reply(WSTypeError, WSErrorData{Message: "unknown message type: " + msg.Type})
	}
}

// reply queues a message for the writer.
func (c *wsConn) reply(typ string, payload interface{}) {
	msg := WSMessage{Type: typ}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			c.logger.Error("websocket marshal error", "type", typ, "error", err)
			return
		}
		msg.Data = data
	}
	c.send <- msg
}

// writePump writes queued messages and keeps the connection alive with pings.
// It returns when the send channel is closed or a write fails.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.drain()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.drain()
				return
			}
		}
	}
}

// drain discards queued messages after a write failure so the reader never
// blocks on a dead connection.
func (c *wsConn) drain() {
	go func() {
		for range c.send {
		}
	}()
}
