package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"messenger-be/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer. Attachments arrive inline as
	// base64, so this bounds the accepted attachment size.
	maxMessageSize = 8 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla connection to session.Conn. The session's write
// pump is the only writer, so deadlines are set per write without locking.
type wsConn struct {
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return &wsConn{conn: conn}
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.conn.ReadMessage()
	return data, err
}

func (w *wsConn) WriteMessage(data []byte) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Ping() error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// ServeWS upgrades a chat stream request and runs the session protocol on it
// until the client disconnects. Route pattern: /ws/chat/{id}.
func ServeWS(deps session.Deps, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid chat id"}`, http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}

		// The connection is hijacked; blocking here does not hold an HTTP
		// worker beyond this stream. The request context is unusable after
		// the handler's lifetime, so the session gets its own.
		s := session.New(chatID, newWSConn(conn), deps)
		_ = s.Run(context.Background())
	}
}
