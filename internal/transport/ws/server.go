// Package ws binds the session protocol to gorilla/websocket. It owns frame
// IO only; all protocol decisions live in internal/server.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rabbitwine.gg/mpserver/internal/server"
)

const (
	readLimit     = 1 << 20 // 1MB per frame is far beyond any legal batch
	readDeadline  = 60 * time.Second
	writeDeadline = 5 * time.Second
	pingEvery     = 20 * time.Second
)

type Server struct {
	core *server.Server
	log  *zap.SugaredLogger

	upgrader websocket.Upgrader
}

func NewServer(core *server.Server, log *zap.SugaredLogger) *Server {
	return &Server{
		core: core,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // game clients connect cross-origin
		},
	}
}

// conn adapts a websocket connection to server.Conn. Sends from concurrent
// broadcasts are serialized by the write mutex.
type conn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (c *conn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

func (c *conn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = c.ws.Close()
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline))
}

func (c *conn) RemoteAddr() string {
	if a := c.ws.RemoteAddr(); a != nil {
		return a.String()
	}
	return "?"
}

// Handler upgrades /ws requests and runs one read loop per connection.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		wsConn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Debugw("upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		c := &conn{ws: wsConn}
		sess := s.core.Attach(c)

		wsConn.SetReadLimit(readLimit)
		_ = wsConn.SetReadDeadline(time.Now().Add(readDeadline))
		wsConn.SetPongHandler(func(string) error {
			return wsConn.SetReadDeadline(time.Now().Add(readDeadline))
		})

		// Keepalive pings; the pong handler re-arms the read deadline.
		stop := make(chan struct{})
		go func() {
			t := time.NewTicker(pingEvery)
			defer t.Stop()
			for {
				select {
				case <-stop:
					return
				case <-t.C:
					if err := c.ping(); err != nil {
						return
					}
				}
			}
		}()

		for {
			_, msg, err := wsConn.ReadMessage()
			if err != nil {
				break
			}
			_ = wsConn.SetReadDeadline(time.Now().Add(readDeadline))
			if !s.core.Dispatch(sess, msg) {
				// Protocol violation: the core already closed the socket.
				break
			}
		}

		close(stop)
		s.core.Detach(sess)
		c.Close(websocket.CloseNormalClosure, "")
	}
}
