package server

import (
	"github.com/google/uuid"

	"rabbitwine.gg/mpserver/internal/protocol"
)

// Close codes for protocol violations, mirroring RFC 6455.
const (
	closeProtocolError   = 1002 // malformed hello
	closeUnsupportedData = 1003 // update validation failure
)

// Conn is the transport's side of a session: a duplex connection that can be
// written concurrently with other sessions' sends.
type Conn interface {
	Send(b []byte) error
	Close(code int, reason string)
	RemoteAddr() string
}

// Session is one live connection's view over the shared state. The metadata
// fields are guarded by the server mutex, like everything else.
type Session struct {
	ID   string
	conn Conn

	identified bool
	playerID   string
	channel    string
	level      string

	// Versions last sent to this client, kept for operator introspection.
	mapVersion  int64
	tileVersion int64
}

// scope returns the session's broadcast scope, defaulting pre-identification
// sessions into the default channel and level.
func (c *Session) scope() (channel, level string) {
	if !c.identified {
		return protocol.DefaultChannel, protocol.DefaultLevel
	}
	return c.channel, c.level
}

// Attach registers a new connection in the directory.
func (s *Server) Attach(conn Conn) *Session {
	sess := &Session{ID: uuid.NewString(), conn: conn}
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	n := len(s.sessions)
	s.mu.Unlock()
	s.log.Infow("connect", "sid", sess.ID, "remote", conn.RemoteAddr(), "connections", n)
	return sess
}

// Detach removes a connection from the directory. The player entry, if any,
// is left to expire via the presence TTL.
func (s *Server) Detach(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	n := len(s.sessions)
	s.mu.Unlock()
	s.log.Infow("disconnect", "sid", sess.ID, "connections", n)
}

func (s *Server) dropSession(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}
