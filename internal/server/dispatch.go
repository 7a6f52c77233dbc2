package server

import (
	"encoding/json"
	"errors"

	"rabbitwine.gg/mpserver/internal/protocol"
)

type handlerFunc func(*Session, []byte) error

// closeError is a protocol violation: the connection is closed with the code
// and reason, and no partial state is applied beyond what the handler already
// committed per-op.
type closeError struct {
	code   int
	reason string
}

func (e *closeError) Error() string { return e.reason }

func violation(code int, reason string) error {
	return &closeError{code: code, reason: reason}
}

func (s *Server) handlerTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		protocol.TypeHello:       s.handleHello,
		protocol.TypeUpdate:      s.handleUpdate,
		protocol.TypeMapEdit:     s.handleMapEdit,
		protocol.TypeTileEdit:    s.handleTileEdit,
		protocol.TypeItemEdit:    s.handleItemEdit,
		protocol.TypePortalEdit:  s.handlePortalEdit,
		protocol.TypeMapSync:     s.handleMapSync,
		protocol.TypeTilesSync:   s.handleTilesSync,
		protocol.TypeItemsSync:   s.handleItemsSync,
		protocol.TypeLevelChange: s.handleLevelChange,
		protocol.TypeListLevels:  s.handleListLevels,
		protocol.TypePing:        s.handlePing,
	}
}

// Dispatch routes one inbound frame. Parse failures are silently dropped and
// unknown types ignored; only validation failures close the connection.
// Returns false once the session has been closed.
func (s *Server) Dispatch(sess *Session, raw []byte) bool {
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return true
	}
	h, ok := s.handlers[base.Type]
	if !ok {
		return true
	}
	if err := h(sess, raw); err != nil {
		var ce *closeError
		if errors.As(err, &ce) {
			s.dropSession(sess)
			sess.conn.Close(ce.code, ce.reason)
			s.log.Infow("protocol violation", "sid", sess.ID, "reason", ce.reason)
			return false
		}
	}
	return true
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// All outbound message types marshal cleanly; this is unreachable.
		panic(err)
	}
	return b
}
