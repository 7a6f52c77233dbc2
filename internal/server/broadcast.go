package server

import "sync"

// resolveTargetsLocked returns every session whose metadata matches the
// (channel, level) scope, plus any session with no metadata yet: a client
// that connected but has not identified still gets to see traffic, matching
// the pre-identification grace of the original server.
func (s *Server) resolveTargetsLocked(channel, level string) []*Session {
	targets := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		if !sess.identified {
			targets = append(targets, sess)
			continue
		}
		if sess.channel == channel && sess.level == level {
			targets = append(targets, sess)
		}
	}
	return targets
}

// broadcast resolves the scope under the lock, then fans the payload out
// concurrently outside it.
func (s *Server) broadcast(payload []byte, channel, level string) {
	s.mu.Lock()
	targets := s.resolveTargetsLocked(channel, level)
	s.mu.Unlock()
	s.fanout(payload, targets)
}

// fanout is the scatter/gather send: one goroutine per target, failures
// collected without cancelling siblings. A failed target is removed from the
// directory; its presence entry simply expires via TTL. No retries.
func (s *Server) fanout(payload []byte, targets []*Session) {
	if len(targets) == 0 {
		return
	}
	var wg sync.WaitGroup
	var failedMu sync.Mutex
	var failed []*Session
	for _, t := range targets {
		wg.Add(1)
		go func(t *Session) {
			defer wg.Done()
			if err := t.conn.Send(payload); err != nil {
				failedMu.Lock()
				failed = append(failed, t)
				failedMu.Unlock()
			}
		}(t)
	}
	wg.Wait()
	for _, t := range failed {
		s.dropSession(t)
		s.log.Debugw("reaped dead connection", "sid", t.ID)
	}
}

// sendAll writes a message sequence to a single session, reaping it on the
// first failure.
func (s *Server) sendAll(sess *Session, payloads [][]byte) {
	for _, p := range payloads {
		if err := sess.conn.Send(p); err != nil {
			s.dropSession(sess)
			return
		}
	}
}
