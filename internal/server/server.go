package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"rabbitwine.gg/mpserver/internal/world"
)

// Background cadences. Both run under the same lock discipline as foreground
// requests; there is no separate read path.
const (
	sweepEvery  = 60 * time.Second
	vacuumEvery = 30 * time.Minute
)

// Clock supplies the server timestamp and the cosmetic music-position clock
// echoed in pong replies.
type Clock interface {
	NowMs() int64
	MusicPos() float64
}

// Server owns the composite authoritative state behind one process-wide
// mutex. Handlers mutate under the lock; network sends happen outside it.
type Server struct {
	log   *zap.SugaredLogger
	clock Clock
	store Store

	mu       sync.Mutex
	state    *world.State
	sessions map[*Session]struct{}

	handlers map[string]handlerFunc
}

// New loads persisted level state from the store and returns a ready server.
func New(log *zap.SugaredLogger, clock Clock, store Store) (*Server, error) {
	levels, err := store.LoadAll()
	if err != nil {
		return nil, err
	}
	st := world.NewState()
	for name, lv := range levels {
		st.Levels[name] = lv
	}
	s := &Server{
		log:      log,
		clock:    clock,
		store:    store,
		state:    st,
		sessions: map[*Session]struct{}{},
	}
	s.handlers = s.handlerTable()
	if len(levels) > 0 {
		log.Infow("loaded persisted levels", "levels", len(levels))
	}
	return s, nil
}

// Run drives the background maintenance loops until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	sweep := time.NewTicker(sweepEvery)
	defer sweep.Stop()
	vacuum := time.NewTicker(vacuumEvery)
	defer vacuum.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			now := s.clock.NowMs()
			s.mu.Lock()
			removed := s.state.SweepPlayers(now)
			s.mu.Unlock()
			if removed > 0 {
				s.log.Debugw("presence sweep", "removed", removed)
			}
		case <-vacuum.C:
			s.mu.Lock()
			s.store.Vacuum()
			s.mu.Unlock()
		}
	}
}
