package server

import (
	"encoding/json"

	"rabbitwine.gg/mpserver/internal/protocol"
	"rabbitwine.gg/mpserver/internal/world"
)

// scoped pairs a serialized payload with the level scope it fans out to.
// Broadcasts always use the originating session's channel.
type scoped struct {
	payload []byte
	level   string
}

func (s *Server) handleHello(sess *Session, raw []byte) error {
	var m protocol.HelloMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	if !protocol.ValidID(m.ID) {
		return violation(closeProtocolError, protocol.ErrInvalidID.Error())
	}
	channel := protocol.SanitizeChannel(m.Channel)
	level := protocol.SanitizeLevel(m.Level)

	now := s.clock.NowMs()
	s.mu.Lock()
	s.state.SweepPlayers(now)
	sess.identified = true
	sess.playerID = m.ID
	sess.channel = channel
	sess.level = level
	msgs := s.bundleLocked(sess, now, true)
	s.mu.Unlock()

	s.sendAll(sess, msgs)
	s.log.Debugw("hello", "sid", sess.ID, "id", m.ID, "channel", channel, "level", level)
	return nil
}

func (s *Server) handleUpdate(sess *Session, raw []byte) error {
	var m protocol.UpdateMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	u, err := protocol.ValidateUpdate(m)
	if err != nil {
		return violation(closeUnsupportedData, err.Error())
	}

	now := s.clock.NowMs()
	s.mu.Lock()
	p := s.state.UpsertPlayer(u, now)
	s.state.SweepPlayers(now)
	// Heartbeats double as scope refresh: the connection follows the player.
	sess.identified = true
	sess.playerID = u.ID
	sess.channel = u.Channel
	sess.level = u.Level
	payload := mustJSON(p.UpdateMessage(now))
	targets := s.resolveTargetsLocked(u.Channel, u.Level)
	known := len(s.state.Players)
	s.mu.Unlock()

	s.fanout(payload, targets)
	s.log.Debugw("update", "sid", sess.ID, "id", u.ID, "state", u.State, "known", known)
	return nil
}

func (s *Server) handleMapEdit(sess *Session, raw []byte) error {
	var m protocol.MapEditMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	ops := truncateOps(m.Ops)
	keep := ops[:0]
	for _, op := range ops {
		if len(op.K) > protocol.MaxKeyLen {
			continue
		}
		if _, _, _, ok := world.ParseKey3(op.K); !ok {
			continue
		}
		if op.Op != protocol.OpAdd && op.Op != protocol.OpRemove {
			continue
		}
		keep = append(keep, op)
	}
	if len(keep) == 0 {
		return nil
	}

	s.mu.Lock()
	channel, level := sess.scope()
	eff := world.NewSideEffects()
	net := s.state.ApplyMapOps(level, keep, eff)
	var outs []scoped
	if len(net) > 0 {
		lv := s.state.Levels[level]
		outs = append(outs, scoped{mustJSON(protocol.MapOpsMsg{
			Type:    protocol.TypeMapOps,
			Level:   level,
			Version: lv.Map.Version,
			Ops:     net,
		}), level})
		s.store.SaveMapDiff(level, lv.Map.Clone())
	}
	outs = append(outs, s.collectEffectsLocked(eff)...)
	s.mu.Unlock()

	for _, o := range outs {
		s.broadcast(o.payload, channel, o.level)
	}
	return nil
}

func (s *Server) handleTileEdit(sess *Session, raw []byte) error {
	var m protocol.TileEditMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	ops := truncateOps(m.Ops)
	keep := ops[:0]
	for _, op := range ops {
		if len(op.K) > protocol.MaxKeyLen {
			continue
		}
		if _, _, ok := world.ParseKey2(op.K); !ok {
			continue
		}
		keep = append(keep, op)
	}
	if len(keep) == 0 {
		return nil
	}

	s.mu.Lock()
	channel, level := sess.scope()
	lv := s.state.Level(level)
	net := lv.Tiles.ApplyOps(keep)
	var payload []byte
	if len(net) > 0 {
		payload = mustJSON(protocol.TileOpsMsg{
			Type:    protocol.TypeTileOps,
			Level:   level,
			Version: lv.Tiles.Version,
			Ops:     net,
		})
		s.store.SaveTileDiff(level, lv.Tiles.Clone())
	}
	s.mu.Unlock()

	if payload != nil {
		s.broadcast(payload, channel, level)
	}
	return nil
}

func (s *Server) handleItemEdit(sess *Session, raw []byte) error {
	var m protocol.ItemEditMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	ops := truncateOps(m.Ops)
	keep := ops[:0]
	for _, op := range ops {
		if op.Op != protocol.OpAdd && op.Op != protocol.OpRemove {
			continue
		}
		keep = append(keep, op)
	}
	if len(keep) == 0 {
		return nil
	}

	s.mu.Lock()
	channel, level := sess.scope()
	lv := s.state.Level(level)
	accepted, upserts, deletes := lv.ApplyItemOps(keep)
	var payload []byte
	if len(accepted) > 0 {
		payload = mustJSON(protocol.ItemOpsMsg{
			Type:  protocol.TypeItemOps,
			Level: level,
			Ops:   accepted,
		})
	}
	for _, it := range upserts {
		s.store.UpsertItem(level, it)
	}
	for _, it := range deletes {
		s.store.DeleteItem(level, it)
	}
	s.mu.Unlock()

	if payload != nil {
		s.broadcast(payload, channel, level)
	}
	return nil
}

func (s *Server) handlePortalEdit(sess *Session, raw []byte) error {
	var m protocol.PortalEditMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	ops := truncateOps(m.Ops)
	keep := ops[:0]
	for _, op := range ops {
		if len(op.K) > protocol.MaxKeyLen {
			continue
		}
		if _, _, ok := world.ParseKey2(op.K); !ok {
			continue
		}
		switch op.Op {
		case protocol.OpSet:
			if !protocol.LevelNameOK(op.Dest) {
				continue
			}
		case protocol.OpRemove:
		default:
			continue
		}
		keep = append(keep, op)
	}
	if len(keep) == 0 {
		return nil
	}

	s.mu.Lock()
	channel, level := sess.scope()
	eff := world.NewSideEffects()
	for _, op := range keep {
		if op.Op == protocol.OpRemove {
			if s.state.RemovePortal(level, op.K) {
				eff.Portals[level] = append(eff.Portals[level], protocol.PortalOp{
					Op: protocol.OpRemove,
					K:  op.K,
				})
			}
			continue
		}
		s.state.SetPortal(level, op.K, op.Dest, eff)
	}
	outs := s.collectEffectsLocked(eff)
	s.mu.Unlock()

	for _, o := range outs {
		s.broadcast(o.payload, channel, o.level)
	}
	return nil
}

// collectEffectsLocked turns accumulated cross-level side effects into
// broadcast payloads and fire-and-forget persistence writes. Must run under
// the state lock.
func (s *Server) collectEffectsLocked(eff *world.SideEffects) []scoped {
	var outs []scoped
	for _, lvl := range eff.TouchedLevels() {
		if pops := eff.Portals[lvl]; len(pops) > 0 {
			outs = append(outs, scoped{mustJSON(protocol.PortalOpsMsg{
				Type:  protocol.TypePortalOps,
				Level: lvl,
				Ops:   pops,
			}), lvl})
			for _, op := range pops {
				if op.Op == protocol.OpSet {
					s.store.SetPortal(lvl, op.K, op.Dest)
				} else {
					s.store.RemovePortal(lvl, op.K)
				}
			}
		}
		if v, ok := eff.MapOps[lvl]; ok {
			outs = append(outs, scoped{mustJSON(protocol.MapOpsMsg{
				Type:    protocol.TypeMapOps,
				Level:   lvl,
				Version: v.Version,
				Ops:     v.Ops,
			}), lvl})
			s.store.SaveMapDiff(lvl, s.state.Level(lvl).Map.Clone())
		}
		if v, ok := eff.TileOps[lvl]; ok {
			outs = append(outs, scoped{mustJSON(protocol.TileOpsMsg{
				Type:    protocol.TypeTileOps,
				Level:   lvl,
				Version: v.Version,
				Ops:     v.Ops,
			}), lvl})
			s.store.SaveTileDiff(lvl, s.state.Level(lvl).Tiles.Clone())
		}
	}
	return outs
}

// The *_sync handlers ignore the client's reported version entirely and
// resend full state for its current level.

func (s *Server) handleMapSync(sess *Session, raw []byte) error { return s.resync(sess) }

func (s *Server) handleTilesSync(sess *Session, raw []byte) error { return s.resync(sess) }

func (s *Server) handleItemsSync(sess *Session, raw []byte) error { return s.resync(sess) }

func (s *Server) resync(sess *Session) error {
	now := s.clock.NowMs()
	s.mu.Lock()
	msgs := s.bundleLocked(sess, now, false)
	s.mu.Unlock()
	s.sendAll(sess, msgs)
	return nil
}

func (s *Server) handleLevelChange(sess *Session, raw []byte) error {
	var m protocol.LevelChangeMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	level := protocol.SanitizeLevel(m.Level)

	now := s.clock.NowMs()
	s.mu.Lock()
	sess.level = level
	if p, ok := s.state.Players[sess.playerID]; ok {
		p.Level = level
	}
	msgs := s.bundleLocked(sess, now, true)
	s.mu.Unlock()

	s.sendAll(sess, msgs)
	s.log.Debugw("level change", "sid", sess.ID, "level", level)
	return nil
}

func (s *Server) handleListLevels(sess *Session, raw []byte) error {
	s.mu.Lock()
	names := s.state.LevelNames()
	infos := make([]protocol.LevelInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, protocol.LevelInfo{
			Level:      name,
			MapVersion: s.state.Levels[name].Map.Version,
		})
	}
	s.mu.Unlock()

	s.sendAll(sess, [][]byte{mustJSON(protocol.LevelsMsg{
		Type:   protocol.TypeLevels,
		Levels: infos,
	})})
	return nil
}

func (s *Server) handlePing(sess *Session, raw []byte) error {
	s.sendAll(sess, [][]byte{mustJSON(protocol.PongMsg{
		Type:  protocol.TypePong,
		Now:   s.clock.NowMs(),
		Music: s.clock.MusicPos(),
	})})
	return nil
}

func truncateOps[T any](ops []T) []T {
	if len(ops) > protocol.MaxBatchOps {
		return ops[:protocol.MaxBatchOps]
	}
	return ops
}
