package server

import (
	"rabbitwine.gg/mpserver/internal/protocol"
	"rabbitwine.gg/mpserver/internal/world"
)

// bundleLocked builds the full-state resend for a session's current level:
// optional presence snapshot, then map, tiles, portals and items, each as
// complete content. The map and tile messages carry baseVersion 0 — clients
// rebuild from empty, the server never computes a delta against what a
// client claims to have.
func (s *Server) bundleLocked(sess *Session, now int64, withSnapshot bool) [][]byte {
	channel, level := sess.scope()
	lv := s.state.Level(level)

	var out [][]byte
	if withSnapshot {
		out = append(out, mustJSON(protocol.SnapshotMsg{
			Type:    protocol.TypeSnapshot,
			Now:     now,
			TTLMs:   world.TTLMs,
			Players: s.state.SnapshotPlayers(channel, level, sess.playerID, now),
		}))
	}
	out = append(out, mustJSON(protocol.MapFullMsg{
		Type:        protocol.TypeMapFull,
		Level:       level,
		Version:     lv.Map.Version,
		BaseVersion: 0,
		Ops:         lv.Map.FullOps(),
	}))
	out = append(out, mustJSON(protocol.TilesFullMsg{
		Type:        protocol.TypeTilesFull,
		Level:       level,
		Version:     lv.Tiles.Version,
		BaseVersion: 0,
		Ops:         lv.Tiles.FullOps(),
	}))
	out = append(out, mustJSON(protocol.PortalFullMsg{
		Type:    protocol.TypePortalFull,
		Level:   level,
		Portals: lv.Portals,
	}))
	items := make([]protocol.ItemWire, 0, len(lv.Items))
	for _, it := range lv.Items {
		items = append(items, it.Wire())
	}
	out = append(out, mustJSON(protocol.ItemsFullMsg{
		Type:  protocol.TypeItemsFull,
		Level: level,
		Items: items,
	}))

	sess.mapVersion = lv.Map.Version
	sess.tileVersion = lv.Tiles.Version
	return out
}
