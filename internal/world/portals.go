package world

import (
	"sort"

	"rabbitwine.gg/mpserver/internal/protocol"
)

// VersionedMapOps is a net-op batch for one level together with the version
// the batch produced.
type VersionedMapOps struct {
	Version int64
	Ops     []protocol.MapOp
}

type VersionedTileOps struct {
	Version int64
	Ops     []protocol.TileOp
}

// SideEffects collects the cross-level changes produced inside one critical
// section (portal mirroring touches two levels atomically) so the server can
// persist and broadcast them after releasing the lock.
type SideEffects struct {
	Portals map[string][]protocol.PortalOp
	MapOps  map[string]VersionedMapOps
	TileOps map[string]VersionedTileOps
}

func NewSideEffects() *SideEffects {
	return &SideEffects{
		Portals: map[string][]protocol.PortalOp{},
		MapOps:  map[string]VersionedMapOps{},
		TileOps: map[string]VersionedTileOps{},
	}
}

func (e *SideEffects) addPortalOp(level string, op protocol.PortalOp) {
	e.Portals[level] = append(e.Portals[level], op)
}

func (e *SideEffects) addMapOps(level string, version int64, ops []protocol.MapOp) {
	cur := e.MapOps[level]
	cur.Version = version
	cur.Ops = append(cur.Ops, ops...)
	e.MapOps[level] = cur
}

func (e *SideEffects) addTileOps(level string, version int64, ops []protocol.TileOp) {
	cur := e.TileOps[level]
	cur.Version = version
	cur.Ops = append(cur.Ops, ops...)
	e.TileOps[level] = cur
}

// TouchedLevels returns every level touched by the collected effects, sorted.
func (e *SideEffects) TouchedLevels() []string {
	seen := map[string]struct{}{}
	for lv := range e.Portals {
		seen[lv] = struct{}{}
	}
	for lv := range e.MapOps {
		seen[lv] = struct{}{}
	}
	for lv := range e.TileOps {
		seen[lv] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for lv := range seen {
		names = append(names, lv)
	}
	sort.Strings(names)
	return names
}

// ApplyMapOps applies a raw map-edit batch to a level and mirrors any
// PORTAL_SPAN change at a bordered, portal-mapped cell into the destination
// level's diff. The mirrored ops bump the destination version and are
// reported through eff as their own net-op batch.
func (s *State) ApplyMapOps(level string, ops []protocol.MapOp, eff *SideEffects) []protocol.MapOp {
	lv := s.Level(level)

	// Remove ops lose the block type once applied, so capture which keys
	// currently hold a span before mutating.
	spanBefore := map[string]bool{}
	for _, op := range ops {
		if op.Op == protocol.OpRemove {
			spanBefore[op.K] = lv.Map.Adds[op.K] == BlockPortalSpan
		}
	}

	net := lv.Map.ApplyOps(ops)

	mirrors := map[string][]protocol.MapOp{}
	for _, op := range net {
		isSpan := false
		if op.Op == protocol.OpRemove {
			isSpan = spanBefore[op.K]
		} else {
			isSpan = NormalizeBlockType(op.T) == BlockPortalSpan
		}
		if !isSpan {
			continue
		}
		gx, gy, h, ok := ParseKey3(op.K)
		if !ok || !IsBorder(gx, gy) {
			continue
		}
		dest, ok := lv.Portals[Key2(gx, gy)]
		if !ok {
			continue
		}
		ox, oy, _ := Opposite(gx, gy)
		m := protocol.MapOp{Op: op.Op, K: Key3(ox, oy, h), T: op.T}
		mirrors[dest] = append(mirrors[dest], m)
	}

	// One bump per destination per batch. Mirroring is one hop: the mirrored
	// ops are applied to the destination diff directly, never re-mirrored.
	dests := make([]string, 0, len(mirrors))
	for dest := range mirrors {
		dests = append(dests, dest)
	}
	sort.Strings(dests)
	for _, dest := range dests {
		dl := s.Level(dest)
		mnet := dl.Map.ApplyOps(mirrors[dest])
		if len(mnet) > 0 {
			eff.addMapOps(dest, dl.Map.Version, mnet)
		}
	}
	return net
}

// SetPortal records or overwrites a portal mapping. For border cells it also
// auto-creates the one-hop return portal at the destination's opposite cell
// and mirrors the portal's visual form there: the tallest PORTAL_SPAN at the
// source column if one exists, otherwise the ground-level level-change tile.
func (s *State) SetPortal(level, key, dest string, eff *SideEffects) bool {
	lv := s.Level(level)
	if cur, ok := lv.Portals[key]; ok && cur == dest {
		return false
	}
	lv.Portals[key] = dest
	eff.addPortalOp(level, protocol.PortalOp{Op: protocol.OpSet, K: key, Dest: dest})

	gx, gy, ok := ParseKey2(key)
	if !ok || !IsBorder(gx, gy) {
		return true
	}
	ox, oy, _ := Opposite(gx, gy)
	opKey := Key2(ox, oy)
	dl := s.Level(dest)

	// Return portal, unless one pointing back is already registered. This is
	// deliberately one hop: creating it does not trigger further mirroring.
	if dl.Portals[opKey] != level {
		dl.Portals[opKey] = level
		eff.addPortalOp(dest, protocol.PortalOp{Op: protocol.OpSet, K: opKey, Dest: level})
	}

	if h, found := lv.Map.tallestSpanAt(gx, gy); found {
		mnet := dl.Map.ApplyOps([]protocol.MapOp{{
			Op: protocol.OpAdd,
			K:  Key3(ox, oy, h),
			T:  int(BlockPortalSpan),
		}})
		if len(mnet) > 0 {
			eff.addMapOps(dest, dl.Map.Version, mnet)
		}
	} else {
		tnet := dl.Tiles.ApplyOps([]protocol.TileOp{{K: opKey, V: TileLevelChange}})
		if len(tnet) > 0 {
			eff.addTileOps(dest, dl.Tiles.Version, tnet)
		}
	}
	return true
}

// RemovePortal deletes only the forward mapping. Any previously auto-created
// return portal in the destination survives; the asymmetry is intentional.
func (s *State) RemovePortal(level, key string) bool {
	lv, ok := s.Levels[level]
	if !ok {
		return false
	}
	if _, ok := lv.Portals[key]; !ok {
		return false
	}
	delete(lv.Portals, key)
	return true
}

// tallestSpanAt finds the highest PORTAL_SPAN recorded at a 2D column, if any.
func (d *MapDiff) tallestSpanAt(gx, gy int) (h int, found bool) {
	for k, t := range d.Adds {
		if t != BlockPortalSpan {
			continue
		}
		kx, ky, kh, ok := ParseKey3(k)
		if !ok || kx != gx || ky != gy {
			continue
		}
		if !found || kh > h {
			h = kh
			found = true
		}
	}
	return h, found
}
