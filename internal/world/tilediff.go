package world

import (
	"sort"

	"rabbitwine.gg/mpserver/internal/protocol"
)

// TileDiff is one level's versioned ground-tile overrides. Tiles can only be
// set, never cleared; the protocol exposes no removal.
type TileDiff struct {
	Version int64
	Set     map[string]int
}

func NewTileDiff() *TileDiff {
	return &TileDiff{
		Version: 1,
		Set:     map[string]int{},
	}
}

// ApplyOps applies a set batch with last-op-wins dedup per key and returns
// the net ops. Version bumps by exactly one iff anything changed.
func (d *TileDiff) ApplyOps(ops []protocol.TileOp) []protocol.TileOp {
	last := make(map[string]int, len(ops))
	for i, op := range ops {
		last[op.K] = i
	}
	var net []protocol.TileOp
	for i, op := range ops {
		if last[op.K] != i {
			continue
		}
		if cur, ok := d.Set[op.K]; ok && cur == op.V {
			continue
		}
		d.Set[op.K] = op.V
		net = append(net, op)
	}
	if len(net) > 0 {
		d.Version++
	}
	return net
}

// FullOps returns every override in sorted key order.
func (d *TileDiff) FullOps() []protocol.TileOp {
	keys := make([]string, 0, len(d.Set))
	for k := range d.Set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ops := make([]protocol.TileOp, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, protocol.TileOp{K: k, V: d.Set[k]})
	}
	return ops
}

// Clone deep-copies the diff for the persistence writer.
func (d *TileDiff) Clone() *TileDiff {
	c := &TileDiff{
		Version: d.Version,
		Set:     make(map[string]int, len(d.Set)),
	}
	for k, v := range d.Set {
		c.Set[k] = v
	}
	return c
}
