package world

import (
	"sort"

	"rabbitwine.gg/mpserver/internal/protocol"
)

// MapDiff is one level's versioned block overlay over the baseline geometry.
// Invariant: a key is never present in both Adds and Removes.
type MapDiff struct {
	Version int64
	Adds    map[string]BlockType
	Removes map[string]struct{}
}

func NewMapDiff() *MapDiff {
	return &MapDiff{
		Version: 1,
		Adds:    map[string]BlockType{},
		Removes: map[string]struct{}{},
	}
}

// ApplyOps applies a raw edit batch and returns the net ops: only the entries
// that changed the overlay, after last-op-wins dedup per key. The version is
// bumped by exactly one iff any net op was produced.
func (d *MapDiff) ApplyOps(ops []protocol.MapOp) []protocol.MapOp {
	// Last op per key wins within the batch; submission order is preserved
	// for the surviving entries.
	last := make(map[string]int, len(ops))
	for i, op := range ops {
		last[op.K] = i
	}

	var net []protocol.MapOp
	for i, op := range ops {
		if last[op.K] != i {
			continue
		}
		if op.Op == protocol.OpRemove {
			changed := false
			if _, ok := d.Adds[op.K]; ok {
				delete(d.Adds, op.K)
				changed = true
			}
			if _, ok := d.Removes[op.K]; !ok {
				d.Removes[op.K] = struct{}{}
				changed = true
			}
			if changed {
				net = append(net, protocol.MapOp{Op: protocol.OpRemove, K: op.K})
			}
			continue
		}
		// Anything that is not a remove records a block.
		t := NormalizeBlockType(op.T)
		if cur, ok := d.Adds[op.K]; ok && cur == t {
			continue
		}
		d.Adds[op.K] = t
		delete(d.Removes, op.K)
		net = append(net, protocol.MapOp{Op: protocol.OpAdd, K: op.K, T: int(t)})
	}
	if len(net) > 0 {
		d.Version++
	}
	return net
}

// FullOps returns the entire overlay as ops, adds first then removes, in
// sorted key order. Replaying them onto an empty diff reproduces the exact
// Adds/Removes contents.
func (d *MapDiff) FullOps() []protocol.MapOp {
	ops := make([]protocol.MapOp, 0, len(d.Adds)+len(d.Removes))
	addKeys := make([]string, 0, len(d.Adds))
	for k := range d.Adds {
		addKeys = append(addKeys, k)
	}
	sort.Strings(addKeys)
	for _, k := range addKeys {
		ops = append(ops, protocol.MapOp{Op: protocol.OpAdd, K: k, T: int(d.Adds[k])})
	}
	rmKeys := make([]string, 0, len(d.Removes))
	for k := range d.Removes {
		rmKeys = append(rmKeys, k)
	}
	sort.Strings(rmKeys)
	for _, k := range rmKeys {
		ops = append(ops, protocol.MapOp{Op: protocol.OpRemove, K: k})
	}
	return ops
}

// Clone deep-copies the diff so it can be handed to the persistence writer
// outside the state lock.
func (d *MapDiff) Clone() *MapDiff {
	c := &MapDiff{
		Version: d.Version,
		Adds:    make(map[string]BlockType, len(d.Adds)),
		Removes: make(map[string]struct{}, len(d.Removes)),
	}
	for k, v := range d.Adds {
		c.Adds[k] = v
	}
	for k := range d.Removes {
		c.Removes[k] = struct{}{}
	}
	return c
}
