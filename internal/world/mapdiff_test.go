package world

import (
	"reflect"
	"testing"

	"rabbitwine.gg/mpserver/internal/protocol"
)

func add(k string, t BlockType) protocol.MapOp {
	return protocol.MapOp{Op: protocol.OpAdd, K: k, T: int(t)}
}

func remove(k string) protocol.MapOp {
	return protocol.MapOp{Op: protocol.OpRemove, K: k}
}

func TestMapDiff_ApplyOps_NetAndVersion(t *testing.T) {
	d := NewMapDiff()
	if d.Version != 1 {
		t.Fatalf("fresh diff version = %d, want 1", d.Version)
	}

	net := d.ApplyOps([]protocol.MapOp{add("1,2,0", BlockNormal), add("3,4,1", BlockFence)})
	if len(net) != 2 {
		t.Fatalf("net = %v, want 2 ops", net)
	}
	if d.Version != 2 {
		t.Fatalf("version = %d, want 2", d.Version)
	}

	// Re-adding the same cells with the same types is a no-op batch.
	net = d.ApplyOps([]protocol.MapOp{add("1,2,0", BlockNormal), add("3,4,1", BlockFence)})
	if len(net) != 0 {
		t.Fatalf("no-op batch produced net ops: %v", net)
	}
	if d.Version != 2 {
		t.Fatalf("version changed on no-op batch: %d", d.Version)
	}

	// Changing the type of an existing cell is a change.
	net = d.ApplyOps([]protocol.MapOp{add("1,2,0", BlockHazard)})
	if len(net) != 1 || net[0].T != int(BlockHazard) {
		t.Fatalf("type change net = %v", net)
	}
	if d.Version != 3 {
		t.Fatalf("version = %d, want 3", d.Version)
	}
}

func TestMapDiff_ApplyOps_LastOpWinsWithinBatch(t *testing.T) {
	d := NewMapDiff()
	net := d.ApplyOps([]protocol.MapOp{
		add("5,5,0", BlockNormal),
		add("5,5,0", BlockHazard),
	})
	if len(net) != 1 {
		t.Fatalf("net = %v, want single op", net)
	}
	if got := d.Adds["5,5,0"]; got != BlockHazard {
		t.Fatalf("stored type = %v, want hazard", got)
	}

	net = d.ApplyOps([]protocol.MapOp{
		add("5,5,0", BlockFence),
		remove("5,5,0"),
	})
	if len(net) != 1 || net[0].Op != protocol.OpRemove {
		t.Fatalf("net = %v, want single remove", net)
	}
	if _, ok := d.Adds["5,5,0"]; ok {
		t.Fatalf("cell still in adds after remove")
	}
	if _, ok := d.Removes["5,5,0"]; !ok {
		t.Fatalf("cell missing from removes")
	}
}

func TestMapDiff_RemoveOfUnknownKeyStillRecordsTombstone(t *testing.T) {
	d := NewMapDiff()
	net := d.ApplyOps([]protocol.MapOp{remove("9,9,9")})
	if len(net) != 1 {
		t.Fatalf("net = %v, want remove op", net)
	}
	if d.Version != 2 {
		t.Fatalf("version = %d, want 2", d.Version)
	}
	// Second remove of the same key is a no-op.
	net = d.ApplyOps([]protocol.MapOp{remove("9,9,9")})
	if len(net) != 0 || d.Version != 2 {
		t.Fatalf("repeat remove: net=%v version=%d", net, d.Version)
	}
}

func TestMapDiff_UnknownTypeNormalizesToDefault(t *testing.T) {
	d := NewMapDiff()
	net := d.ApplyOps([]protocol.MapOp{{Op: protocol.OpAdd, K: "0,0,0", T: 99}})
	if len(net) != 1 || net[0].T != int(BlockNormal) {
		t.Fatalf("net = %v, want normalized add", net)
	}
	if d.Adds["0,0,0"] != BlockNormal {
		t.Fatalf("stored type = %v, want normal", d.Adds["0,0,0"])
	}
}

// Replaying every net op from empty must reproduce the exact overlay, which
// is what clients do on every full resync.
func TestMapDiff_NetOpReplayIsIdempotent(t *testing.T) {
	d := NewMapDiff()
	batches := [][]protocol.MapOp{
		{add("1,1,0", BlockNormal), add("2,2,0", BlockFence), add("1,1,0", BlockHazard)},
		{remove("2,2,0"), add("3,3,2", BlockPortalSpan)},
		{add("2,2,0", BlockFence), remove("4,4,0")},
		{remove("1,1,0"), remove("1,1,0")},
		{add("1,1,0", BlockHalfSlab)},
	}
	var replayOps []protocol.MapOp
	for _, b := range batches {
		replayOps = append(replayOps, d.ApplyOps(b)...)
	}

	replayed := NewMapDiff()
	replayed.ApplyOps(replayOps)
	if !reflect.DeepEqual(replayed.Adds, d.Adds) {
		t.Fatalf("replayed adds = %v, want %v", replayed.Adds, d.Adds)
	}
	if !reflect.DeepEqual(replayed.Removes, d.Removes) {
		t.Fatalf("replayed removes = %v, want %v", replayed.Removes, d.Removes)
	}

	// FullOps must reproduce the overlay the same way.
	fromFull := NewMapDiff()
	fromFull.ApplyOps(d.FullOps())
	if !reflect.DeepEqual(fromFull.Adds, d.Adds) || !reflect.DeepEqual(fromFull.Removes, d.Removes) {
		t.Fatalf("full-op replay diverged")
	}
}

func TestMapDiff_AddRemoveNeverCoexist(t *testing.T) {
	d := NewMapDiff()
	d.ApplyOps([]protocol.MapOp{remove("7,7,0")})
	d.ApplyOps([]protocol.MapOp{add("7,7,0", BlockNormal)})
	if _, ok := d.Removes["7,7,0"]; ok {
		t.Fatalf("key present in both adds and removes")
	}
	if _, ok := d.Adds["7,7,0"]; !ok {
		t.Fatalf("add missing")
	}
}
