package world

import (
	"testing"

	"rabbitwine.gg/mpserver/internal/protocol"
)

func TestSetPortal_AutoReturnAndTileMirror(t *testing.T) {
	s := NewState()
	eff := NewSideEffects()

	if !s.SetPortal("ROOT", "0,5", "LEVELB", eff) {
		t.Fatalf("SetPortal returned false")
	}

	if got := s.Level("ROOT").Portals["0,5"]; got != "LEVELB" {
		t.Fatalf("forward portal = %q", got)
	}
	if got := s.Level("LEVELB").Portals["23,5"]; got != "ROOT" {
		t.Fatalf("return portal = %q", got)
	}

	// No span at the source column, so the destination gets the ground tile.
	if got := s.Level("LEVELB").Tiles.Set["23,5"]; got != TileLevelChange {
		t.Fatalf("landing tile = %d, want %d", got, TileLevelChange)
	}

	if len(eff.Portals["ROOT"]) != 1 || len(eff.Portals["LEVELB"]) != 1 {
		t.Fatalf("portal effects = %v", eff.Portals)
	}
	if _, ok := eff.TileOps["LEVELB"]; !ok {
		t.Fatalf("tile effect for destination missing")
	}

	// Setting the identical mapping again is a no-op.
	eff2 := NewSideEffects()
	if s.SetPortal("ROOT", "0,5", "LEVELB", eff2) {
		t.Fatalf("duplicate SetPortal reported a change")
	}
	if len(eff2.TouchedLevels()) != 0 {
		t.Fatalf("duplicate SetPortal produced effects: %v", eff2.TouchedLevels())
	}
}

func TestSetPortal_SpanMirrorInsteadOfTile(t *testing.T) {
	s := NewState()
	eff := NewSideEffects()

	// Spans at the source column before the portal exists: tallest wins.
	s.ApplyMapOps("ROOT", []protocol.MapOp{
		{Op: protocol.OpAdd, K: "0,5,1", T: int(BlockPortalSpan)},
		{Op: protocol.OpAdd, K: "0,5,4", T: int(BlockPortalSpan)},
	}, eff)

	eff = NewSideEffects()
	s.SetPortal("ROOT", "0,5", "LEVELB", eff)

	dl := s.Level("LEVELB")
	if got := dl.Map.Adds["23,5,4"]; got != BlockPortalSpan {
		t.Fatalf("mirrored span = %v", got)
	}
	if _, ok := dl.Tiles.Set["23,5"]; ok {
		t.Fatalf("tile written despite span mirror")
	}
	if _, ok := eff.MapOps["LEVELB"]; !ok {
		t.Fatalf("map effect for destination missing")
	}
}

func TestSetPortal_InteriorCellHasNoMirrorSide(t *testing.T) {
	s := NewState()
	eff := NewSideEffects()
	s.SetPortal("ROOT", "5,5", "LEVELB", eff)

	if got := s.Level("ROOT").Portals["5,5"]; got != "LEVELB" {
		t.Fatalf("forward portal = %q", got)
	}
	if len(s.Level("LEVELB").Portals) != 0 {
		t.Fatalf("return portal created for interior cell")
	}
	if len(s.Level("LEVELB").Tiles.Set) != 0 {
		t.Fatalf("tile mirror created for interior cell")
	}
}

func TestSetPortal_ExistingReturnPortalPreserved(t *testing.T) {
	s := NewState()
	eff := NewSideEffects()
	s.Level("LEVELB").Portals["23,5"] = "ROOT"

	s.SetPortal("ROOT", "0,5", "LEVELB", eff)
	if len(eff.Portals["LEVELB"]) != 0 {
		t.Fatalf("return portal rewritten: %v", eff.Portals["LEVELB"])
	}
}

func TestRemovePortal_ForwardOnly(t *testing.T) {
	s := NewState()
	eff := NewSideEffects()
	s.SetPortal("ROOT", "0,5", "LEVELB", eff)

	if !s.RemovePortal("ROOT", "0,5") {
		t.Fatalf("RemovePortal returned false")
	}
	if _, ok := s.Level("ROOT").Portals["0,5"]; ok {
		t.Fatalf("forward portal survived removal")
	}
	// The auto-created return mapping stays.
	if got := s.Level("LEVELB").Portals["23,5"]; got != "ROOT" {
		t.Fatalf("return portal = %q, want ROOT", got)
	}

	if s.RemovePortal("ROOT", "0,5") {
		t.Fatalf("second removal reported a change")
	}
	if s.RemovePortal("NOSUCH", "0,5") {
		t.Fatalf("removal on unknown level reported a change")
	}
}

func TestApplyMapOps_SpanEditMirrorsThroughPortal(t *testing.T) {
	s := NewState()
	eff := NewSideEffects()
	s.SetPortal("ROOT", "0,5", "LEVELB", eff)
	baseVersion := s.Level("LEVELB").Map.Version

	eff = NewSideEffects()
	net := s.ApplyMapOps("ROOT", []protocol.MapOp{
		{Op: protocol.OpAdd, K: "0,5,3", T: int(BlockPortalSpan)},
		{Op: protocol.OpAdd, K: "0,5,6", T: int(BlockPortalSpan)},
		{Op: protocol.OpAdd, K: "2,2,0", T: int(BlockNormal)},
	}, eff)
	if len(net) != 3 {
		t.Fatalf("net = %v", net)
	}

	dl := s.Level("LEVELB")
	if dl.Map.Adds["23,5,3"] != BlockPortalSpan || dl.Map.Adds["23,5,6"] != BlockPortalSpan {
		t.Fatalf("mirrored spans missing: %v", dl.Map.Adds)
	}
	// A non-span block at a non-border cell never crosses.
	if _, ok := dl.Map.Adds["21,21,0"]; ok {
		t.Fatalf("non-span block leaked across portal")
	}
	// One version bump per batch per destination.
	if dl.Map.Version != baseVersion+1 {
		t.Fatalf("dest version = %d, want %d", dl.Map.Version, baseVersion+1)
	}
	vops, ok := eff.MapOps["LEVELB"]
	if !ok || len(vops.Ops) != 2 || vops.Version != dl.Map.Version {
		t.Fatalf("effects = %+v", eff.MapOps)
	}
}

func TestApplyMapOps_SpanRemovalMirrors(t *testing.T) {
	s := NewState()
	eff := NewSideEffects()
	s.SetPortal("ROOT", "0,5", "LEVELB", eff)
	s.ApplyMapOps("ROOT", []protocol.MapOp{
		{Op: protocol.OpAdd, K: "0,5,3", T: int(BlockPortalSpan)},
	}, NewSideEffects())

	eff = NewSideEffects()
	s.ApplyMapOps("ROOT", []protocol.MapOp{
		{Op: protocol.OpRemove, K: "0,5,3"},
	}, eff)

	dl := s.Level("LEVELB")
	if _, ok := dl.Map.Adds["23,5,3"]; ok {
		t.Fatalf("mirrored span survived removal")
	}
	if _, ok := dl.Map.Removes["23,5,3"]; !ok {
		t.Fatalf("mirrored removal tombstone missing")
	}
}

func TestApplyMapOps_NoPortalNoMirror(t *testing.T) {
	s := NewState()
	eff := NewSideEffects()
	s.ApplyMapOps("ROOT", []protocol.MapOp{
		{Op: protocol.OpAdd, K: "0,5,3", T: int(BlockPortalSpan)},
	}, eff)
	if len(eff.TouchedLevels()) != 0 {
		t.Fatalf("mirror produced without a portal: %v", eff.TouchedLevels())
	}
	if len(s.Levels) != 1 {
		t.Fatalf("extra level materialized: %v", s.LevelNames())
	}
}
