package archive

import (
	"bytes"
	"testing"

	"rabbitwine.gg/mpserver/internal/world"
)

func sampleLevel() *world.Level {
	lv := world.NewLevel("CAVE")
	lv.Map.Version = 7
	lv.Map.Adds["3,4,1"] = world.BlockFence
	lv.Map.Adds["0,5,3"] = world.BlockPortalSpan
	lv.Map.Removes["7,7,0"] = struct{}{}
	lv.Tiles.Version = 4
	lv.Tiles.Set["23,5"] = world.TileLevelChange
	lv.Items = append(lv.Items,
		world.MapItem{GX: 3, GY: 4, H: 1.5, Kind: world.ItemPayload, Payload: "coin"},
		world.MapItem{GX: 1, GY: 1, Kind: world.ItemMarker},
	)
	lv.Portals["0,5"] = "ROOT"
	return lv
}

func TestArchive_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FromLevel(sampleLevel())); err != nil {
		t.Fatalf("Write: %v", err)
	}

	a, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	lv := a.Restore()

	if lv.Name != "CAVE" {
		t.Fatalf("name = %q", lv.Name)
	}
	if lv.Map.Version != 7 || lv.Tiles.Version != 4 {
		t.Fatalf("versions = %d/%d", lv.Map.Version, lv.Tiles.Version)
	}
	if lv.Map.Adds["3,4,1"] != world.BlockFence || lv.Map.Adds["0,5,3"] != world.BlockPortalSpan {
		t.Fatalf("adds = %v", lv.Map.Adds)
	}
	if _, ok := lv.Map.Removes["7,7,0"]; !ok {
		t.Fatalf("removes = %v", lv.Map.Removes)
	}
	if lv.Tiles.Set["23,5"] != world.TileLevelChange {
		t.Fatalf("tiles = %v", lv.Tiles.Set)
	}
	if len(lv.Items) != 2 {
		t.Fatalf("items = %v", lv.Items)
	}
	if lv.Portals["0,5"] != "ROOT" {
		t.Fatalf("portals = %v", lv.Portals)
	}
}

func TestRestore_SanitizesArchive(t *testing.T) {
	a := Level{
		Level:      "X",
		MapVersion: 0,
		Adds:       map[string]int{"1,1,0": 99},
		Removes:    []string{"1,1,0", "2,2,0"},
		Items:      []Item{{GX: 1, GY: 1, Kind: 7, Payload: "x"}, {GX: 2, GY: 2, Kind: 1, Payload: "junk"}},
	}
	lv := a.Restore()

	if lv.Map.Version != 1 {
		t.Fatalf("version = %d, want floor of 1", lv.Map.Version)
	}
	if lv.Map.Adds["1,1,0"] != world.BlockNormal {
		t.Fatalf("unknown type not normalized: %v", lv.Map.Adds)
	}
	// A remove that conflicts with an add is dropped; the others stay.
	if _, ok := lv.Map.Removes["1,1,0"]; ok {
		t.Fatalf("conflicting remove kept")
	}
	if _, ok := lv.Map.Removes["2,2,0"]; !ok {
		t.Fatalf("clean remove lost")
	}
	if lv.Items[0].Kind != world.ItemPayload {
		t.Fatalf("unknown item kind not coerced: %v", lv.Items[0])
	}
	if lv.Items[1].Payload != "" {
		t.Fatalf("marker payload kept: %q", lv.Items[1].Payload)
	}
}

func TestRead_RejectsGarbageAndMissingName(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("not zstd at all"))); err == nil {
		t.Fatalf("Read accepted garbage")
	}

	var buf bytes.Buffer
	if err := Write(&buf, Level{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Read(&buf); err == nil {
		t.Fatalf("Read accepted archive without a level name")
	}
}
