// Package archive reads and writes portable level archives: the complete
// stored state of one level as zstd-compressed JSON. Used by the admin
// export/import endpoints.
package archive

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"rabbitwine.gg/mpserver/internal/world"
)

type Level struct {
	Level       string            `json:"level"`
	MapVersion  int64             `json:"mapVersion"`
	Adds        map[string]int    `json:"adds"`
	Removes     []string          `json:"removes"`
	TileVersion int64             `json:"tileVersion"`
	Tiles       map[string]int    `json:"tiles"`
	Items       []Item            `json:"items"`
	Portals     map[string]string `json:"portals"`
}

type Item struct {
	GX      int     `json:"gx"`
	GY      int     `json:"gy"`
	H       float64 `json:"h"`
	Kind    int     `json:"kind"`
	Payload string  `json:"payload,omitempty"`
}

// FromLevel snapshots a level into archive form. Call under the state lock.
func FromLevel(lv *world.Level) Level {
	a := Level{
		Level:       lv.Name,
		MapVersion:  lv.Map.Version,
		Adds:        make(map[string]int, len(lv.Map.Adds)),
		Removes:     make([]string, 0, len(lv.Map.Removes)),
		TileVersion: lv.Tiles.Version,
		Tiles:       make(map[string]int, len(lv.Tiles.Set)),
		Items:       make([]Item, 0, len(lv.Items)),
		Portals:     make(map[string]string, len(lv.Portals)),
	}
	for k, t := range lv.Map.Adds {
		a.Adds[k] = int(t)
	}
	for k := range lv.Map.Removes {
		a.Removes = append(a.Removes, k)
	}
	for k, v := range lv.Tiles.Set {
		a.Tiles[k] = v
	}
	for _, it := range lv.Items {
		a.Items = append(a.Items, Item{
			GX:      it.GX,
			GY:      it.GY,
			H:       it.H,
			Kind:    int(it.Kind),
			Payload: it.Payload,
		})
	}
	for k, dest := range lv.Portals {
		a.Portals[k] = dest
	}
	return a
}

// Restore materializes the archive as a fresh level. Versions below 1 are
// lifted to the store default.
func (a Level) Restore() *world.Level {
	lv := world.NewLevel(a.Level)
	if a.MapVersion > 1 {
		lv.Map.Version = a.MapVersion
	}
	if a.TileVersion > 1 {
		lv.Tiles.Version = a.TileVersion
	}
	for k, t := range a.Adds {
		lv.Map.Adds[k] = world.NormalizeBlockType(t)
	}
	for _, k := range a.Removes {
		if _, ok := lv.Map.Adds[k]; ok {
			continue
		}
		lv.Map.Removes[k] = struct{}{}
	}
	for k, v := range a.Tiles {
		lv.Tiles.Set[k] = v
	}
	for _, it := range a.Items {
		kind := world.ItemKind(it.Kind)
		if kind != world.ItemPayload && kind != world.ItemMarker {
			kind = world.ItemPayload
		}
		payload := it.Payload
		if kind == world.ItemMarker {
			payload = ""
		}
		lv.Items = append(lv.Items, world.MapItem{
			GX:      it.GX,
			GY:      it.GY,
			H:       it.H,
			Kind:    kind,
			Payload: payload,
		})
	}
	for k, dest := range a.Portals {
		lv.Portals[k] = dest
	}
	return lv
}

// Write streams the archive as zstd-compressed JSON.
func Write(w io.Writer, a Level) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := json.NewEncoder(enc).Encode(a); err != nil {
		enc.Close()
		return fmt.Errorf("encode archive: %w", err)
	}
	return enc.Close()
}

// Read decodes an archive written by Write.
func Read(r io.Reader) (Level, error) {
	var a Level
	dec, err := zstd.NewReader(r)
	if err != nil {
		return a, err
	}
	defer dec.Close()
	if err := json.NewDecoder(dec).Decode(&a); err != nil {
		return a, fmt.Errorf("decode archive: %w", err)
	}
	if a.Level == "" {
		return a, fmt.Errorf("archive missing level name")
	}
	return a, nil
}
