package world

import (
	"strconv"
	"strings"
)

// Fixed horizontal extent of every level grid.
const (
	GridW = 24
	GridH = 24
)

// Key2 formats a 2D cell key ("gx,gy").
func Key2(gx, gy int) string {
	return strconv.Itoa(gx) + "," + strconv.Itoa(gy)
}

// Key3 formats a 3D cell key ("gx,gy,h").
func Key3(gx, gy, h int) string {
	return strconv.Itoa(gx) + "," + strconv.Itoa(gy) + "," + strconv.Itoa(h)
}

// ParseKey2 parses a 2D cell key. Exactly two integer parts.
func ParseKey2(k string) (gx, gy int, ok bool) {
	parts := strings.Split(k, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	gx, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	gy, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return gx, gy, true
}

// ParseKey3 parses a 3D cell key. Exactly three integer parts.
func ParseKey3(k string) (gx, gy, h int, ok bool) {
	parts := strings.Split(k, ",")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	gx, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, false
	}
	gy, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, false
	}
	h, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, false
	}
	return gx, gy, h, true
}

// IsBorder reports whether a cell sits on the outermost row or column of the
// grid, making it eligible for portal placement and mirroring.
func IsBorder(gx, gy int) bool {
	if gx < 0 || gx >= GridW || gy < 0 || gy >= GridH {
		return false
	}
	return gx == 0 || gx == GridW-1 || gy == 0 || gy == GridH-1
}

// Opposite reflects a border cell to the matching cell on the opposite wall:
// x=0 <-> x=GridW-1 holding y, y=0 <-> y=GridH-1 holding x. Corner cells
// reflect on both axes. ok is false for non-border cells.
func Opposite(gx, gy int) (ox, oy int, ok bool) {
	if !IsBorder(gx, gy) {
		return 0, 0, false
	}
	ox, oy = gx, gy
	switch gx {
	case 0:
		ox = GridW - 1
	case GridW - 1:
		ox = 0
	}
	switch gy {
	case 0:
		oy = GridH - 1
	case GridH - 1:
		oy = 0
	}
	return ox, oy, true
}
