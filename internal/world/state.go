package world

import "sort"

// Level bundles everything the server knows about one named world grid.
// Created lazily on first reference.
type Level struct {
	Name    string
	Map     *MapDiff
	Tiles   *TileDiff
	Items   []MapItem
	Portals map[string]string // 2D border-cell key -> destination level
}

func NewLevel(name string) *Level {
	return &Level{
		Name:    name,
		Map:     NewMapDiff(),
		Tiles:   NewTileDiff(),
		Portals: map[string]string{},
	}
}

// State is the composite authoritative state: presence plus every per-level
// store. It performs no locking and no IO; the server layer guards it with
// one process-wide mutex and handles persistence and broadcast.
type State struct {
	Players map[string]*Player
	Levels  map[string]*Level
}

func NewState() *State {
	return &State{
		Players: map[string]*Player{},
		Levels:  map[string]*Level{},
	}
}

// Level returns the named level, creating an empty one on first reference.
func (s *State) Level(name string) *Level {
	lv, ok := s.Levels[name]
	if !ok {
		lv = NewLevel(name)
		s.Levels[name] = lv
	}
	return lv
}

// LevelNames returns every known level name, sorted.
func (s *State) LevelNames() []string {
	names := make([]string, 0, len(s.Levels))
	for name := range s.Levels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResetLevel drops all stored state for a level. Returns false when the level
// was unknown.
func (s *State) ResetLevel(name string) bool {
	if _, ok := s.Levels[name]; !ok {
		return false
	}
	delete(s.Levels, name)
	return true
}
