package server

import "rabbitwine.gg/mpserver/internal/world"

// Store is the persistence collaborator. LoadAll runs once at startup; every
// other method is fire-and-forget and called after the in-memory mutation has
// already succeeded. Failures are the store's problem to log; they never
// surface to clients.
type Store interface {
	LoadAll() (map[string]*world.Level, error)
	SaveMapDiff(level string, d *world.MapDiff)
	SaveTileDiff(level string, d *world.TileDiff)
	UpsertItem(level string, it world.MapItem)
	DeleteItem(level string, it world.MapItem)
	SetPortal(level, key, dest string)
	RemovePortal(level, key string)
	DeleteLevel(level string)
	Vacuum()
	Close() error
}

// NopStore discards all writes. Used in tests and when persistence is
// disabled.
type NopStore struct{}

func (NopStore) LoadAll() (map[string]*world.Level, error)   { return nil, nil }
func (NopStore) SaveMapDiff(string, *world.MapDiff)          {}
func (NopStore) SaveTileDiff(string, *world.TileDiff)        {}
func (NopStore) UpsertItem(string, world.MapItem)            {}
func (NopStore) DeleteItem(string, world.MapItem)            {}
func (NopStore) SetPortal(string, string, string)            {}
func (NopStore) RemovePortal(string, string)                 {}
func (NopStore) DeleteLevel(string)                          {}
func (NopStore) Vacuum()                                     {}
func (NopStore) Close() error                                { return nil }
