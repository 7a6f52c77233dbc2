// Package sqlite persists level state in a single sqlite database. Writes
// flow through one writer goroutine and are fire-and-forget: the in-memory
// state is authoritative and a persistence failure is only ever logged.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"rabbitwine.gg/mpserver/internal/world"
)

type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

type reqKind int

const (
	reqMapDiff reqKind = iota + 1
	reqTileDiff
	reqUpsertItem
	reqDeleteItem
	reqSetPortal
	reqRemovePortal
	reqDeleteLevel
	reqVacuum
)

type req struct {
	kind  reqKind
	level string

	mapDiff  *world.MapDiff
	tileDiff *world.TileDiff
	item     world.MapItem
	key      string
	dest     string
}

func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:  db,
		log: log,
		// Generous buffer: edit bursts are already serialized by the state
		// lock, so this only needs to absorb slow disk moments.
		ch: make(chan req, 8192),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style write pattern; NORMAL is enough for a
	// best-effort store that the server can always rebuild from memory.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS map_diffs (
			level TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			adds_json TEXT NOT NULL,
			removes_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tile_diffs (
			level TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			set_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			level TEXT NOT NULL,
			gx INTEGER NOT NULL,
			gy INTEGER NOT NULL,
			kind INTEGER NOT NULL,
			payload TEXT NOT NULL,
			h REAL NOT NULL,
			PRIMARY KEY (level, gx, gy, kind, payload)
		);`,
		`CREATE TABLE IF NOT EXISTS portals (
			level TEXT NOT NULL,
			k TEXT NOT NULL,
			dest TEXT NOT NULL,
			PRIMARY KEY (level, k)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// LoadAll runs synchronously at startup, before the server takes traffic.
func (s *Store) LoadAll() (map[string]*world.Level, error) {
	levels := map[string]*world.Level{}
	ensure := func(name string) *world.Level {
		lv, ok := levels[name]
		if !ok {
			lv = world.NewLevel(name)
			levels[name] = lv
		}
		return lv
	}

	rows, err := s.db.Query(`SELECT level, version, adds_json, removes_json FROM map_diffs`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var level, addsJSON, removesJSON string
		var version int64
		if err := rows.Scan(&level, &version, &addsJSON, &removesJSON); err != nil {
			rows.Close()
			return nil, err
		}
		lv := ensure(level)
		lv.Map.Version = version
		var adds map[string]int
		if err := json.Unmarshal([]byte(addsJSON), &adds); err != nil {
			rows.Close()
			return nil, fmt.Errorf("map_diffs %s: %w", level, err)
		}
		for k, t := range adds {
			lv.Map.Adds[k] = world.NormalizeBlockType(t)
		}
		var removes []string
		if err := json.Unmarshal([]byte(removesJSON), &removes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("map_diffs %s: %w", level, err)
		}
		for _, k := range removes {
			lv.Map.Removes[k] = struct{}{}
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT level, version, set_json FROM tile_diffs`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var level, setJSON string
		var version int64
		if err := rows.Scan(&level, &version, &setJSON); err != nil {
			rows.Close()
			return nil, err
		}
		lv := ensure(level)
		lv.Tiles.Version = version
		if err := json.Unmarshal([]byte(setJSON), &lv.Tiles.Set); err != nil {
			rows.Close()
			return nil, fmt.Errorf("tile_diffs %s: %w", level, err)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT level, gx, gy, kind, payload, h FROM items`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var level, payload string
		var gx, gy, kind int
		var h float64
		if err := rows.Scan(&level, &gx, &gy, &kind, &payload, &h); err != nil {
			rows.Close()
			return nil, err
		}
		lv := ensure(level)
		lv.Items = append(lv.Items, world.MapItem{
			GX:      gx,
			GY:      gy,
			H:       h,
			Kind:    world.ItemKind(kind),
			Payload: payload,
		})
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT level, k, dest FROM portals`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var level, k, dest string
		if err := rows.Scan(&level, &k, &dest); err != nil {
			rows.Close()
			return nil, err
		}
		ensure(level).Portals[k] = dest
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return levels, nil
}

func (s *Store) SaveMapDiff(level string, d *world.MapDiff) {
	s.enqueue(req{kind: reqMapDiff, level: level, mapDiff: d})
}

func (s *Store) SaveTileDiff(level string, d *world.TileDiff) {
	s.enqueue(req{kind: reqTileDiff, level: level, tileDiff: d})
}

func (s *Store) UpsertItem(level string, it world.MapItem) {
	s.enqueue(req{kind: reqUpsertItem, level: level, item: it})
}

func (s *Store) DeleteItem(level string, it world.MapItem) {
	s.enqueue(req{kind: reqDeleteItem, level: level, item: it})
}

func (s *Store) SetPortal(level, key, dest string) {
	s.enqueue(req{kind: reqSetPortal, level: level, key: key, dest: dest})
}

func (s *Store) RemovePortal(level, key string) {
	s.enqueue(req{kind: reqRemovePortal, level: level, key: key})
}

func (s *Store) DeleteLevel(level string) {
	s.enqueue(req{kind: reqDeleteLevel, level: level})
}

func (s *Store) Vacuum() {
	s.enqueue(req{kind: reqVacuum})
}

func (s *Store) enqueue(r req) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop rather than stall the state lock; memory stays authoritative.
		if n := s.dropped.Add(1); n%100 == 1 {
			s.log.Warnw("persistence backlog full, dropping writes", "dropped", n)
		}
	}
}

func (s *Store) loop() {
	for r := range s.ch {
		if err := s.apply(r); err != nil {
			s.log.Warnw("persistence write failed", "kind", r.kind, "level", r.level, "err", err)
		}
	}
}

func (s *Store) apply(r req) error {
	switch r.kind {
	case reqMapDiff:
		adds := make(map[string]int, len(r.mapDiff.Adds))
		for k, t := range r.mapDiff.Adds {
			adds[k] = int(t)
		}
		removes := make([]string, 0, len(r.mapDiff.Removes))
		for k := range r.mapDiff.Removes {
			removes = append(removes, k)
		}
		addsJSON, _ := json.Marshal(adds)
		removesJSON, _ := json.Marshal(removes)
		_, err := s.db.Exec(`INSERT INTO map_diffs (level, version, adds_json, removes_json)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(level) DO UPDATE SET version=excluded.version,
				adds_json=excluded.adds_json, removes_json=excluded.removes_json`,
			r.level, r.mapDiff.Version, string(addsJSON), string(removesJSON))
		return err
	case reqTileDiff:
		setJSON, _ := json.Marshal(r.tileDiff.Set)
		_, err := s.db.Exec(`INSERT INTO tile_diffs (level, version, set_json)
			VALUES (?, ?, ?)
			ON CONFLICT(level) DO UPDATE SET version=excluded.version, set_json=excluded.set_json`,
			r.level, r.tileDiff.Version, string(setJSON))
		return err
	case reqUpsertItem:
		_, err := s.db.Exec(`INSERT INTO items (level, gx, gy, kind, payload, h)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(level, gx, gy, kind, payload) DO UPDATE SET h=excluded.h`,
			r.level, r.item.GX, r.item.GY, int(r.item.Kind), r.item.Payload, r.item.H)
		return err
	case reqDeleteItem:
		_, err := s.db.Exec(`DELETE FROM items WHERE level=? AND gx=? AND gy=? AND kind=? AND payload=?`,
			r.level, r.item.GX, r.item.GY, int(r.item.Kind), r.item.Payload)
		return err
	case reqSetPortal:
		_, err := s.db.Exec(`INSERT INTO portals (level, k, dest) VALUES (?, ?, ?)
			ON CONFLICT(level, k) DO UPDATE SET dest=excluded.dest`,
			r.level, r.key, r.dest)
		return err
	case reqRemovePortal:
		_, err := s.db.Exec(`DELETE FROM portals WHERE level=? AND k=?`, r.level, r.key)
		return err
	case reqDeleteLevel:
		for _, stmt := range []string{
			`DELETE FROM map_diffs WHERE level=?`,
			`DELETE FROM tile_diffs WHERE level=?`,
			`DELETE FROM items WHERE level=?`,
			`DELETE FROM portals WHERE level=?`,
		} {
			if _, err := s.db.Exec(stmt, r.level); err != nil {
				return err
			}
		}
		return nil
	case reqVacuum:
		_, err := s.db.Exec(`VACUUM;`)
		return err
	}
	return nil
}
