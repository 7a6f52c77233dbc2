package server

import (
	"encoding/json"
	"net/http"

	"rabbitwine.gg/mpserver/internal/persistence/archive"
)

// Admin endpoints operate through the same store entry points as the wire
// protocol and trigger the same full-state resend to affected connections.

type adminLevelInfo struct {
	Level       string `json:"level"`
	MapVersion  int64  `json:"mapVersion"`
	TileVersion int64  `json:"tileVersion"`
	Items       int    `json:"items"`
	Portals     int    `json:"portals"`
}

// HandleAdminLevels serves GET /admin/v1/levels.
func (s *Server) HandleAdminLevels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	names := s.state.LevelNames()
	infos := make([]adminLevelInfo, 0, len(names))
	for _, name := range names {
		lv := s.state.Levels[name]
		infos = append(infos, adminLevelInfo{
			Level:       name,
			MapVersion:  lv.Map.Version,
			TileVersion: lv.Tiles.Version,
			Items:       len(lv.Items),
			Portals:     len(lv.Portals),
		})
	}
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"levels": infos})
}

// HandleAdminReset serves POST /admin/v1/reset?level=NAME: drops all stored
// state for the level and resends the now-empty bundle to everyone on it.
func (s *Server) HandleAdminReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	level := r.URL.Query().Get("level")
	if level == "" {
		http.Error(w, "missing level", http.StatusBadRequest)
		return
	}

	now := s.clock.NowMs()
	s.mu.Lock()
	existed := s.state.ResetLevel(level)
	s.store.DeleteLevel(level)
	resends := s.bundlesForLevelLocked(level, now)
	s.mu.Unlock()
	s.deliverBundles(resends)

	s.log.Infow("admin reset", "level", level, "existed", existed)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "existed": existed})
}

// HandleAdminExport serves GET /admin/v1/export?level=NAME as a zstd JSON
// archive.
func (s *Server) HandleAdminExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	level := r.URL.Query().Get("level")
	s.mu.Lock()
	lv, ok := s.state.Levels[level]
	var a archive.Level
	if ok {
		a = archive.FromLevel(lv)
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown level", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", "attachment; filename="+level+".rwlevel")
	if err := archive.Write(w, a); err != nil {
		s.log.Warnw("export failed", "level", level, "err", err)
	}
}

// HandleAdminImport serves POST /admin/v1/import with an archive body: the
// level is replaced wholesale, persisted, and resent to connected clients.
func (s *Server) HandleAdminImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a, err := archive.Read(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	lv := a.Restore()

	now := s.clock.NowMs()
	s.mu.Lock()
	s.state.Levels[lv.Name] = lv
	s.store.DeleteLevel(lv.Name)
	s.store.SaveMapDiff(lv.Name, lv.Map.Clone())
	s.store.SaveTileDiff(lv.Name, lv.Tiles.Clone())
	for _, it := range lv.Items {
		s.store.UpsertItem(lv.Name, it)
	}
	for k, dest := range lv.Portals {
		s.store.SetPortal(lv.Name, k, dest)
	}
	resends := s.bundlesForLevelLocked(lv.Name, now)
	s.mu.Unlock()
	s.deliverBundles(resends)

	s.log.Infow("admin import", "level", lv.Name,
		"adds", len(lv.Map.Adds), "items", len(lv.Items), "portals", len(lv.Portals))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "level": lv.Name})
}

type sessionBundle struct {
	sess *Session
	msgs [][]byte
}

// bundlesForLevelLocked prepares a per-session full resend for every
// connection currently scoped to the level, across all channels.
func (s *Server) bundlesForLevelLocked(level string, now int64) []sessionBundle {
	var out []sessionBundle
	for sess := range s.sessions {
		if _, l := sess.scope(); l != level {
			continue
		}
		out = append(out, sessionBundle{sess: sess, msgs: s.bundleLocked(sess, now, true)})
	}
	return out
}

func (s *Server) deliverBundles(bundles []sessionBundle) {
	for _, b := range bundles {
		s.sendAll(b.sess, b.msgs)
	}
}
