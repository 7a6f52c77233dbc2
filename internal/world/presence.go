package world

import (
	"sort"

	"rabbitwine.gg/mpserver/internal/protocol"
)

// TTLMs is the presence liveness window: a player whose last heartbeat is
// older than this is swept.
const TTLMs = 3000

// Player is one connected player's last known state, owned by the presence
// registry and refreshed on every heartbeat.
type Player struct {
	ID       string
	X, Y, Z  float64
	State    string
	Rotation *float64 // set only for the ball state
	Frozen   bool
	LastSeen int64
	Channel  string
	Level    string
}

// UpsertPlayer creates or refreshes a presence entry, re-arming its TTL.
func (s *State) UpsertPlayer(u protocol.Update, now int64) *Player {
	p := &Player{
		ID:       u.ID,
		X:        u.X,
		Y:        u.Y,
		Z:        u.Z,
		State:    u.State,
		Rotation: u.Rotation,
		Frozen:   u.Frozen,
		LastSeen: now,
		Channel:  u.Channel,
		Level:    u.Level,
	}
	s.Players[u.ID] = p
	return p
}

// SweepPlayers removes every player whose heartbeat is older than the TTL.
func (s *State) SweepPlayers(now int64) int {
	removed := 0
	for id, p := range s.Players {
		if now-p.LastSeen > TTLMs {
			delete(s.Players, id)
			removed++
		}
	}
	return removed
}

// SnapshotPlayers lists everyone in the (channel, level) scope except
// excludeID, sorted by id for a stable wire order.
func (s *State) SnapshotPlayers(channel, level, excludeID string, now int64) []protocol.SnapshotEntry {
	out := make([]protocol.SnapshotEntry, 0, len(s.Players))
	for id, p := range s.Players {
		if id == excludeID || p.Channel != channel || p.Level != level {
			continue
		}
		age := now - p.LastSeen
		if age < 0 {
			age = 0
		}
		e := protocol.SnapshotEntry{
			ID:      p.ID,
			Pos:     protocol.PosOut{X: p.X, Y: p.Y, Z: p.Z},
			State:   p.State,
			AgeMs:   age,
			Channel: p.Channel,
			Level:   p.Level,
			Frozen:  p.Frozen,
		}
		if p.State == protocol.StateBall && p.Rotation != nil {
			r := *p.Rotation
			e.Rotation = &r
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateMessage formats the compact delta broadcast after a heartbeat.
func (p *Player) UpdateMessage(now int64) protocol.UpdateBroadcast {
	msg := protocol.UpdateBroadcast{
		Type:    protocol.TypeUpdate,
		Now:     now,
		ID:      p.ID,
		Pos:     protocol.PosOut{X: p.X, Y: p.Y, Z: p.Z},
		State:   p.State,
		Channel: p.Channel,
		Level:   p.Level,
		Frozen:  p.Frozen,
	}
	if p.State == protocol.StateBall && p.Rotation != nil {
		r := *p.Rotation
		msg.Rotation = &r
	}
	return msg
}
