package protocol

import (
	"errors"
	"math"
)

// Defaults and limits shared by hello and update validation.
const (
	DefaultChannel = "DEFAULT"
	DefaultLevel   = "ROOT"

	MinIDLen      = 8
	MaxChannelLen = 32
	MaxLevelLen   = 64
)

// Movement states.
const (
	StateGood = "good"
	StateBall = "ball"
)

// Validation failures double as websocket close reasons.
var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidChannel   = errors.New("invalid_channel")
	ErrInvalidLevel     = errors.New("invalid_level")
	ErrInvalidPos       = errors.New("invalid_pos")
	ErrInvalidState     = errors.New("invalid_state")
	ErrRotationRequired = errors.New("rotation_required")
)

// Update is a fully validated, normalized update message.
type Update struct {
	ID       string
	X, Y, Z  float64
	State    string
	Rotation *float64 // set only for the ball state, normalized into [0,360)
	Frozen   bool
	Channel  string
	Level    string
}

func ValidID(id string) bool {
	return len(id) >= MinIDLen
}

func validChannel(ch string) bool {
	return ch != "" && len(ch) <= MaxChannelLen
}

// LevelNameOK reports whether a level name is acceptable: non-empty, at most
// MaxLevelLen chars, drawn from [A-Za-z0-9_-].
func LevelNameOK(level string) bool {
	if level == "" || len(level) > MaxLevelLen {
		return false
	}
	for i := 0; i < len(level); i++ {
		c := level[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

// SanitizeChannel coerces a hello channel to the default rather than
// rejecting it.
func SanitizeChannel(ch string) string {
	if !validChannel(ch) {
		return DefaultChannel
	}
	return ch
}

// SanitizeLevel coerces a hello / level_change level name to the default
// rather than rejecting it.
func SanitizeLevel(level string) string {
	if !LevelNameOK(level) {
		return DefaultLevel
	}
	return level
}

// NormalizeRotation wraps a rotation into [0,360).
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}

// ValidateUpdate checks an inbound update and returns the normalized form.
// Unlike hello, a bad channel or level here is a protocol violation: the
// message claims a scope, so a nonsense scope means a broken client.
func ValidateUpdate(m UpdateMsg) (Update, error) {
	if !ValidID(m.ID) {
		return Update{}, ErrInvalidID
	}
	channel := m.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	if !validChannel(channel) {
		return Update{}, ErrInvalidChannel
	}
	level := m.Level
	if level == "" {
		level = DefaultLevel
	}
	if !LevelNameOK(level) {
		return Update{}, ErrInvalidLevel
	}
	if m.Pos.X == nil || m.Pos.Y == nil {
		return Update{}, ErrInvalidPos
	}
	z := 0.0
	if m.Pos.Z != nil {
		z = *m.Pos.Z
	}
	if m.State != StateGood && m.State != StateBall {
		return Update{}, ErrInvalidState
	}
	var rotation *float64
	if m.State == StateBall {
		if m.Rotation == nil {
			return Update{}, ErrRotationRequired
		}
		r := NormalizeRotation(*m.Rotation)
		rotation = &r
	}
	return Update{
		ID:       m.ID,
		X:        *m.Pos.X,
		Y:        *m.Pos.Y,
		Z:        z,
		State:    m.State,
		Rotation: rotation,
		Frozen:   m.Frozen,
		Channel:  channel,
		Level:    level,
	}, nil
}
