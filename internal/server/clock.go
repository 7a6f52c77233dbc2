package server

import "time"

// WallClock is the default Clock: unix-millis timestamps and a music position
// that is simply seconds since process start (the music clock is cosmetic, a
// wall-clock passthrough so clients can loosely align the soundtrack).
type WallClock struct {
	start time.Time
}

func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (c *WallClock) NowMs() int64 {
	return time.Now().UnixMilli()
}

func (c *WallClock) MusicPos() float64 {
	return time.Since(c.start).Seconds()
}
