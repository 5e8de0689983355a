package gesture

import (
	"math"
	"time"
)

// Wheel paging thresholds. Deltas accumulate until the magnitude crosses
// WheelThreshold; fires are rate-limited by WheelMinInterval; the
// accumulator drains after WheelIdleReset of quiet so residual notches
// cannot fire a page change much later.
const (
	WheelThreshold   = 3
	WheelMinInterval = 250 * time.Millisecond
	WheelIdleReset   = 400 * time.Millisecond
)

// Swipe recognition thresholds, in terminal cells and milliseconds. A drag
// leaves the dead zone to start tracking; release commits on distance or
// velocity, bounded by duration and vertical drift.
const (
	SwipeDeadZone    = 5
	SwipeDistance    = 20
	SwipeVelocity    = 0.15
	SwipeMaxDuration = 600 * time.Millisecond
	SwipeDriftCap    = 3
)

// State enumerates the swipe machine's phases.
type State int

const (
	Idle State = iota
	Tracking
	Committed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Wheel converts scroll deltas into single paged changes. The zero value
// is ready to use.
type Wheel struct {
	acc      int
	lastFire time.Time
	lastSeen time.Time
}

// Observe feeds one wheel event and returns -1, 0, or +1: the sign of the
// page change to fire now, if any. Crossing the threshold during the
// rate-limit window keeps the accumulation; only a fire drains it.
func (w *Wheel) Observe(delta int, now time.Time) int {
	if !w.lastSeen.IsZero() && now.Sub(w.lastSeen) > WheelIdleReset {
		w.acc = 0
	}
	w.lastSeen = now
	w.acc += delta

	if abs(w.acc) < WheelThreshold {
		return 0
	}
	if !w.lastFire.IsZero() && now.Sub(w.lastFire) < WheelMinInterval {
		return 0
	}

	dir := 1
	if w.acc < 0 {
		dir = -1
	}
	w.acc = 0
	w.lastFire = now
	return dir
}

// Session tracks one drag from press to release. Construct it on press,
// discard it after End; no gesture state outlives the gesture.
type Session struct {
	startX, startY int
	begun          time.Time
	lastX          int
	maxDrift       int
	state          State
}

// Begin opens a session at the press position.
func Begin(x, y int, now time.Time) *Session {
	return &Session{startX: x, startY: y, begun: now, lastX: x, state: Idle}
}

// Track feeds a pointer move. Horizontal movement beyond the dead zone
// enters Tracking; until then the press can still resolve as a tap.
func (s *Session) Track(x, y int, now time.Time) State {
	if s.state == Committed || s.state == Cancelled {
		return s.state
	}
	s.lastX = x
	if d := abs(y - s.startY); d > s.maxDrift {
		s.maxDrift = d
	}
	if s.state == Idle && abs(x-s.startX) > SwipeDeadZone {
		s.state = Tracking
	}
	return s.state
}

// End resolves the session at release. A session that never left the dead
// zone stays a tap: Cancelled with direction 0, leaving the press for the
// cell underneath. A tracking session commits when displacement exceeds
// SwipeDistance or velocity exceeds SwipeVelocity, within SwipeMaxDuration
// and with vertical drift under SwipeDriftCap; the direction is +1 when the
// drag pulls the next page in (leftward), -1 for the previous.
func (s *Session) End(x, y int, now time.Time) (State, int) {
	if s.state == Committed || s.state == Cancelled {
		return s.state, 0
	}
	s.Track(x, y, now)
	if s.state != Tracking {
		s.state = Cancelled
		return s.state, 0
	}

	dx := x - s.startX
	elapsed := now.Sub(s.begun)
	ms := float64(elapsed.Milliseconds())
	velocity := 0.0
	if ms > 0 {
		velocity = math.Abs(float64(dx)) / ms
	}

	commit := (abs(dx) > SwipeDistance || velocity > SwipeVelocity) &&
		elapsed <= SwipeMaxDuration &&
		s.maxDrift < SwipeDriftCap
	if !commit {
		s.state = Cancelled
		return s.state, 0
	}

	s.state = Committed
	if dx < 0 {
		return s.state, 1
	}
	return s.state, -1
}

// DX is the live horizontal translation to apply while tracking.
func (s *Session) DX() int {
	if s.state != Tracking {
		return 0
	}
	return s.lastX - s.startX
}

// State returns the session's current phase.
func (s *Session) State() State {
	return s.state
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
