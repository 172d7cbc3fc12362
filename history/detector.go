package history

import "time"

// Default debounce settings.
const (
	DefaultIdleDelay    = 400 * time.Millisecond
	DefaultMinIdleTicks = 3
)

// Input is the pointer state sampled on a tick.
type Input struct {
	MouseDown bool
}

// Commit is the outcome of a tick. When Ready, Before and After are the
// snapshots that bound the coalesced edit.
type Commit struct {
	Ready  bool
	Before string
	After  string
}

// Detector coalesces polled snapshot changes into commits.
type Detector struct {
	IdleDelay    time.Duration
	MinIdleTicks int

	baseline   string
	current    string
	lastChange time.Time
	mouseDown  bool
	idleTicks  int
}

func NewDetector(idleDelay time.Duration, minIdleTicks int) *Detector {
	return &Detector{IdleDelay: idleDelay, MinIdleTicks: minIdleTicks}
}

// Reset makes snapshot the committed state, dropping any change in flight.
func (d *Detector) Reset(snapshot string, now time.Time) {
	d.baseline = snapshot
	d.current = snapshot
	d.lastChange = now
	d.idleTicks = 0
}

// Baseline returns the last committed snapshot.
func (d *Detector) Baseline() string {
	return d.baseline
}

// Dirty reports whether a change is waiting to be committed.
func (d *Detector) Dirty() bool {
	return d.current != d.baseline
}

// Tick samples the working state. It commits once the snapshot differs from
// the baseline, has not changed for IdleDelay, the mouse button is up and
// has not changed for MinIdleTicks ticks.
func (d *Detector) Tick(now time.Time, snapshot string, in Input) Commit {
	if in.MouseDown != d.mouseDown {
		d.mouseDown = in.MouseDown
		d.idleTicks = 0
	} else {
		d.idleTicks++
	}

	if snapshot != d.current {
		d.current = snapshot
		d.lastChange = now
	}

	if !d.Dirty() || in.MouseDown {
		return Commit{}
	}

	if now.Sub(d.lastChange) < d.IdleDelay || d.idleTicks < d.MinIdleTicks {
		return Commit{}
	}

	c := Commit{Ready: true, Before: d.baseline, After: d.current}
	d.baseline = d.current

	return c
}
