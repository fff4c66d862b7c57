package interview

// TimerState is the observable state of a Countdown.
type TimerState struct {
	RemainingSeconds int  `json:"remaining_seconds"`
	Running          bool `json:"running"`
}

// Countdown is a per-question clock advanced one second per Tick.
// The cadence comes from whoever calls Tick (see Clock); Countdown itself
// never starts goroutines.
type Countdown struct {
	state    TimerState
	onExpire func()
}

// NewCountdown returns a stopped countdown that calls onExpire when it reaches zero.
func NewCountdown(onExpire func()) *Countdown {
	return &Countdown{onExpire: onExpire}
}

// Start begins counting down from seconds. A non-positive duration leaves
// the countdown stopped.
func (c *Countdown) Start(seconds int) {
	if seconds <= 0 {
		c.state = TimerState{}
		return
	}
	c.state = TimerState{RemainingSeconds: seconds, Running: true}
}

// Reset restarts the count for the next question.
func (c *Countdown) Reset(seconds int) {
	c.Start(seconds)
}

// Stop halts the countdown. Stopping a stopped countdown is a no-op.
func (c *Countdown) Stop() {
	c.state.Running = false
}

// Tick advances one second. It reports whether this tick expired the
// countdown; onExpire runs at most once per Start.
func (c *Countdown) Tick() bool {
	if !c.state.Running {
		return false
	}
	if c.state.RemainingSeconds > 0 {
		c.state.RemainingSeconds--
	}
	if c.state.RemainingSeconds > 0 {
		return false
	}

	c.state.Running = false
	if c.onExpire != nil {
		c.onExpire()
	}
	return true
}

// State returns a copy of the current timer state.
func (c *Countdown) State() TimerState {
	return c.state
}
