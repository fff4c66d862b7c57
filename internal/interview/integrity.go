package interview

// DefaultStrikeThreshold is the number of focus losses that ends a session.
const DefaultStrikeThreshold = 3

// IntegrityState is the observable state of an IntegrityMonitor.
type IntegrityState struct {
	StrikeCount int `json:"strike_count"`
	Threshold   int `json:"threshold"`
}

// Verdict is the monitor's reaction to one focus loss.
type Verdict int

const (
	// VerdictIgnored means the monitor was not armed; nothing was counted.
	VerdictIgnored Verdict = iota
	// VerdictWarning means a strike was counted below the threshold.
	VerdictWarning
	// VerdictBreach means the threshold was reached and the monitor disarmed itself.
	VerdictBreach
)

// IntegrityMonitor counts focus-loss strikes for one session.
type IntegrityMonitor struct {
	state       IntegrityState
	armed       bool
	unsubscribe func()
}

// NewIntegrityMonitor returns a disarmed monitor. A non-positive threshold
// uses DefaultStrikeThreshold.
func NewIntegrityMonitor(threshold int) *IntegrityMonitor {
	if threshold <= 0 {
		threshold = DefaultStrikeThreshold
	}
	return &IntegrityMonitor{state: IntegrityState{Threshold: threshold}}
}

// Arm subscribes onFocusLost to src. Arming an armed monitor is a no-op.
func (m *IntegrityMonitor) Arm(src FocusSource, onFocusLost func()) {
	if m.armed {
		return
	}
	m.armed = true
	if src != nil {
		m.unsubscribe = src.Subscribe(onFocusLost)
	}
}

// Disarm removes the subscription. The strike count is kept but frozen.
func (m *IntegrityMonitor) Disarm() {
	if !m.armed {
		return
	}
	m.armed = false
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Armed reports whether strikes are currently being counted.
func (m *IntegrityMonitor) Armed() bool {
	return m.armed
}

// Strike counts one focus loss. Reaching the threshold disarms the monitor
// so later events cannot be counted twice.
func (m *IntegrityMonitor) Strike() Verdict {
	if !m.armed {
		return VerdictIgnored
	}
	m.state.StrikeCount++
	if m.state.StrikeCount >= m.state.Threshold {
		m.Disarm()
		return VerdictBreach
	}
	return VerdictWarning
}

// State returns a copy of the current strike state.
func (m *IntegrityMonitor) State() IntegrityState {
	return m.state
}
