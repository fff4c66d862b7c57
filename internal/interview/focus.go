package interview

// FocusSource delivers "focus lost" notifications from the candidate's window.
// Subscribe returns a function that removes the listener; calling it more
// than once is a no-op.
type FocusSource interface {
	Subscribe(listener func()) (unsubscribe func())
}

// FocusBus is an in-process FocusSource. It is not safe for concurrent use;
// the Controller emits on its own loop goroutine.
type FocusBus struct {
	nextID    int
	listeners map[int]func()
}

// NewFocusBus creates an empty bus.
func NewFocusBus() *FocusBus {
	return &FocusBus{listeners: make(map[int]func())}
}

// Subscribe registers listener until the returned function is called.
func (b *FocusBus) Subscribe(listener func()) func() {
	id := b.nextID
	b.nextID++
	b.listeners[id] = listener
	return func() {
		delete(b.listeners, id)
	}
}

// Emit notifies every current listener and returns how many were notified.
func (b *FocusBus) Emit() int {
	// Copy first: a listener may unsubscribe itself while running.
	current := make([]func(), 0, len(b.listeners))
	for _, l := range b.listeners {
		current = append(current, l)
	}
	for _, l := range current {
		l()
	}
	return len(current)
}

// Listeners returns the number of active subscriptions.
func (b *FocusBus) Listeners() int {
	return len(b.listeners)
}
