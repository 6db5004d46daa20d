// Package line defines the basic interfaces for working with
// control lines between chips (reset, interrupt). A receiver
// of a line (a CPU core) implements Receiver and polls the
// installed Sender, which lets other components raise state
// without cross coupling component logic.
package line

type Sender interface {
	// Raised indicates whether the line is currently asserted.
	Raised() bool
}

type Receiver interface {
	// Install takes the given sender and stores it for later checks in appropriate logic.
	Install(s Sender)
}

// Latch is a Sender holding whatever state was last set on it.
type Latch struct {
	raised bool
	// Changes counts the number of transitions seen.
	Changes int
}

// Set asserts (true) or clears (false) the line.
func (l *Latch) Set(assert bool) {
	if l.raised != assert {
		l.Changes++
	}
	l.raised = assert
}

// Pulse toggles the line and back. The final state is unchanged but both
// transitions are counted so a receiver polling Changes sees it.
func (l *Latch) Pulse() {
	l.Set(!l.raised)
	l.Set(!l.raised)
}

// Raised implements Sender.
func (l *Latch) Raised() bool {
	return l.raised
}
