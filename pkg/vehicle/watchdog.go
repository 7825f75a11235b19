package vehicle

import "time"

// Watchdog tracks time since the last valid command. The vehicle loop
// passes Deadline to the receiver, so a silent link surfaces as a
// receive timeout no later than one timeout after the last packet.
type Watchdog struct {
	timeout   time.Duration
	lastValid time.Time
	next      time.Time
	connected bool
}

// NewWatchdog arms the first deadline one timeout after now. The link
// starts disconnected.
func NewWatchdog(timeout time.Duration, now time.Time) *Watchdog {
	return &Watchdog{
		timeout: timeout,
		next:    now.Add(timeout),
	}
}

// Feed records a valid command at t. It returns true when the link was
// previously down.
func (w *Watchdog) Feed(t time.Time) bool {
	restored := !w.connected
	w.lastValid = t
	w.next = t.Add(w.timeout)
	w.connected = true
	return restored
}

// Extend pushes the deadline to one timeout after t without recording a
// command. Time spent applying a command does not count against the link.
func (w *Watchdog) Extend(t time.Time) {
	if next := t.Add(w.timeout); next.After(w.next) {
		w.next = next
	}
}

// Expire records a timeout at t and re-arms the deadline, so a silent
// link keeps forcing a safe stop once per timeout. It returns true only
// for the first expiry after the link was up.
func (w *Watchdog) Expire(t time.Time) bool {
	lost := w.connected
	w.connected = false
	w.next = t.Add(w.timeout)
	return lost
}

// Deadline is the instant by which the next valid command must arrive.
func (w *Watchdog) Deadline() time.Time {
	return w.next
}

func (w *Watchdog) Connected() bool {
	return w.connected
}

// LastValid is the time of the last valid command, zero if none.
func (w *Watchdog) LastValid() time.Time {
	return w.lastValid
}

func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}
