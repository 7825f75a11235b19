package actuator

import (
	"fmt"
	"sync"
)

// CallKind names a Driver method.
type CallKind string

const (
	CallSteering CallKind = "steering"
	CallDuty     CallKind = "duty"
)

// Call is one recorded Driver call.
type Call struct {
	Kind  CallKind
	Value float64
}

func (c Call) String() string {
	return fmt.Sprintf("%s=%.4f", c.Kind, c.Value)
}

// Recorder is an in-memory Driver that records every call in order.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	closed bool

	// FailDuty, when set, is returned from SetDriveDuty.
	FailDuty error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetSteeringAngle(degrees float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Kind: CallSteering, Value: degrees})
	return nil
}

func (r *Recorder) SetDriveDuty(fraction float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailDuty != nil {
		return r.FailDuty
	}
	r.calls = append(r.calls, Call{Kind: CallDuty, Value: fraction})
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Calls returns a copy of every call so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Duties returns only the duty values, in order.
func (r *Recorder) Duties() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []float64
	for _, c := range r.calls {
		if c.Kind == CallDuty {
			out = append(out, c.Value)
		}
	}
	return out
}

// LastDuty returns the most recent duty, or false if none was set.
func (r *Recorder) LastDuty() (float64, bool) {
	d := r.Duties()
	if len(d) == 0 {
		return 0, false
	}
	return d[len(d)-1], true
}

// Reset drops the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
