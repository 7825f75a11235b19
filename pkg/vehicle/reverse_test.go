package vehicle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steer-rc/controller/pkg/actuator"
	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/protocol"
)

type sleepLog struct {
	slept []time.Duration
}

func (s *sleepLog) sleep(d time.Duration) { s.slept = append(s.slept, d) }

func newMachine(t *testing.T) (*ReverseStateMachine, *actuator.Recorder, *sleepLog) {
	t.Helper()
	rec := actuator.NewRecorder()
	sl := &sleepLog{}
	return NewReverseStateMachine(rec, config.DefaultVehicleConfig().ESC, sl.sleep), rec, sl
}

func TestReverseStateMachine_PulseOnEntry(t *testing.T) {
	m, rec, sl := newMachine(t)

	var transitions []State
	m.OnTransition = func(_, to State) { transitions = append(transitions, to) }

	require.NoError(t, m.Handle(protocol.Command{Throttle: 40, Direction: protocol.Reverse}))

	// reverse tap at throttle 10, neutral hold, then the commanded reverse duty
	assert.InDeltaSlice(t, []float64{0.0725, 0.075, 0.065}, rec.Duties(), 1e-9)
	assert.Equal(t, []time.Duration{150 * time.Millisecond, 150 * time.Millisecond}, sl.slept)
	assert.Equal(t, []State{StateReverseArming, StateReverseReady}, transitions)
	assert.True(t, m.ReverseReady())
	assert.InDelta(t, 0.065, m.Duty(), 1e-9)
}

func TestReverseStateMachine_NoPulseWhileReady(t *testing.T) {
	m, rec, sl := newMachine(t)

	require.NoError(t, m.Handle(protocol.Command{Throttle: 0, Direction: protocol.Reverse}))
	rec.Reset()
	sl.slept = nil

	require.NoError(t, m.Handle(protocol.Command{Throttle: 100, Direction: protocol.Reverse}))

	assert.InDeltaSlice(t, []float64{0.05}, rec.Duties(), 1e-9)
	assert.Empty(t, sl.slept)
}

func TestReverseStateMachine_ForwardNeedsNoPulse(t *testing.T) {
	m, rec, sl := newMachine(t)

	require.NoError(t, m.Handle(protocol.Command{Throttle: 0, Direction: protocol.Reverse}))
	rec.Reset()
	sl.slept = nil

	require.NoError(t, m.Handle(protocol.Command{Throttle: 50, Direction: protocol.Forward}))

	assert.InDeltaSlice(t, []float64{0.0875}, rec.Duties(), 1e-9)
	assert.Empty(t, sl.slept)
	assert.Equal(t, StateForward, m.State())
	assert.False(t, m.ReverseReady())
}

func TestReverseStateMachine_SafeStopClearsReverse(t *testing.T) {
	m, rec, _ := newMachine(t)

	require.NoError(t, m.Handle(protocol.Command{Throttle: 30, Direction: protocol.Reverse}))
	require.NoError(t, m.SafeStop())

	assert.False(t, m.ReverseReady())
	last, ok := rec.LastDuty()
	require.True(t, ok)
	assert.Equal(t, 0.075, last)

	// re-entering reverse pulses again
	rec.Reset()
	require.NoError(t, m.Handle(protocol.Command{Throttle: 30, Direction: protocol.Reverse}))
	assert.InDeltaSlice(t, []float64{0.0725, 0.075, 0.0675}, rec.Duties(), 1e-9)
}

func TestReverseStateMachine_PulseFailure(t *testing.T) {
	m, rec, _ := newMachine(t)
	rec.FailDuty = actuator.ErrUnavailable

	err := m.Handle(protocol.Command{Throttle: 30, Direction: protocol.Reverse})

	assert.True(t, errors.Is(err, actuator.ErrUnavailable))
	assert.Equal(t, StateForward, m.State())
}

func TestReverseStateMachine_InvalidDirection(t *testing.T) {
	m, rec, _ := newMachine(t)

	err := m.Handle(protocol.Command{Throttle: 30, Direction: 0})

	assert.True(t, errors.Is(err, protocol.ErrInvalidDirection))
	assert.Empty(t, rec.Calls())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "forward", StateForward.String())
	assert.Equal(t, "reverse_arming", StateReverseArming.String())
	assert.Equal(t, "reverse_ready", StateReverseReady.String())
	assert.Equal(t, "state(7)", State(7).String())
}

func TestWatchdog(t *testing.T) {
	start := time.Unix(1000, 0)
	w := NewWatchdog(500*time.Millisecond, start)

	assert.False(t, w.Connected())
	assert.Equal(t, start.Add(500*time.Millisecond), w.Deadline())
	assert.False(t, w.Expire(start.Add(500*time.Millisecond)), "never connected, nothing lost")

	assert.True(t, w.Feed(start.Add(600*time.Millisecond)))
	assert.False(t, w.Feed(start.Add(700*time.Millisecond)))
	assert.Equal(t, start.Add(1200*time.Millisecond), w.Deadline())
	assert.Equal(t, start.Add(700*time.Millisecond), w.LastValid())

	assert.True(t, w.Expire(start.Add(1200*time.Millisecond)))
	assert.False(t, w.Expire(start.Add(1700*time.Millisecond)))
	assert.Equal(t, start.Add(2200*time.Millisecond), w.Deadline())
	assert.False(t, w.Connected())
}

func TestWatchdog_Extend(t *testing.T) {
	start := time.Unix(1000, 0)
	w := NewWatchdog(500*time.Millisecond, start)
	w.Feed(start)

	w.Extend(start.Add(600 * time.Millisecond))
	assert.Equal(t, start.Add(1100*time.Millisecond), w.Deadline())
	assert.Equal(t, start, w.LastValid(), "extending is not a command")
	assert.True(t, w.Connected())

	// never moves the deadline backwards
	w.Extend(start)
	assert.Equal(t, start.Add(1100*time.Millisecond), w.Deadline())
}
