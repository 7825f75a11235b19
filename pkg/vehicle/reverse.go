package vehicle

import (
	"fmt"

	"github.com/steer-rc/controller/pkg/actuator"
	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/protocol"
)

// State is the reverse engagement state.
type State int

const (
	StateForward State = iota
	StateReverseArming
	StateReverseReady
)

func (s State) String() string {
	switch s {
	case StateForward:
		return "forward"
	case StateReverseArming:
		return "reverse_arming"
	case StateReverseReady:
		return "reverse_ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText lets State appear by name in JSON status.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateForward, StateReverseArming, StateReverseReady} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown drive state %q", text)
}

// ReverseStateMachine maps commands to ESC duty. Many ESCs only accept
// reverse drive after a short reverse tap followed by neutral; the machine
// plays that pulse on every entry into reverse.
//
// It is not safe for concurrent use; the vehicle loop owns it.
type ReverseStateMachine struct {
	driver actuator.Driver
	esc    actuator.ESC
	cfg    config.ESCConfig
	sleep  actuator.Sleeper

	state State
	duty  float64

	// OnTransition, when set, is called after every state change.
	OnTransition func(from, to State)
}

// NewReverseStateMachine starts in StateForward.
func NewReverseStateMachine(driver actuator.Driver, cfg config.ESCConfig, sleep actuator.Sleeper) *ReverseStateMachine {
	return &ReverseStateMachine{
		driver: driver,
		esc:    actuator.NewESC(cfg),
		cfg:    cfg,
		sleep:  sleep,
		state:  StateForward,
		duty:   cfg.NeutralDuty,
	}
}

func (m *ReverseStateMachine) State() State {
	return m.state
}

// ReverseReady is true only while reverse drive is engaged.
func (m *ReverseStateMachine) ReverseReady() bool {
	return m.state == StateReverseReady
}

// Duty is the last duty written to the driver.
func (m *ReverseStateMachine) Duty() float64 {
	return m.duty
}

// Handle applies one command. Entering reverse blocks for the whole pulse
// and issues no other output until it completes. Leaving reverse needs no
// pulse.
func (m *ReverseStateMachine) Handle(cmd protocol.Command) error {
	switch cmd.Direction {
	case protocol.Forward:
		if m.state != StateForward {
			m.transition(StateForward)
		}
	case protocol.Reverse:
		if m.state != StateReverseReady {
			if err := m.engageReverse(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %d", protocol.ErrInvalidDirection, int32(cmd.Direction))
	}

	return m.setDuty(m.esc.Duty(float64(cmd.Throttle), cmd.Direction))
}

// SafeStop drives neutral and drops any reverse engagement.
func (m *ReverseStateMachine) SafeStop() error {
	if m.state != StateForward {
		m.transition(StateForward)
	}
	return m.setDuty(m.esc.Neutral())
}

func (m *ReverseStateMachine) engageReverse() error {
	m.transition(StateReverseArming)

	if err := m.setDuty(m.esc.Duty(m.cfg.ReversePulseThrottle, protocol.Reverse)); err != nil {
		m.transition(StateForward)
		return fmt.Errorf("reverse pulse failed: %w", err)
	}
	m.sleep(m.cfg.ReversePulseDuration)

	if err := m.setDuty(m.esc.Neutral()); err != nil {
		m.transition(StateForward)
		return fmt.Errorf("reverse neutral hold failed: %w", err)
	}
	m.sleep(m.cfg.NeutralHoldDuration)

	m.transition(StateReverseReady)
	return nil
}

func (m *ReverseStateMachine) setDuty(duty float64) error {
	if err := m.driver.SetDriveDuty(duty); err != nil {
		return err
	}
	m.duty = duty
	return nil
}

func (m *ReverseStateMachine) transition(to State) {
	from := m.state
	m.state = to
	if m.OnTransition != nil && from != to {
		m.OnTransition(from, to)
	}
}
