package control

import (
	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/protocol"
)

// ActionKind identifies what a button press did.
type ActionKind int

const (
	ActionDirectionToggled ActionKind = iota
	ActionThrottleRangeChanged
)

// Action is the result of one button press.
type Action struct {
	Kind          ActionKind
	Button        int
	Direction     protocol.Direction
	ThrottleRange float64
}

// OperatorState is the sticky state of the operator loop. It is owned by a
// single goroutine and carries everything that persists across samples.
type OperatorState struct {
	Direction     protocol.Direction
	ThrottleRange float64

	held   map[int]bool
	source *config.ControlConfig
}

// NewOperatorState starts in Forward with the configured throttle range.
func NewOperatorState(cfg *config.ControlConfig) *OperatorState {
	s := &OperatorState{
		Direction: protocol.Forward,
		held:      make(map[int]bool),
	}
	s.Sync(cfg)
	return s
}

// Sync adopts the throttle range of a newly published config snapshot.
// Calling it again with the same snapshot keeps paddle adjustments.
func (s *OperatorState) Sync(cfg *config.ControlConfig) {
	if cfg == nil || cfg == s.source {
		return
	}
	s.source = cfg
	s.ThrottleRange = clamp(cfg.ThrottleRange, cfg.ThrottleMin, cfg.ThrottleMax)
}

// Press feeds the set of buttons currently held down. Only buttons that were
// not held on the previous call act, so holding a button across many samples
// counts as a single press.
func (s *OperatorState) Press(buttons []int, cfg config.ControlConfig) []Action {
	var actions []Action

	now := make(map[int]bool, len(buttons))
	for _, b := range buttons {
		if now[b] {
			continue
		}
		now[b] = true
		if s.held[b] {
			continue
		}
		if a, ok := s.press(b, cfg); ok {
			actions = append(actions, a)
		}
	}
	s.held = now

	return actions
}

func (s *OperatorState) press(button int, cfg config.ControlConfig) (Action, bool) {
	switch button {
	case cfg.Buttons.DirectionToggle:
		s.Direction = s.Direction.Toggle()
		return Action{Kind: ActionDirectionToggled, Button: button, Direction: s.Direction}, true
	case cfg.Buttons.ThrottleUp:
		s.ThrottleRange = clamp(s.ThrottleRange+cfg.ThrottleStep, cfg.ThrottleMin, cfg.ThrottleMax)
		return Action{Kind: ActionThrottleRangeChanged, Button: button, ThrottleRange: s.ThrottleRange}, true
	case cfg.Buttons.ThrottleDown:
		s.ThrottleRange = clamp(s.ThrottleRange-cfg.ThrottleStep, cfg.ThrottleMin, cfg.ThrottleMax)
		return Action{Kind: ActionThrottleRangeChanged, Button: button, ThrottleRange: s.ThrottleRange}, true
	}
	return Action{}, false
}

// Effective returns cfg with the paddle-adjusted throttle range applied.
func (s *OperatorState) Effective(cfg config.ControlConfig) config.ControlConfig {
	cfg.ThrottleRange = s.ThrottleRange
	return cfg
}

// Release forgets the held buttons, e.g. after the device reconnects.
func (s *OperatorState) Release() {
	s.held = make(map[int]bool)
}
