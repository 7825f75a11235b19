package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/protocol"
)

func TestOperatorState_ToggleIsEdgeTriggered(t *testing.T) {
	cfg := config.DefaultControlConfig()
	s := NewOperatorState(&cfg)
	toggle := cfg.Buttons.DirectionToggle

	actions := s.Press([]int{toggle}, cfg)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionDirectionToggled, actions[0].Kind)
	assert.Equal(t, protocol.Reverse, s.Direction)

	// Held for many cycles: no further toggles.
	for i := 0; i < 50; i++ {
		assert.Empty(t, s.Press([]int{toggle}, cfg))
	}
	assert.Equal(t, protocol.Reverse, s.Direction)

	// Release, then press again.
	assert.Empty(t, s.Press(nil, cfg))
	s.Press([]int{toggle}, cfg)
	assert.Equal(t, protocol.Forward, s.Direction)
}

func TestOperatorState_DuplicateIndicesCountOnce(t *testing.T) {
	cfg := config.DefaultControlConfig()
	s := NewOperatorState(&cfg)

	actions := s.Press([]int{cfg.Buttons.DirectionToggle, cfg.Buttons.DirectionToggle}, cfg)
	assert.Len(t, actions, 1)
	assert.Equal(t, protocol.Reverse, s.Direction)
}

func TestOperatorState_ThrottlePaddles(t *testing.T) {
	cfg := config.DefaultControlConfig()
	s := NewOperatorState(&cfg)
	up, down := cfg.Buttons.ThrottleUp, cfg.Buttons.ThrottleDown

	s.Press([]int{up}, cfg)
	assert.Equal(t, 55.0, s.ThrottleRange)

	for i := 0; i < 20; i++ {
		s.Press(nil, cfg)
		s.Press([]int{up}, cfg)
	}
	assert.Equal(t, cfg.ThrottleMax, s.ThrottleRange)

	for i := 0; i < 30; i++ {
		s.Press(nil, cfg)
		s.Press([]int{down}, cfg)
	}
	assert.Equal(t, cfg.ThrottleMin, s.ThrottleRange)

	assert.Equal(t, cfg.ThrottleMin, s.Effective(cfg).ThrottleRange)
	assert.Equal(t, 50.0, cfg.ThrottleRange, "config snapshot must not change")
}

func TestOperatorState_SyncOnNewSnapshot(t *testing.T) {
	cfg := config.DefaultControlConfig()
	s := NewOperatorState(&cfg)

	s.Press([]int{cfg.Buttons.ThrottleUp}, cfg)
	s.Sync(&cfg)
	assert.Equal(t, 55.0, s.ThrottleRange, "same snapshot keeps paddle adjustments")

	next := cfg
	next.ThrottleRange = 70
	s.Sync(&next)
	assert.Equal(t, 70.0, s.ThrottleRange)
	assert.Equal(t, protocol.Forward, s.Direction)
}
