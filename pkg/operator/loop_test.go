package operator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/control"
	"github.com/steer-rc/controller/pkg/input"
	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/protocol"
	"github.com/steer-rc/controller/pkg/status"
)

type staticConfigs struct {
	cfg atomic.Pointer[config.ControlConfig]
}

func newConfigs(cfg config.ControlConfig) *staticConfigs {
	s := &staticConfigs{}
	s.cfg.Store(&cfg)
	return s
}

func (s *staticConfigs) Current() *config.ControlConfig { return s.cfg.Load() }

type reading struct {
	sample input.Sample
	err    error
}

// scriptedDevice returns its readings in order, then repeats the last one.
type scriptedDevice struct {
	mu       sync.Mutex
	readings []reading
}

func (d *scriptedDevice) Name() string { return "scripted wheel" }

func (d *scriptedDevice) Read() (input.Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.readings) == 0 {
		return input.ReleasedSample(), nil
	}
	r := d.readings[0]
	if len(d.readings) > 1 {
		d.readings = d.readings[1:]
	}
	return r.sample, r.err
}

type fakeSender struct {
	mu   sync.Mutex
	sent []protocol.Command
	err  error
}

func (s *fakeSender) Send(cmd protocol.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, cmd)
	return nil
}

func (s *fakeSender) commands() []protocol.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Command(nil), s.sent...)
}

func held(buttons ...int) reading {
	s := input.ReleasedSample()
	s.Buttons = buttons
	return reading{sample: s}
}

func axes(steer, throttle, brake float64) reading {
	return reading{sample: input.Sample{Axes: control.Axes{Steer: steer, Throttle: throttle, Brake: brake}}}
}

func newTestLoop(t *testing.T, cfg config.ControlConfig, readings ...reading) (*Loop, *fakeSender, *status.Feed) {
	t.Helper()
	feed := status.NewFeed(customlog.NewDiscardLogger(), 128)
	sender := &fakeSender{}
	l, err := NewLoop(newConfigs(cfg), &scriptedDevice{readings: readings}, sender, customlog.NewDiscardLogger(), Options{Feed: feed})
	require.NoError(t, err)
	return l, sender, feed
}

func drain(ch <-chan status.Event) []string {
	var out []string
	for {
		select {
		case ev := <-ch:
			out = append(out, ev.Message)
		default:
			return out
		}
	}
}

func countContaining(msgs []string, substr string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}

func TestLoop_ConditionsSample(t *testing.T) {
	cfg := config.DefaultControlConfig()
	r := axes(0.5, 1, -1)
	l, sender, _ := newTestLoop(t, cfg, r)

	l.Step(context.Background())

	want := control.Condition(r.sample.Axes, cfg, protocol.Forward)
	assert.Equal(t, []protocol.Command{want}, sender.commands())
	assert.Greater(t, want.Throttle, float32(0))

	st := l.Status()
	assert.Equal(t, want, st.Command)
	assert.Equal(t, uint64(1), st.Sent)
	assert.True(t, st.DeviceOK)
}

func TestLoop_BrakeWins(t *testing.T) {
	l, sender, _ := newTestLoop(t, config.DefaultControlConfig(), axes(0, 1, 0))

	l.Step(context.Background())

	cmds := sender.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, float32(0), cmds[0].Throttle)
	assert.Greater(t, l.Status().BrakeLevel, 0.0)
}

func TestLoop_DirectionToggleIsEdgeTriggered(t *testing.T) {
	l, sender, _ := newTestLoop(t, config.DefaultControlConfig(),
		held(19), held(19), held(19), held(), held(19), held(),
	)

	for i := 0; i < 6; i++ {
		l.Step(context.Background())
	}

	var dirs []protocol.Direction
	for _, c := range sender.commands() {
		dirs = append(dirs, c.Direction)
	}
	assert.Equal(t, []protocol.Direction{
		protocol.Reverse, protocol.Reverse, protocol.Reverse, protocol.Reverse,
		protocol.Forward, protocol.Forward,
	}, dirs)
}

func TestLoop_ThrottlePaddles(t *testing.T) {
	cfg := config.DefaultControlConfig()
	cfg.ThrottleCurve = false
	l, sender, _ := newTestLoop(t, cfg,
		held(4), held(), held(4), axes(0, 1, -1),
	)

	for i := 0; i < 4; i++ {
		l.Step(context.Background())
	}

	cmds := sender.commands()
	require.Len(t, cmds, 4)
	assert.InDelta(t, 60, cmds[3].Throttle, 1e-3, "full pedal reaches the adjusted range")
	assert.Equal(t, 60.0, l.Status().ThrottleRange)
}

func TestLoop_NewConfigSnapshotResetsRange(t *testing.T) {
	cfg := config.DefaultControlConfig()
	configs := newConfigs(cfg)
	sender := &fakeSender{}
	dev := &scriptedDevice{readings: []reading{held(4), held()}}
	l, err := NewLoop(configs, dev, sender, customlog.NewDiscardLogger(), Options{})
	require.NoError(t, err)

	l.Step(context.Background())
	assert.Equal(t, 55.0, l.Status().ThrottleRange)

	next := cfg
	next.ThrottleRange = 80
	configs.cfg.Store(&next)
	l.Step(context.Background())
	assert.Equal(t, 80.0, l.Status().ThrottleRange)
}

func TestLoop_DeviceLost(t *testing.T) {
	reversing := axes(0, 1, -1)
	reversing.sample.Buttons = []int{19}

	l, sender, feed := newTestLoop(t, config.DefaultControlConfig(),
		reversing,
		reading{err: input.ErrNoDevice},
		reading{err: input.ErrNoDevice},
		reading{err: input.ErrNoDevice},
		axes(0, 1, -1),
	)
	events, cancel := feed.Subscribe()
	defer cancel()

	for i := 0; i < 3; i++ {
		l.Step(context.Background())
	}

	cmds := sender.commands()
	require.Len(t, cmds, 2, "one stop command, then silence")
	assert.Equal(t, protocol.Reverse, cmds[0].Direction)
	assert.Equal(t, protocol.NeutralCommand(), cmds[1], "stop is sent forward even while reversing")
	assert.False(t, l.Status().DeviceOK)

	l.Step(context.Background())
	l.Step(context.Background())
	assert.Len(t, sender.commands(), 3)
	assert.True(t, l.Status().DeviceOK)

	msgs := drain(events)
	assert.Equal(t, 1, countContaining(msgs, "unavailable"))
	assert.Equal(t, 1, countContaining(msgs, `"scripted wheel" available`))
}

func TestLoop_TransientReadErrorSkipsCycle(t *testing.T) {
	l, sender, _ := newTestLoop(t, config.DefaultControlConfig(),
		reading{err: errors.New("short read")},
		axes(0, 0, -1),
	)

	l.Step(context.Background())
	assert.Empty(t, sender.commands())
	assert.True(t, l.Status().DeviceOK)
	assert.Equal(t, "short read", l.Status().LastError)

	l.Step(context.Background())
	assert.Len(t, sender.commands(), 1)
}

func TestLoop_SendErrorsAreTransient(t *testing.T) {
	l, sender, feed := newTestLoop(t, config.DefaultControlConfig())
	events, cancel := feed.Subscribe()
	defer cancel()

	sender.err = errors.New("network unreachable")
	l.Step(context.Background())
	l.Step(context.Background())
	assert.Equal(t, uint64(2), l.Status().SendErrors)

	sender.err = nil
	l.Step(context.Background())
	assert.Equal(t, uint64(1), l.Status().Sent)

	msgs := drain(events)
	assert.Equal(t, 1, countContaining(msgs, "failed to send"))
	assert.Equal(t, 1, countContaining(msgs, "sending commands again"))
}

func TestLoop_RunSendsFinalNeutral(t *testing.T) {
	cfg := config.DefaultControlConfig()
	cfg.SendInterval = time.Millisecond
	l, sender, _ := newTestLoop(t, cfg, axes(0.3, 1, -1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(sender.commands()) >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	cmds := sender.commands()
	assert.Equal(t, protocol.NeutralCommand(), cmds[len(cmds)-1])
	assert.Greater(t, cmds[0].Throttle, float32(0))
}

func TestLoop_SendTest(t *testing.T) {
	l, sender, _ := newTestLoop(t, config.DefaultControlConfig())

	require.NoError(t, l.SendTest())
	assert.Equal(t, []protocol.Command{{SteeringAngle: 0, Throttle: 0, Direction: protocol.Forward}}, sender.commands())

	sender.err = errors.New("down")
	assert.Error(t, l.SendTest())
}
