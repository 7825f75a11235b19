// Package operator is the operator side control loop: it samples the input
// device, conditions the reading into a command and streams it to the
// vehicle at the configured send interval.
package operator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/control"
	"github.com/steer-rc/controller/pkg/input"
	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/metrics"
	"github.com/steer-rc/controller/pkg/protocol"
	"github.com/steer-rc/controller/pkg/status"
)

// Sender delivers one command. transport.Sender implements it.
type Sender interface {
	Send(cmd protocol.Command) error
}

// ConfigSource hands out the currently published control config.
type ConfigSource interface {
	Current() *config.ControlConfig
}

// Status is the snapshot published after every cycle.
type Status struct {
	SessionID     string             `json:"session_id"`
	Device        string             `json:"device"`
	DeviceOK      bool               `json:"device_ok"`
	Command       protocol.Command   `json:"command"`
	Direction     protocol.Direction `json:"direction"`
	ThrottleRange float64            `json:"throttle_range"`
	BrakeLevel    float64            `json:"brake_level"`
	Sent          uint64             `json:"sent"`
	SendErrors    uint64             `json:"send_errors"`
	LastError     string             `json:"last_error,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Options carries the optional collaborators of a Loop.
type Options struct {
	Now     func() time.Time
	Feed    *status.Feed
	Metrics *metrics.Operator
}

// Loop owns the operator state for the lifetime of Run.
type Loop struct {
	configs ConfigSource
	device  input.Device
	sender  Sender
	logger  customlog.Logger
	feed    *status.Feed
	metrics *metrics.Operator
	now     func() time.Time

	state      *control.OperatorState
	board      *status.Board[Status]
	snap       Status
	deviceDown bool
	sendFailed bool
}

// NewLoop builds a loop reading its config from configs on every cycle.
func NewLoop(configs ConfigSource, device input.Device, sender Sender, logger customlog.Logger, opts Options) (*Loop, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Feed == nil {
		opts.Feed = status.NewFeed(logger, 0)
	}
	if opts.Metrics == nil {
		m, err := metrics.NewOperator(nil)
		if err != nil {
			return nil, err
		}
		opts.Metrics = m
	}

	cfg := configs.Current()
	l := &Loop{
		configs: configs,
		device:  device,
		sender:  sender,
		logger:  logger,
		feed:    opts.Feed,
		metrics: opts.Metrics,
		now:     opts.Now,
		state:   control.NewOperatorState(cfg),
	}
	l.snap = Status{
		SessionID:     uuid.NewString(),
		Device:        device.Name(),
		Direction:     protocol.Forward,
		ThrottleRange: l.state.ThrottleRange,
		Command:       protocol.NeutralCommand(),
		UpdatedAt:     l.now(),
	}
	l.board = status.NewBoard(l.snap)
	return l, nil
}

// Status returns the latest published snapshot. Safe from any goroutine.
func (l *Loop) Status() Status {
	return l.board.Load()
}

// Board exposes the snapshot board to observers.
func (l *Loop) Board() *status.Board[Status] {
	return l.board
}

// Run samples and sends once per send interval until ctx is done. The
// interval is re-read from the published config each cycle. On exit a
// final neutral command is sent.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.configs.Current().SendInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.feed.Infof("operator loop started, session %s, device %q, interval %v", l.snap.SessionID, l.device.Name(), interval)
	defer l.stop(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		l.Step(ctx)

		if next := l.configs.Current().SendInterval; next != interval {
			interval = next
			ticker.Reset(interval)
			l.logger.Infof("send interval changed to %v", interval)
		}
	}
}

// Step runs one sample cycle: read, update sticky state, condition, send.
func (l *Loop) Step(ctx context.Context) {
	cfgPtr := l.configs.Current()
	l.state.Sync(cfgPtr)
	cfg := *cfgPtr

	sample, err := l.device.Read()
	if err != nil {
		l.inputFault(ctx, err)
		l.publish()
		return
	}
	if l.deviceDown {
		l.deviceDown = false
		l.state.Release()
		l.feed.Infof("input device %q available", l.device.Name())
	}

	for _, a := range l.state.Press(sample.Buttons, cfg) {
		switch a.Kind {
		case control.ActionDirectionToggled:
			l.metrics.Toggled(ctx)
			l.feed.Infof("direction %s", a.Direction)
		case control.ActionThrottleRangeChanged:
			l.feed.Infof("throttle range %.0f", a.ThrottleRange)
		}
	}

	effective := l.state.Effective(cfg)
	cmd := control.Condition(sample.Axes, effective, l.state.Direction)
	l.snap.BrakeLevel = control.BrakeLevel(sample.Axes, effective)
	l.send(ctx, cmd)
	l.publish()
}

// SendTest sends a single neutral forward command, outside the regular cycle.
func (l *Loop) SendTest() error {
	if err := l.sender.Send(protocol.NeutralCommand()); err != nil {
		return fmt.Errorf("failed to send test packet: %w", err)
	}
	return nil
}

func (l *Loop) inputFault(ctx context.Context, err error) {
	l.metrics.InputError(ctx)
	l.snap.LastError = err.Error()

	if !errors.Is(err, input.ErrNoDevice) && !errors.Is(err, input.ErrDeviceClosed) {
		// Momentary read failure: skip this cycle.
		l.logger.Debugf("input read failed: %v", err)
		return
	}
	if l.deviceDown {
		return
	}

	// Stop driving: one neutral forward command, then silence so the
	// vehicle watchdog takes over. Forward never triggers a reverse pulse.
	l.deviceDown = true
	l.feed.Errorf("input device %q unavailable: %v; sending stop", l.device.Name(), err)
	l.send(ctx, protocol.NeutralCommand())
}

func (l *Loop) send(ctx context.Context, cmd protocol.Command) {
	l.snap.Command = cmd
	if err := l.sender.Send(cmd); err != nil {
		l.metrics.SendError(ctx)
		l.snap.SendErrors++
		l.snap.LastError = err.Error()
		if !l.sendFailed {
			l.sendFailed = true
			l.feed.Warnf("failed to send command: %v", err)
		}
		return
	}
	if l.sendFailed {
		l.sendFailed = false
		l.feed.Infof("sending commands again")
	}
	l.metrics.Sent(ctx)
	l.snap.Sent++
}

func (l *Loop) stop(ctx context.Context) {
	l.send(ctx, protocol.NeutralCommand())
	l.publish()
	l.feed.Infof("operator loop stopped, sent %d commands", l.snap.Sent)
}

func (l *Loop) publish() {
	l.snap.DeviceOK = !l.deviceDown
	l.snap.Direction = l.state.Direction
	l.snap.ThrottleRange = l.state.ThrottleRange
	l.snap.UpdatedAt = l.now()
	l.board.Publish(l.snap)
}
