// Package vehicle is the vehicle side control loop: it receives command
// datagrams, drives steering and the ESC through the reverse state
// machine, and falls back to a safe stop when commands stop arriving.
package vehicle

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/steer-rc/controller/pkg/actuator"
	"github.com/steer-rc/controller/pkg/config"
	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/metrics"
	"github.com/steer-rc/controller/pkg/protocol"
	"github.com/steer-rc/controller/pkg/status"
	"github.com/steer-rc/controller/pkg/transport"
)

// Receiver is the command source. transport.Receiver implements it.
type Receiver interface {
	Receive(deadline time.Time) (protocol.Command, net.Addr, error)
	Malformed() uint64
}

// Status is the snapshot published after every loop iteration.
type Status struct {
	SessionID     string             `json:"session_id"`
	SteeringAngle float32            `json:"steering_angle"`
	Throttle      float32            `json:"throttle"`
	Direction     protocol.Direction `json:"direction"`
	State         State              `json:"state"`
	ReverseReady  bool               `json:"reverse_ready"`
	Connected     bool               `json:"connected"`
	Failsafe      bool               `json:"failsafe"`
	Duty          float64            `json:"duty"`
	Remote        string             `json:"remote,omitempty"`
	LastPacket    time.Time          `json:"last_packet"`
	Packets       uint64             `json:"packets"`
	Malformed     uint64             `json:"malformed"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Options carries the optional collaborators of a Controller. Zero values
// fall back to wall clock, real sleep and a discarding feed.
type Options struct {
	Now     func() time.Time
	Sleep   actuator.Sleeper
	Feed    *status.Feed
	Metrics *metrics.Vehicle
}

// Controller owns the receiver, the driver and the reverse state machine
// for the lifetime of Run.
type Controller struct {
	cfg      config.VehicleConfig
	rx       Receiver
	driver   actuator.Driver
	machine  *ReverseStateMachine
	watchdog *Watchdog
	logger   customlog.Logger
	feed     *status.Feed
	metrics  *metrics.Vehicle
	now      func() time.Time

	board     *status.Board[Status]
	snap      Status
	malformed uint64
}

// NewController builds a controller. cfg must already be validated.
func NewController(cfg config.VehicleConfig, rx Receiver, driver actuator.Driver, logger customlog.Logger, opts Options) (*Controller, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Feed == nil {
		opts.Feed = status.NewFeed(logger, 0)
	}
	if opts.Metrics == nil {
		m, err := metrics.NewVehicle(nil)
		if err != nil {
			return nil, err
		}
		opts.Metrics = m
	}

	c := &Controller{
		cfg:      cfg,
		rx:       rx,
		driver:   driver,
		machine:  NewReverseStateMachine(driver, cfg.ESC, opts.Sleep),
		watchdog: NewWatchdog(cfg.ReceiveTimeout, opts.Now()),
		logger:   logger,
		feed:     opts.Feed,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	c.snap = Status{
		SessionID: uuid.NewString(),
		Direction: protocol.Forward,
		State:     StateForward,
		Failsafe:  true,
		Duty:      cfg.ESC.NeutralDuty,
		UpdatedAt: c.now(),
	}
	c.board = status.NewBoard(c.snap)
	c.machine.OnTransition = c.onTransition
	return c, nil
}

// Status returns the latest published snapshot. Safe from any goroutine.
func (c *Controller) Status() Status {
	return c.board.Load()
}

// Board exposes the snapshot board to observers such as the telemetry publisher.
func (c *Controller) Board() *status.Board[Status] {
	return c.board
}

// Run receives and applies commands until ctx is done or the receiver is
// closed. The stop condition is checked once per iteration, so shutdown
// latency is bounded by the receive timeout. Run always leaves the drive
// in a safe stop.
func (c *Controller) Run(ctx context.Context) error {
	c.feed.Infof("vehicle loop started, session %s, timeout %v", c.snap.SessionID, c.cfg.ReceiveTimeout)
	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		cmd, addr, err := c.rx.Receive(c.watchdog.Deadline())
		c.countMalformed(ctx)

		switch {
		case err == nil:
			c.apply(ctx, cmd, addr)
		case errors.Is(err, transport.ErrTimeout):
			c.failsafe(ctx)
		case errors.Is(err, transport.ErrClosed):
			c.logger.Infof("receiver closed, leaving vehicle loop")
			return nil
		default:
			c.logger.Warnf("receive error: %v", err)
			if !c.now().Before(c.watchdog.Deadline()) {
				c.failsafe(ctx)
			}
		}

		c.publish()
	}
}

func (c *Controller) apply(ctx context.Context, cmd protocol.Command, addr net.Addr) {
	now := c.now()
	c.metrics.PacketReceived(ctx)
	c.snap.Packets++

	remote := ""
	if addr != nil {
		remote = addr.String()
	}
	if c.watchdog.Feed(now) {
		c.feed.Infof("operator connected from %s", remote)
	}

	if err := c.driver.SetSteeringAngle(float64(cmd.SteeringAngle)); err != nil {
		c.metrics.ActuatorFailure(ctx, "steering")
		c.logger.Errorf("failed to set steering %.1f: %v", cmd.SteeringAngle, err)
	}
	if err := c.machine.Handle(cmd); err != nil {
		c.metrics.ActuatorFailure(ctx, "drive")
		c.feed.Errorf("failed to apply drive command: %v", err)
	}
	// A reverse pulse can outlast the receive timeout.
	c.watchdog.Extend(c.now())

	c.snap.SteeringAngle = cmd.SteeringAngle
	c.snap.Throttle = cmd.Throttle
	c.snap.Direction = cmd.Direction
	c.snap.Remote = remote
	c.snap.LastPacket = now
	c.snap.Failsafe = false
}

func (c *Controller) failsafe(ctx context.Context) {
	if c.watchdog.Expire(c.now()) {
		c.feed.Warnf("connection lost: no command for %v, stopping", c.cfg.ReceiveTimeout)
	}
	c.metrics.Failsafe(ctx)
	if err := c.machine.SafeStop(); err != nil {
		c.metrics.ActuatorFailure(ctx, "drive")
		c.logger.Errorf("failed to apply safe stop: %v", err)
	}

	c.snap.Throttle = 0
	c.snap.Direction = protocol.Forward
	c.snap.Failsafe = true
}

func (c *Controller) shutdown() {
	if err := c.machine.SafeStop(); err != nil {
		c.logger.Errorf("failed to apply final safe stop: %v", err)
	}
	c.snap.Throttle = 0
	c.snap.Direction = protocol.Forward
	c.snap.Failsafe = true
	c.watchdog.Expire(c.now())
	c.publish()
	c.feed.Infof("vehicle loop stopped, drive at neutral")
}

func (c *Controller) countMalformed(ctx context.Context) {
	total := c.rx.Malformed()
	if total > c.malformed {
		c.metrics.Malformed(ctx, int64(total-c.malformed))
		c.logger.Debugf("discarded %d malformed datagrams", total-c.malformed)
	}
	c.malformed = total
	c.snap.Malformed = total
}

func (c *Controller) onTransition(from, to State) {
	switch to {
	case StateReverseArming:
		c.feed.Infof("engaging reverse")
	case StateReverseReady:
		c.metrics.ReverseEngaged(context.Background())
		c.feed.Infof("reverse ready")
	case StateForward:
		if from == StateReverseReady {
			c.feed.Infof("direction forward")
		}
	}
}

func (c *Controller) publish() {
	c.snap.State = c.machine.State()
	c.snap.ReverseReady = c.machine.ReverseReady()
	c.snap.Connected = c.watchdog.Connected()
	c.snap.Duty = c.machine.Duty()
	c.snap.UpdatedAt = c.now()
	c.board.Publish(c.snap)
}
