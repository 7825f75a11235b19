package teleop

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/steer-rc/controller/pkg/config"
	"github.com/steer-rc/controller/pkg/input"
	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/metrics"
	"github.com/steer-rc/controller/pkg/operator"
	"github.com/steer-rc/controller/pkg/protocol"
	"github.com/steer-rc/controller/pkg/status"
	"github.com/steer-rc/controller/pkg/transport"
)

var (
	ErrAlreadyRunning = errors.New("teleop already running")
	ErrNotRunning     = errors.New("teleop not running")
)

// CommandSender is an operator.Sender that owns a socket.
type CommandSender interface {
	operator.Sender
	Close() error
}

// SenderFactory opens a sender for the target in cfg.
type SenderFactory func(cfg config.ControlConfig) (CommandSender, error)

// UDPSenderFactory opens a transport.Sender to the configured vehicle.
func UDPSenderFactory(cfg config.ControlConfig) (CommandSender, error) {
	sender, err := transport.NewSender(cfg.UDPHost, cfg.UDPPort, cfg.DSCP)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

// Status is what the operator UI shows. While running, Target is the
// socket in use; PendingTarget is set when the configuration now names a
// different one, which takes effect on the next start.
type Status struct {
	Running       bool            `json:"running"`
	Target        string          `json:"target"`
	PendingTarget string          `json:"pending_target,omitempty"`
	Operator      operator.Status `json:"operator"`
}

// endpoint is the part of the control config the command socket is opened with.
type endpoint struct {
	host string
	port int
	dscp int
}

func endpointOf(cfg config.ControlConfig) endpoint {
	return endpoint{host: cfg.UDPHost, port: cfg.UDPPort, dscp: cfg.DSCP}
}

func (e endpoint) String() string {
	return net.JoinHostPort(e.host, strconv.Itoa(e.port))
}

// TeleopService starts and stops the operator control loop
type TeleopService struct {
	configs   operator.ConfigSource
	device    input.Device
	newSender SenderFactory
	feed      *status.Feed
	metrics   *metrics.Operator
	logger    customlog.Logger

	mu     sync.Mutex
	loop   *operator.Loop
	sender CommandSender
	active endpoint
	cancel context.CancelFunc
	done   chan struct{}
	last   operator.Status
}

// NewTeleopService creates a new teleop service instance
func NewTeleopService(configs operator.ConfigSource, device input.Device, newSender SenderFactory, feed *status.Feed, m *metrics.Operator, logger customlog.Logger) *TeleopService {
	if newSender == nil {
		newSender = UDPSenderFactory
	}
	return &TeleopService{
		configs:   configs,
		device:    device,
		newSender: newSender,
		feed:      feed,
		metrics:   m,
		logger:    logger,
	}
}

// Start opens the command socket and runs the control loop in the background.
// It refuses to start without an input device.
func (s *TeleopService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop != nil {
		return ErrAlreadyRunning
	}

	if _, err := s.device.Read(); errors.Is(err, input.ErrNoDevice) || errors.Is(err, input.ErrDeviceClosed) {
		s.feed.Errorf("cannot start teleop: %v", err)
		return fmt.Errorf("cannot start teleop: %w", err)
	}

	cfg := *s.configs.Current()
	sender, err := s.newSender(cfg)
	if err != nil {
		s.feed.Errorf("cannot open command socket: %v", err)
		return err
	}

	loop, err := operator.NewLoop(s.configs, s.device, sender, s.logger, operator.Options{Feed: s.feed, Metrics: s.metrics})
	if err != nil {
		sender.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := loop.Run(ctx); err != nil {
			s.logger.Errorf("operator loop exited: %v", err)
		}
	}()

	s.loop, s.sender, s.cancel, s.done = loop, sender, cancel, done
	s.active = endpointOf(cfg)
	s.feed.Infof("teleop started, sending to %s", s.active)
	return nil
}

// Stop ends the control loop. The loop sends a final neutral command
// before the socket is closed.
func (s *TeleopService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop == nil {
		return ErrNotRunning
	}

	s.cancel()
	<-s.done
	s.last = s.loop.Status()
	if err := s.sender.Close(); err != nil {
		s.logger.Warnf("Error closing command socket: %v", err)
	}
	s.loop, s.sender, s.cancel, s.done = nil, nil, nil, nil
	s.feed.Infof("teleop stopped")
	return nil
}

func (s *TeleopService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop != nil
}

// Status returns the live loop snapshot, or the last one after a stop.
func (s *TeleopService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	configured := endpointOf(*s.configs.Current())
	st := Status{
		Running:  s.loop != nil,
		Target:   configured.String(),
		Operator: s.last,
	}
	if s.loop != nil {
		st.Target = s.active.String()
		if configured != s.active {
			st.PendingTarget = configured.String()
		}
		st.Operator = s.loop.Status()
	}
	return st
}

// ConfigChanged is called after a control config publish. The loop picks up
// gains and limits on its own, but the socket stays bound to the endpoint it
// was opened with, so a new host, port or DSCP needs a restart.
func (s *TeleopService) ConfigChanged(cfg *config.ControlConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop == nil {
		return
	}
	if next := endpointOf(*cfg); next != s.active {
		s.feed.Warnf("teleop still sending to %s (dscp %d); restart teleop to use %s (dscp %d)", s.active, s.active.dscp, next, next.dscp)
	}
}

// SendTestPacket sends one neutral forward command. While stopped it opens
// a throwaway socket to the configured target.
func (s *TeleopService) SendTestPacket() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop != nil {
		return s.loop.SendTest()
	}

	cfg := *s.configs.Current()
	sender, err := s.newSender(cfg)
	if err != nil {
		return err
	}
	defer sender.Close()

	if err := sender.Send(protocol.NeutralCommand()); err != nil {
		return fmt.Errorf("failed to send test packet: %w", err)
	}
	s.feed.Infof("test packet sent to %s", endpointOf(cfg))
	return nil
}

// StartHandler handles POST /api/v1/teleop/start
func (s *TeleopService) StartHandler(c *fiber.Ctx) error {
	if err := s.Start(); err != nil {
		return c.Status(startErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "started",
		"teleop": s.Status(),
	})
}

// StopHandler handles POST /api/v1/teleop/stop
func (s *TeleopService) StopHandler(c *fiber.Ctx) error {
	if err := s.Stop(); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "stopped",
		"teleop": s.Status(),
	})
}

// TestPacketHandler handles POST /api/v1/teleop/test-packet
func (s *TeleopService) TestPacketHandler(c *fiber.Ctx) error {
	if err := s.SendTestPacket(); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "test packet sent",
	})
}

// StatusHandler handles GET /api/v1/status
func (s *TeleopService) StatusHandler(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

func startErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		return fiber.StatusConflict
	case errors.Is(err, input.ErrNoDevice), errors.Is(err, input.ErrDeviceClosed):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
