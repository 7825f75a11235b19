package zeromq

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pebbe/zmq4"

	customlog "github.com/steer-rc/controller/pkg/log"
)

// Common errors
var (
	ErrServiceClosed = errors.New("zeromq service is closed")
	ErrInvalidFrame  = errors.New("invalid multipart frame")
)

// MessageSender handles sending messages to ZeroMQ sockets
type MessageSender struct {
	socket  *zmq4.Socket
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
}

// newMessageSender creates a PUB socket bound to address
func newMessageSender(ctx *zmq4.Context, address string, logger customlog.Logger) (*MessageSender, error) {
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	// Configure socket options
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	logger.Infof("MessageSender initialized on %s", address)

	return &MessageSender{
		socket:  socket,
		logger:  logger,
		running: true,
	}, nil
}

// PublishMessage sends a message with the given topic
func (s *MessageSender) PublishMessage(topic string, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServiceClosed
	}

	// Topic frame first, then the payload
	if _, err := s.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := s.socket.SendBytes(message, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// Close cleans up resources
func (s *MessageSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if s.socket != nil {
		s.socket.Close()
		s.socket = nil
	}
}

// ZeroMQService owns the context and publishing socket of the telemetry bus
type ZeroMQService struct {
	ctx     *zmq4.Context
	sender  *MessageSender
	logger  customlog.Logger
	mu      sync.Mutex
	running bool
}

// NewZeroMQService creates a service publishing on publishAddress
func NewZeroMQService(publishAddress string, logger customlog.Logger) (*ZeroMQService, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	sender, err := newMessageSender(ctx, publishAddress, logger)
	if err != nil {
		ctx.Term()
		return nil, err
	}

	return &ZeroMQService{
		ctx:    ctx,
		sender: sender,
		logger: logger,
	}, nil
}

// Start marks the service ready to publish
func (s *ZeroMQService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.sender == nil {
		return ErrServiceClosed
	}
	s.running = true
	s.logger.Infof("Starting ZeroMQ service")
	return nil
}

// Stop closes the sender and terminates the context
func (s *ZeroMQService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sender == nil {
		return
	}

	s.logger.Infof("Stopping ZeroMQ service")
	s.running = false
	s.sender.Close()
	s.sender = nil

	if s.ctx != nil {
		s.ctx.Term()
		s.ctx = nil
	}
	s.logger.Infof("ZeroMQ service stopped")
}

// PublishMessage sends a message with the given topic
func (s *ZeroMQService) PublishMessage(topic string, message []byte) error {
	s.mu.Lock()
	running, sender := s.running, s.sender
	s.mu.Unlock()

	if !running || sender == nil {
		return ErrServiceClosed
	}
	return sender.PublishMessage(topic, message)
}
