package zeromq

import (
	"fmt"
	"sync"
	"time"

	"github.com/pebbe/zmq4"

	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/telemetry"
)

// SnapshotHandler receives every decoded vehicle snapshot
type SnapshotHandler func(telemetry.Snapshot)

// StatusListener subscribes to vehicle snapshots published on the bus
type StatusListener struct {
	ctx     *zmq4.Context
	socket  *zmq4.Socket
	poller  *zmq4.Poller
	handler SnapshotHandler
	logger  customlog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewStatusListener creates a SUB socket connected to address
func NewStatusListener(address string, handler SnapshotHandler, logger customlog.Logger) (*StatusListener, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	socket, err := ctx.NewSocket(zmq4.SUB)
	if err != nil {
		ctx.Term()
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}

	cleanup := func() {
		socket.Close()
		ctx.Term()
	}
	if err := socket.SetLinger(0); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}
	if err := socket.SetSubscribe(telemetry.TopicVehicleStatus); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", telemetry.TopicVehicleStatus, err)
	}
	if err := socket.Connect(address); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	return &StatusListener{
		ctx:     ctx,
		socket:  socket,
		poller:  poller,
		handler: handler,
		logger:  logger,
	}, nil
}

// Start begins listening for snapshots
func (l *StatusListener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running || l.socket == nil {
		return
	}
	l.running = true
	l.done = make(chan struct{})
	go l.receiveLoop(l.done)

	l.logger.Infof("Status listener started")
}

// Stop halts the loop and releases the socket
func (l *StatusListener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	done := l.done
	l.mu.Unlock()

	// The socket belongs to the receive loop; it closes it on exit.
	<-done
	l.logger.Infof("Status listener stopped")
}

func (l *StatusListener) isRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// receiveLoop continuously receives and decodes snapshots
func (l *StatusListener) receiveLoop(done chan struct{}) {
	defer func() {
		l.socket.Close()
		l.ctx.Term()
		l.mu.Lock()
		l.socket = nil
		l.mu.Unlock()
		close(done)
	}()

	for l.isRunning() {
		// Poll with timeout to allow for clean shutdown
		sockets, err := l.poller.Poll(200 * time.Millisecond)
		if err != nil {
			l.logger.Warnf("Error polling status socket: %v", err)
			continue
		}
		if len(sockets) == 0 {
			continue
		}

		parts, err := l.socket.RecvMessageBytes(0)
		if err != nil {
			l.logger.Warnf("Error receiving status: %v", err)
			continue
		}
		if len(parts) != 2 {
			l.logger.Warnf("Dropping status message: %v (%d frames)", ErrInvalidFrame, len(parts))
			continue
		}

		snap, err := telemetry.DecodeSnapshot(parts[1])
		if err != nil {
			l.logger.Warnf("Dropping status message: %v", err)
			continue
		}

		l.handler(snap)
	}
}
