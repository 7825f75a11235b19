package zeromq

import (
	"context"
	"errors"
	"time"

	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/telemetry"
)

// Publisher is the part of ZeroMQService the status publisher needs
type Publisher interface {
	PublishMessage(topic string, message []byte) error
}

// StatusPublisher periodically publishes vehicle snapshots on the bus
type StatusPublisher struct {
	publisher Publisher
	source    func() telemetry.Snapshot
	logger    customlog.Logger
}

// NewStatusPublisher creates a publisher that reads snapshots from source
func NewStatusPublisher(publisher Publisher, source func() telemetry.Snapshot, logger customlog.Logger) *StatusPublisher {
	return &StatusPublisher{
		publisher: publisher,
		source:    source,
		logger:    logger,
	}
}

// PublishStatus encodes and sends the current snapshot
func (p *StatusPublisher) PublishStatus() error {
	return p.publisher.PublishMessage(telemetry.TopicVehicleStatus, telemetry.EncodeSnapshot(p.source()))
}

// Run publishes at hz until ctx is done
func (p *StatusPublisher) Run(ctx context.Context, hz int) {
	if hz <= 0 {
		hz = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	p.logger.Infof("Publishing %s at %d Hz", telemetry.TopicVehicleStatus, hz)
	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := p.PublishStatus()
		switch {
		case err == nil:
			if failing {
				p.logger.Infof("Status publishing recovered")
			}
			failing = false
		case errors.Is(err, ErrServiceClosed):
			return
		case !failing:
			p.logger.Warnf("Error publishing status: %v", err)
			failing = true
		}
	}
}
