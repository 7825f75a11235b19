package zeromq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/protocol"
	"github.com/steer-rc/controller/pkg/telemetry"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	frames [][]byte
	err    error
}

func (c *capturePublisher) PublishMessage(topic string, message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.topics = append(c.topics, topic)
	c.frames = append(c.frames, message)
	return nil
}

func (c *capturePublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestStatusPublisher_PublishStatus(t *testing.T) {
	pub := &capturePublisher{}
	snap := telemetry.Snapshot{SessionID: "s1", Direction: protocol.Reverse, Packets: 9, Timestamp: time.Unix(5, 0)}
	p := NewStatusPublisher(pub, func() telemetry.Snapshot { return snap }, customlog.NewDiscardLogger())

	require.NoError(t, p.PublishStatus())

	require.Len(t, pub.frames, 1)
	assert.Equal(t, telemetry.TopicVehicleStatus, pub.topics[0])
	got, err := telemetry.DecodeSnapshot(pub.frames[0])
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestStatusPublisher_RunUntilCancelled(t *testing.T) {
	pub := &capturePublisher{}
	p := NewStatusPublisher(pub, func() telemetry.Snapshot {
		return telemetry.Snapshot{Direction: protocol.Forward}
	}, customlog.NewDiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, 100)
		close(done)
	}()

	assert.Eventually(t, func() bool { return pub.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestStatusPublisher_StopsWhenServiceClosed(t *testing.T) {
	pub := &capturePublisher{err: ErrServiceClosed}
	p := NewStatusPublisher(pub, func() telemetry.Snapshot { return telemetry.Snapshot{} }, customlog.NewDiscardLogger())

	done := make(chan struct{})
	go func() {
		p.Run(context.Background(), 100)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher kept running after service closed")
	}
	assert.True(t, errors.Is(p.PublishStatus(), ErrServiceClosed))
}
