package status

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customlog "github.com/steer-rc/controller/pkg/log"
)

type snap struct {
	Throttle float64
	Count    int
}

func TestBoard_PublishLoad(t *testing.T) {
	b := NewBoard(snap{Throttle: 1})
	assert.Equal(t, snap{Throttle: 1}, b.Load())

	s := snap{Throttle: 2, Count: 3}
	b.Publish(s)
	s.Count = 99
	assert.Equal(t, snap{Throttle: 2, Count: 3}, b.Load(), "published value is a copy")

	var empty Board[snap]
	assert.Equal(t, snap{}, empty.Load())
}

func TestBoard_ConcurrentReaders(t *testing.T) {
	b := NewBoard(snap{})
	var wg sync.WaitGroup

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s := b.Load()
				// Writers keep both fields equal; a torn read would break that.
				if float64(s.Count) != s.Throttle {
					t.Errorf("torn snapshot %+v", s)
					return
				}
			}
		}()
	}
	for i := 0; i < 1000; i++ {
		b.Publish(snap{Throttle: float64(i), Count: i})
	}
	wg.Wait()
}

func TestFeed_FanOutAndDropOldest(t *testing.T) {
	f := NewFeed(customlog.NewDiscardLogger(), 2)

	a, cancelA := f.Subscribe()
	defer cancelA()
	b, cancelB := f.Subscribe()

	f.Infof("one")
	f.Warnf("two")
	f.Errorf("three %d", 3)

	ev := <-a
	assert.Equal(t, "two", ev.Message)
	ev = <-a
	assert.Equal(t, "three 3", ev.Message)
	assert.Equal(t, LevelError, ev.Level)

	cancelB()
	cancelB()
	_, ok := <-b
	// Two buffered events remain before the close is observed.
	require.True(t, ok)
	<-b
	_, ok = <-b
	assert.False(t, ok)

	f.Infof("after cancel") // must not panic on closed channel
}
