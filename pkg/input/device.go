// Package input defines the operator input device boundary.
//
// Enumerating joysticks and decoding raw axis events happens outside this
// module. Whatever does that hands samples to a Device implementation.
package input

import (
	"errors"
	"sync"
	"time"

	"github.com/steer-rc/controller/pkg/control"
)

var (
	ErrNoDevice     = errors.New("input device not connected")
	ErrDeviceClosed = errors.New("input device closed")
)

// Sample is the state of the device at one instant. Buttons lists the
// indices currently held down; edge detection happens in the control loop.
type Sample struct {
	Axes    control.Axes `json:"axes"`
	Buttons []int        `json:"buttons"`
}

// ReleasedSample is centred steering with both pedals released.
func ReleasedSample() Sample {
	return Sample{Axes: control.Axes{Steer: 0, Throttle: -1, Brake: -1}}
}

// Device is a polled input source.
type Device interface {
	Name() string
	Read() (Sample, error)
}

// RemoteDevice holds the latest sample pushed by a remote client, for
// example a browser page streaming gamepad state over a websocket.
type RemoteDevice struct {
	name    string
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	latest    Sample
	updatedAt time.Time
	clients   int
	closed    bool
}

// NewRemoteDevice returns a device that reports released pedals once no
// update has arrived for timeout.
func NewRemoteDevice(name string, timeout time.Duration) *RemoteDevice {
	return &RemoteDevice{
		name:    name,
		timeout: timeout,
		now:     time.Now,
		latest:  ReleasedSample(),
	}
}

func (d *RemoteDevice) Name() string {
	return d.name
}

// Attach registers a connected client.
func (d *RemoteDevice) Attach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients++
}

// Detach unregisters a client. The last one leaving resets the sample.
func (d *RemoteDevice) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.clients > 0 {
		d.clients--
	}
	if d.clients == 0 {
		d.latest = ReleasedSample()
	}
}

// Update stores a new sample. Axis values are clamped into [-1, 1].
func (d *RemoteDevice) Update(s Sample) {
	s.Axes.Steer = control.ClampAxis(s.Axes.Steer)
	s.Axes.Throttle = control.ClampAxis(s.Axes.Throttle)
	s.Axes.Brake = control.ClampAxis(s.Axes.Brake)
	s.Buttons = append([]int(nil), s.Buttons...)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest = s
	d.updatedAt = d.now()
}

// Read returns the latest sample, or ErrNoDevice while no client is attached.
func (d *RemoteDevice) Read() (Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Sample{}, ErrDeviceClosed
	}
	if d.clients == 0 {
		return ReleasedSample(), ErrNoDevice
	}
	if d.now().Sub(d.updatedAt) > d.timeout {
		return ReleasedSample(), nil
	}
	s := d.latest
	s.Buttons = append([]int(nil), d.latest.Buttons...)
	return s, nil
}

// Close makes further reads fail.
func (d *RemoteDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}
