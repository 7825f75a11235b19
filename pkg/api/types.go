package api

import (
	"github.com/steer-rc/controller/pkg/control"
	"github.com/steer-rc/controller/pkg/input"
)

// --- Data Structures for WebSocket Messages ---

// ControlMessage is one gamepad/wheel sample sent by a remote client on
// /ws/control. Axes are in [-1, 1]; pedals rest at -1.
type ControlMessage struct {
	Steer    float64 `json:"steer"`
	Throttle float64 `json:"throttle"`
	Brake    float64 `json:"brake"`
	Buttons  []int   `json:"buttons,omitempty"`
}

// Sample converts the message into an input sample.
func (m ControlMessage) Sample() input.Sample {
	return input.Sample{
		Axes: control.Axes{
			Steer:    m.Steer,
			Throttle: m.Throttle,
			Brake:    m.Brake,
		},
		Buttons: m.Buttons,
	}
}

// Status stream message types.
const (
	MessageTypeStatus = "status"
	MessageTypeEvent  = "event"
)

// StatusMessage is the envelope written on /ws/status.
type StatusMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
