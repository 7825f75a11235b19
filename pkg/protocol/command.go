// Package protocol defines the operator-to-vehicle command datagram.
//
// A command is a fixed 12-byte record, little-endian:
//
//	offset 0  float32  steering angle in degrees
//	offset 4  float32  throttle magnitude, 0..100
//	offset 8  int32    direction, +1 forward / -1 reverse
//
// There is no header or version field. Changing the layout requires
// redeploying both ends.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// PacketSize is the exact length of an encoded Command.
const PacketSize = 12

var (
	ErrPacketSize       = errors.New("command packet has wrong size")
	ErrInvalidDirection = errors.New("command direction must be +1 or -1")
	ErrInvalidValue     = errors.New("command value out of range")
)

// Direction is the sign of travel. Throttle is always a magnitude.
type Direction int32

const (
	Forward Direction = 1
	Reverse Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "Forward"
	case Reverse:
		return "Reverse"
	default:
		return fmt.Sprintf("Direction(%d)", int32(d))
	}
}

// Toggle returns the opposite direction.
func (d Direction) Toggle() Direction {
	if d == Reverse {
		return Forward
	}
	return Reverse
}

// Valid reports whether d is one of the two wire values.
func (d Direction) Valid() bool {
	return d == Forward || d == Reverse
}

// Command is one sample of operator intent.
type Command struct {
	SteeringAngle float32   `json:"steering_angle"`
	Throttle      float32   `json:"throttle"`
	Direction     Direction `json:"direction"`
}

// NeutralCommand is a centred, zero-throttle forward command.
func NeutralCommand() Command {
	return Command{Direction: Forward}
}

// Encode serializes cmd into a new 12-byte slice.
func Encode(cmd Command) []byte {
	buf := make([]byte, PacketSize)
	EncodeInto(buf, cmd)
	return buf
}

// EncodeInto writes cmd into buf, which must be at least PacketSize long.
func EncodeInto(buf []byte, cmd Command) {
	_ = buf[PacketSize-1]
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(cmd.SteeringAngle))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(cmd.Throttle))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(int32(cmd.Direction)))
}

// Decode parses a datagram. Anything that is not exactly a well-formed
// 12-byte record is rejected.
func Decode(data []byte) (Command, error) {
	if len(data) != PacketSize {
		return Command{}, fmt.Errorf("%w: got %d bytes, want %d", ErrPacketSize, len(data), PacketSize)
	}

	cmd := Command{
		SteeringAngle: math.Float32frombits(binary.LittleEndian.Uint32(data[0:4])),
		Throttle:      math.Float32frombits(binary.LittleEndian.Uint32(data[4:8])),
		Direction:     Direction(int32(binary.LittleEndian.Uint32(data[8:12]))),
	}

	if !cmd.Direction.Valid() {
		return Command{}, fmt.Errorf("%w: %d", ErrInvalidDirection, int32(cmd.Direction))
	}
	if !finite(cmd.SteeringAngle) {
		return Command{}, fmt.Errorf("%w: steering %v", ErrInvalidValue, cmd.SteeringAngle)
	}
	if !finite(cmd.Throttle) || cmd.Throttle < 0 || cmd.Throttle > 100 {
		return Command{}, fmt.Errorf("%w: throttle %v", ErrInvalidValue, cmd.Throttle)
	}

	return cmd, nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
