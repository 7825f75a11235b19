// Package telemetry encodes vehicle status snapshots for the telemetry bus.
package telemetry

import (
	"errors"
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	fb "github.com/steer-rc/controller/pkg/flatbuffers/steer_rc/telemetry"
	"github.com/steer-rc/controller/pkg/protocol"
	"github.com/steer-rc/controller/pkg/vehicle"
)

// TopicVehicleStatus is the bus topic vehicle snapshots are published on.
const TopicVehicleStatus = "vehicle.status"

var ErrMalformedSnapshot = errors.New("malformed telemetry snapshot")

// Snapshot is the vehicle state carried on the bus.
type Snapshot struct {
	SessionID     string             `json:"session_id"`
	Timestamp     time.Time          `json:"timestamp"`
	SteeringAngle float32            `json:"steering_angle"`
	Throttle      float32            `json:"throttle"`
	Direction     protocol.Direction `json:"direction"`
	State         vehicle.State      `json:"state"`
	ReverseReady  bool               `json:"reverse_ready"`
	Connected     bool               `json:"connected"`
	Failsafe      bool               `json:"failsafe"`
	Packets       uint64             `json:"packets"`
	Malformed     uint64             `json:"malformed"`
}

// FromStatus converts a vehicle status into a snapshot stamped at ts.
func FromStatus(st vehicle.Status, ts time.Time) Snapshot {
	return Snapshot{
		SessionID:     st.SessionID,
		Timestamp:     ts,
		SteeringAngle: st.SteeringAngle,
		Throttle:      st.Throttle,
		Direction:     st.Direction,
		State:         st.State,
		ReverseReady:  st.ReverseReady,
		Connected:     st.Connected,
		Failsafe:      st.Failsafe,
		Packets:       st.Packets,
		Malformed:     st.Malformed,
	}
}

// EncodeSnapshot serializes s as a VehicleStatus flatbuffer.
func EncodeSnapshot(s Snapshot) []byte {
	builder := flatbuffers.NewBuilder(128)

	sessionID := builder.CreateString(s.SessionID)

	fb.VehicleStatusStart(builder)
	fb.VehicleStatusAddSessionId(builder, sessionID)
	fb.VehicleStatusAddTimestampNs(builder, s.Timestamp.UnixNano())
	fb.VehicleStatusAddSteeringAngle(builder, s.SteeringAngle)
	fb.VehicleStatusAddThrottle(builder, s.Throttle)
	fb.VehicleStatusAddDirection(builder, int8(s.Direction))
	fb.VehicleStatusAddState(builder, toDriveState(s.State))
	fb.VehicleStatusAddReverseReady(builder, s.ReverseReady)
	fb.VehicleStatusAddConnected(builder, s.Connected)
	fb.VehicleStatusAddFailsafe(builder, s.Failsafe)
	fb.VehicleStatusAddPackets(builder, s.Packets)
	fb.VehicleStatusAddMalformed(builder, s.Malformed)
	fb.FinishVehicleStatusBuffer(builder, fb.VehicleStatusEnd(builder))

	return builder.FinishedBytes()
}

// DecodeSnapshot parses a VehicleStatus flatbuffer. Truncated or corrupt
// buffers return ErrMalformedSnapshot instead of panicking.
func DecodeSnapshot(buf []byte) (snap Snapshot, err error) {
	if len(buf) < flatbuffers.SizeUOffsetT+flatbuffers.SizeSOffsetT {
		return Snapshot{}, fmt.Errorf("%w: %d bytes", ErrMalformedSnapshot, len(buf))
	}

	defer func() {
		if r := recover(); r != nil {
			snap = Snapshot{}
			err = fmt.Errorf("%w: %v", ErrMalformedSnapshot, r)
		}
	}()

	msg := fb.GetRootAsVehicleStatus(buf, 0)

	dir := protocol.Direction(msg.Direction())
	if !dir.Valid() {
		return Snapshot{}, fmt.Errorf("%w: direction %d", ErrMalformedSnapshot, msg.Direction())
	}

	return Snapshot{
		SessionID:     string(msg.SessionId()),
		Timestamp:     time.Unix(0, msg.TimestampNs()),
		SteeringAngle: msg.SteeringAngle(),
		Throttle:      msg.Throttle(),
		Direction:     dir,
		State:         fromDriveState(msg.State()),
		ReverseReady:  msg.ReverseReady(),
		Connected:     msg.Connected(),
		Failsafe:      msg.Failsafe(),
		Packets:       msg.Packets(),
		Malformed:     msg.Malformed(),
	}, nil
}

func toDriveState(s vehicle.State) fb.DriveState {
	switch s {
	case vehicle.StateReverseArming:
		return fb.DriveStateReverseArming
	case vehicle.StateReverseReady:
		return fb.DriveStateReverseReady
	default:
		return fb.DriveStateForward
	}
}

func fromDriveState(s fb.DriveState) vehicle.State {
	switch s {
	case fb.DriveStateReverseArming:
		return vehicle.StateReverseArming
	case fb.DriveStateReverseReady:
		return vehicle.StateReverseReady
	default:
		return vehicle.StateForward
	}
}
