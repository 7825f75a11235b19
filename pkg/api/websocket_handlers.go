package api

import (
	"encoding/json"
	"errors"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/steer-rc/controller/pkg/input"
	customlog "github.com/steer-rc/controller/pkg/log"
	"github.com/steer-rc/controller/pkg/status"
)

const statusWriteTimeout = time.Second

// ControlWebSocketHandler feeds samples from a remote client into device.
// The client counts as a connected input device for as long as the socket
// stays open.
func ControlWebSocketHandler(conn *websocket.Conn, logger customlog.Logger, device *input.RemoteDevice) {
	logger.Infof("Control WebSocket connected: %s", conn.RemoteAddr())
	device.Attach()
	defer device.Detach()

	var (
		mt  int
		msg []byte
		err error
	)
	for {
		if mt, msg, err = conn.ReadMessage(); err != nil {
			logClose(logger, "Control", err)
			break
		}

		if mt != websocket.TextMessage {
			logger.Infof("Ignoring non-text Control WS message type: %d", mt)
			continue
		}

		var cm ControlMessage
		if err := json.Unmarshal(msg, &cm); err != nil {
			logger.Warnf("Failed to unmarshal control message from WS: %v. Message: %s", err, string(msg))
			continue
		}
		device.Update(cm.Sample())
	}
	logger.Infof("Control WebSocket disconnected: %s", conn.RemoteAddr())
}

// StatusWebSocketHandler streams the snapshot returned by source every
// interval, plus every event emitted on feed as it happens.
func StatusWebSocketHandler(conn *websocket.Conn, logger customlog.Logger, source func() interface{}, feed *status.Feed, interval time.Duration) {
	logger.Infof("Status WebSocket connected: %s", conn.RemoteAddr())
	defer logger.Infof("Status WebSocket disconnected: %s", conn.RemoteAddr())

	var events <-chan status.Event
	if feed != nil {
		ch, unsubscribe := feed.Subscribe()
		defer unsubscribe()
		events = ch
	}

	// The client never sends anything we use; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logClose(logger, "Status", err)
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	write := func(m StatusMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(statusWriteTimeout))
		if err := conn.WriteJSON(m); err != nil {
			logger.Debugf("Status WS write failed: %v", err)
			return false
		}
		return true
	}

	if !write(StatusMessage{Type: MessageTypeStatus, Data: source()}) {
		return
	}
	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !write(StatusMessage{Type: MessageTypeEvent, Data: ev}) {
				return
			}
		case <-ticker.C:
			if !write(StatusMessage{Type: MessageTypeStatus, Data: source()}) {
				return
			}
		}
	}
}

func logClose(logger customlog.Logger, name string, err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
		logger.Errorf("%s WS read error: %v", name, err)
		return
	}
	// Don't log normal closures as errors
	if err != websocket.ErrCloseSent && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
		logger.Infof("%s WS connection closed: %v", name, err)
	} else {
		logger.Infof("%s WS connection closed normally.", name)
	}
}
