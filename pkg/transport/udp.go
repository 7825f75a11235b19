// Package transport moves command datagrams from operator to vehicle.
//
// Delivery is best effort: no acknowledgements, no retries, no ordering.
// The receiver only ever acts on the datagram it has just read.
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/steer-rc/controller/pkg/protocol"
)

var (
	ErrTimeout = errors.New("no command received before deadline")
	ErrClosed  = errors.New("transport closed")
)

// readBufferSize is larger than a packet so oversized datagrams are seen
// whole and rejected instead of silently truncated to 12 bytes.
const readBufferSize = 2048

// Sender writes commands to a single vehicle address.
type Sender struct {
	conn *net.UDPConn
	sent atomic.Uint64
}

// NewSender resolves host:port and opens a connected UDP socket. A non-zero
// dscp marks every datagram with that DiffServ code point.
func NewSender(host string, port int, dscp int) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s:%d: %w", host, port, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket to %s: %w", addr, err)
	}

	if dscp != 0 && addr.IP.To4() != nil {
		if err := ipv4.NewConn(conn).SetTOS(dscp << 2); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set DSCP %d: %w", dscp, err)
		}
	}

	return &Sender{conn: conn}, nil
}

// Send writes one datagram. A lost datagram is not an error. Safe for
// concurrent use.
func (s *Sender) Send(cmd protocol.Command) error {
	var buf [protocol.PacketSize]byte
	protocol.EncodeInto(buf[:], cmd)
	if _, err := s.conn.Write(buf[:]); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	s.sent.Add(1)
	return nil
}

// Sent returns the number of datagrams written.
func (s *Sender) Sent() uint64 {
	return s.sent.Load()
}

// RemoteAddr is the vehicle address.
func (s *Sender) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *Sender) Close() error {
	return s.conn.Close()
}

// Receiver reads commands on the vehicle.
type Receiver struct {
	conn      *net.UDPConn
	buf       []byte
	malformed atomic.Uint64
	lastErr   atomic.Value
}

// Listen binds a UDP socket on address, e.g. "0.0.0.0:5005".
func Listen(address string) (*Receiver, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", address, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	return &Receiver{conn: conn, buf: make([]byte, readBufferSize)}, nil
}

// Receive blocks until a valid command arrives or deadline passes.
// Malformed datagrams are discarded and do not move the deadline.
func (r *Receiver) Receive(deadline time.Time) (protocol.Command, net.Addr, error) {
	if err := r.conn.SetReadDeadline(deadline); err != nil {
		return protocol.Command{}, nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	for {
		n, addr, err := r.conn.ReadFromUDP(r.buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return protocol.Command{}, nil, ErrTimeout
			}
			if errors.Is(err, net.ErrClosed) {
				return protocol.Command{}, nil, ErrClosed
			}
			return protocol.Command{}, nil, err
		}

		cmd, err := protocol.Decode(r.buf[:n])
		if err != nil {
			r.malformed.Add(1)
			r.lastErr.Store(fmt.Sprintf("%s from %s", err, addr))
			continue
		}
		return cmd, addr, nil
	}
}

// Malformed returns how many datagrams failed to decode.
func (r *Receiver) Malformed() uint64 {
	return r.malformed.Load()
}

// LastDecodeError describes the most recent rejected datagram.
func (r *Receiver) LastDecodeError() string {
	if v, ok := r.lastErr.Load().(string); ok {
		return v
	}
	return ""
}

// LocalAddr is the bound address.
func (r *Receiver) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// Close unblocks a pending Receive.
func (r *Receiver) Close() error {
	return r.conn.Close()
}
