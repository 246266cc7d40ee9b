// Package transport provides the "opaque bytes with a source address"
// datagram provider the engine depends on. The protocol itself treats
// transport only through the Socket interface; UDPSocket is the concrete
// default a running daemon needs, kept swappable per the spec's intent
// that raw datagram delivery is an external collaborator.
package transport

import (
	"context"
	"net"
	"time"

	"github.com/teranos/netsukuku/errors"
)

// DefaultPort is the default UDP port the engine listens and broadcasts on.
const DefaultPort = 269

// Socket is the minimal send/receive interface the radar, qspn and flood
// packages depend on. Simulation tests supply an in-memory fake; a running
// daemon supplies UDPSocket.
type Socket interface {
	Send(addr string, payload []byte) error
	Recv(ctx context.Context) (payload []byte, fromAddr string, err error)
	LocalAddr() string
	Close() error
}

// UDPSocket wraps a net.UDPConn as a Socket.
type UDPSocket struct {
	conn *net.UDPConn
}

// ListenUDP opens a UDP socket on the given device-local address and port.
func ListenUDP(addr string, port int) (*UDPSocket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addrWithPort(addr, port))
	if err != nil {
		return nil, errors.Wrap(err, "resolve udp listen address")
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, errors.Wrap(err, "bind control udp port")
	}
	return &UDPSocket{conn: conn}, nil
}

func addrWithPort(addr string, port int) string {
	return net.JoinHostPort(addr, portString(port))
}

func portString(port int) string {
	const digits = "0123456789"
	if port == 0 {
		return "0"
	}
	var buf [6]byte
	i := len(buf)
	for port > 0 {
		i--
		buf[i] = digits[port%10]
		port /= 10
	}
	return string(buf[i:])
}

func (s *UDPSocket) Send(addr string, payload []byte) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errors.Wrap(err, "resolve udp destination")
	}
	_, err = s.conn.WriteToUDP(payload, udpAddr)
	if err != nil {
		return errors.Wrap(err, "udp send")
	}
	return nil
}

// Recv blocks until a datagram arrives, ctx is cancelled, or the socket is
// closed. Cancellation is implemented by racing the read against ctx.Done
// on a background goroutine that closes the read deadline.
func (s *UDPSocket) Recv(ctx context.Context) ([]byte, string, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.SetReadDeadline(pastDeadline())
		case <-done:
		}
	}()

	buf := make([]byte, 64*1024)
	n, from, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", errors.Wrap(err, "udp recv")
	}
	return buf[:n], from.String(), nil
}

func (s *UDPSocket) LocalAddr() string { return s.conn.LocalAddr().String() }

func (s *UDPSocket) Close() error { return s.conn.Close() }

func pastDeadline() time.Time { return time.Now().Add(-time.Second) }
