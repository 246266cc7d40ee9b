package transport

import (
	"context"
	"sync"
)

// FakeNetwork is a shared in-memory medium connecting FakeSockets, used by
// qspn/radar/tracer simulation tests in place of real UDP. Grounded on the
// teacher's preference for dependency-injected fakes over mocks for
// protocol-level tests (sync.Conn test fakes).
type FakeNetwork struct {
	mu      sync.Mutex
	sockets map[string]*FakeSocket
}

// NewFakeNetwork returns an empty shared medium.
func NewFakeNetwork() *FakeNetwork {
	return &FakeNetwork{sockets: make(map[string]*FakeSocket)}
}

// NewSocket registers and returns a socket bound to addr on this network.
func (n *FakeNetwork) NewSocket(addr string) *FakeSocket {
	s := &FakeSocket{
		addr:    addr,
		network: n,
		inbox:   make(chan inboundDatagram, 256),
	}
	n.mu.Lock()
	n.sockets[addr] = s
	n.mu.Unlock()
	return s
}

type inboundDatagram struct {
	payload []byte
	from    string
}

// FakeSocket implements Socket over a FakeNetwork.
type FakeSocket struct {
	addr    string
	network *FakeNetwork
	inbox   chan inboundDatagram
	closed  bool
	mu      sync.Mutex
}

func (s *FakeSocket) Send(addr string, payload []byte) error {
	s.network.mu.Lock()
	dst, ok := s.network.sockets[addr]
	s.network.mu.Unlock()
	if !ok {
		return nil // unreachable peer; real UDP would silently drop too
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	select {
	case dst.inbox <- inboundDatagram{payload: cp, from: s.addr}:
	default:
		// inbox full: behaves like a lossy link, matching the spec's
		// "no delivery guarantee for any individual control packet".
	}
	return nil
}

func (s *FakeSocket) Recv(ctx context.Context) ([]byte, string, error) {
	select {
	case d := <-s.inbox:
		return d.payload, d.from, nil
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
}

func (s *FakeSocket) LocalAddr() string { return s.addr }

func (s *FakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.inbox)
	return nil
}

// Drop removes this socket from the network, so subsequent sends to it are
// silently lost — used to simulate link-down / dead-node scenarios.
func (s *FakeSocket) Drop() {
	s.network.mu.Lock()
	delete(s.network.sockets, s.addr)
	s.network.mu.Unlock()
}
