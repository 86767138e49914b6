package gelf

import (
	"fmt"
	"net"
	"sync"
)

// transport owns the one UDP socket every message and chunk multiplexes onto.
// The socket is acquired lazily on the first send and reused until close
// releases it; endpoint addresses are resolved on first use and cached.
type transport struct {
	mu     sync.Mutex
	conn   net.PacketConn
	addrs  map[Endpoint]*net.UDPAddr
	closed bool
}

func newTransport() *transport {
	return &transport{addrs: make(map[Endpoint]*net.UDPAddr)}
}

// send writes one datagram to the endpoint and returns the bytes written.
// UDP is fire-and-forget: there is no retry and no delivery confirmation
// beyond the OS accepting the write.
func (t *transport) send(b []byte, ep Endpoint) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	if err := t.dialLocked(); err != nil {
		return 0, err
	}

	addr, err := t.resolveLocked(ep)
	if err != nil {
		return 0, err
	}

	n, err := t.conn.WriteTo(b, addr)
	if err != nil {
		return n, fmt.Errorf("failed to send datagram to %s: %w", ep, err)
	}
	return n, nil
}

// dial opens the shared socket eagerly, for constructors that want dial
// errors surfaced before the first send.
func (t *transport) dial() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return t.dialLocked()
}

func (t *transport) dialLocked() error {
	if t.conn != nil {
		return nil
	}
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return fmt.Errorf("failed to open UDP socket: %w", err)
	}
	t.conn = conn
	return nil
}

// resolve resolves and caches the endpoint address.
func (t *transport) resolve(ep Endpoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	_, err := t.resolveLocked(ep)
	return err
}

func (t *transport) resolveLocked(ep Endpoint) (*net.UDPAddr, error) {
	if addr, ok := t.addrs[ep]; ok {
		return addr, nil
	}
	addr, err := net.ResolveUDPAddr("udp", ep.addr())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve server %s: %w", ep, err)
	}
	t.addrs[ep] = addr
	return addr, nil
}

// close releases the socket. Further sends fail with ErrClosed.
func (t *transport) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	t.closed = true

	// nil when using lazy dialing and nothing was ever sent
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP socket: %w", err)
	}
	return nil
}
