package gelf

import (
	"errors"
	"sync"
)

// ErrClosed reports a send attempted after Close.
var ErrClosed = errors.New("client is closed")

// ErrAlreadyClosing reports a second Close call. The first close keeps
// draining; the second one fails immediately instead of queuing.
var ErrAlreadyClosing = errors.New("close already requested")

type flightState int

const (
	flightOpen flightState = iota
	flightDraining
	flightClosed
)

// flight tracks in-flight work for one Client and runs the drain/close
// protocol. Messages and chunks are counted independently: a message is in
// flight from the moment its send starts until its last chunk has been
// handed to the socket, and each datagram write is bracketed by its own
// chunk count. Every increment is paired with a deferred decrement at the
// call site, so counters are released on every exit path.
type flight struct {
	mu       sync.Mutex
	state    flightState
	messages int
	chunks   int

	// set once by close(); the goroutine whose decrement observes zero runs
	// release and signals done
	release    func() error
	releaseErr error
	done       chan struct{}
}

func newFlight() *flight {
	return &flight{done: make(chan struct{})}
}

// beginMessage registers one message send. It fails once a close has been
// requested, so a draining client stops accepting work immediately.
func (f *flight) beginMessage() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != flightOpen {
		return ErrClosed
	}
	f.messages++
	return nil
}

func (f *flight) endMessage() {
	f.mu.Lock()
	f.messages--
	idle := f.drainedLocked()
	f.mu.Unlock()
	if idle {
		f.runRelease()
	}
}

func (f *flight) beginChunk() {
	f.mu.Lock()
	f.chunks++
	f.mu.Unlock()
}

func (f *flight) endChunk() {
	f.mu.Lock()
	f.chunks--
	idle := f.drainedLocked()
	f.mu.Unlock()
	if idle {
		f.runRelease()
	}
}

// drainedLocked reports whether a pending close can complete now.
func (f *flight) drainedLocked() bool {
	return f.state == flightDraining && f.messages == 0 && f.chunks == 0
}

// close transitions to draining and blocks until every in-flight message and
// chunk has finished, then runs release exactly once and returns its error.
// The zero check runs immediately, covering an already-idle client, and again
// on every decrement that reaches zero. There is no timeout and a pending
// close cannot be cancelled. A second close fails with ErrAlreadyClosing.
func (f *flight) close(release func() error) error {
	f.mu.Lock()
	if f.state != flightOpen {
		f.mu.Unlock()
		return ErrAlreadyClosing
	}
	f.state = flightDraining
	f.release = release
	idle := f.drainedLocked()
	f.mu.Unlock()

	if idle {
		f.runRelease()
	}

	<-f.done
	return f.releaseErr
}

// runRelease performs the draining -> closed transition. Only one caller can
// win the transition, so release runs exactly once.
func (f *flight) runRelease() {
	f.mu.Lock()
	if !f.drainedLocked() {
		f.mu.Unlock()
		return
	}
	f.state = flightClosed
	release := f.release
	f.mu.Unlock()

	f.releaseErr = release()
	close(f.done)
}
