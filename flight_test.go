package gelf

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlight_CloseIdle(t *testing.T) {
	f := newFlight()

	var released atomic.Int32
	err := f.close(func() error {
		released.Add(1)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(1), released.Load())
}

func TestFlight_CloseReturnsReleaseError(t *testing.T) {
	f := newFlight()

	boom := errors.New("socket teardown failed")
	require.ErrorIs(t, f.close(func() error { return boom }), boom)
}

func TestFlight_SecondCloseRejected(t *testing.T) {
	f := newFlight()

	require.NoError(t, f.close(func() error { return nil }))
	require.ErrorIs(t, f.close(func() error { return nil }), ErrAlreadyClosing)
}

func TestFlight_SecondCloseRejectedWhileDraining(t *testing.T) {
	f := newFlight()
	require.NoError(t, f.beginMessage())

	closed := make(chan error, 1)
	go func() { closed <- f.close(func() error { return nil }) }()

	// wait for the first close to install the drain request
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.state == flightDraining
	}, time.Second, time.Millisecond)

	require.ErrorIs(t, f.close(func() error { return nil }), ErrAlreadyClosing)

	f.endMessage()
	require.NoError(t, <-closed)
}

func TestFlight_BeginMessageAfterClose(t *testing.T) {
	f := newFlight()
	require.NoError(t, f.close(func() error { return nil }))
	require.ErrorIs(t, f.beginMessage(), ErrClosed)
}

// close must block until both counters drain, releasing exactly once
func TestFlight_CloseWaitsForInFlight(t *testing.T) {
	f := newFlight()

	require.NoError(t, f.beginMessage())
	f.beginChunk()

	var released atomic.Int32
	closed := make(chan error, 1)
	go func() {
		closed <- f.close(func() error {
			released.Add(1)
			return nil
		})
	}()

	select {
	case <-closed:
		t.Fatal("close returned with work still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	f.endChunk()

	// the message counter is still held
	select {
	case <-closed:
		t.Fatal("close returned before the message counter drained")
	case <-time.After(50 * time.Millisecond):
	}

	f.endMessage()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("close did not return after the counters drained")
	}
	require.Equal(t, int32(1), released.Load())
}
