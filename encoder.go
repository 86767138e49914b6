package gelf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// encoderPool is a shared *encoder pool, used to minimize heap allocations
// on the send path. One pool serves both the JSON rendering of records and
// the compression output buffers.
type encoderPool struct {
	p            sync.Pool
	maxBufferCap int
}

func newEncoderPool(newBufferCap, maxBufferCap int) *encoderPool {
	ep := &encoderPool{maxBufferCap: maxBufferCap}

	ep.p = sync.Pool{
		New: func() any {
			enc := newEncoder(newBufferCap)
			enc.p = ep
			return enc
		},
	}

	return ep
}

// get returns an empty encoder from the shared pool.
func (p *encoderPool) get() *encoder {
	return p.p.Get().(*encoder)
}

// put resets an encoder and returns it to the shared pool.
func (p *encoderPool) put(e *encoder) {

	// drop if the buffer got too large
	if e.Buffer.Cap() > p.maxBufferCap {
		return
	}

	// reset for the next usage
	e.Buffer.Reset()

	// add back to the sync.Pool
	p.p.Put(e)
}

// encoder is a pooled bytes.Buffer that renders GELF records.
type encoder struct {
	*bytes.Buffer
	p *encoderPool
}

func newEncoder(bufferCap int) *encoder {
	return &encoder{Buffer: bytes.NewBuffer(make([]byte, 0, bufferCap))}
}

// free returns the encoder to the shared pool after eagerly resetting it.
func (e *encoder) free() {
	e.p.put(e)
}

// encodeMessage renders the record's GELF 1.1 JSON into the buffer.
func (e *encoder) encodeMessage(m *Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode GELF record: %w", err)
	}
	if _, err := e.Write(b); err != nil {
		return fmt.Errorf("failed to buffer GELF record: %w", err)
	}
	return nil
}
