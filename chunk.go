package gelf

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Chunked GELF wire constants.
//   ref: https://go2docs.graylog.org/current/getting_in_log_data/gelf.html
const (
	// chunkedHeaderLen is the fixed chunk header size: 2 magic bytes, an
	// 8-byte message ID, a sequence number, and the chunk total.
	chunkedHeaderLen = 12

	// maxChunkCount is the protocol ceiling on chunks per message.
	maxChunkCount = 128
)

var (
	magicChunked = []byte{0x1e, 0x0f}
	magicZlib    = []byte{0x78}
	magicGzip    = []byte{0x1f, 0x8b}
)

// ErrTooManyChunks reports a record that would need more than 128 chunks.
// The send fails before any datagram goes out.
var ErrTooManyChunks = errors.New("message exceeds the chunked GELF ceiling of 128 chunks")

// chunker splits one oversized record into chunked GELF datagrams, produced
// strictly in ascending sequence order. All chunks carry the same random
// 8-byte message ID and the same total count; concatenating the payload
// slices in sequence order reproduces the input exactly.
type chunker struct {
	raw     []byte
	dataLen int // payload bytes per chunk
	total   int
	seq     int
	buf     []byte // reused datagram buffer; next() overwrites it
}

// newChunker validates the chunk count against the protocol ceiling before it
// generates the message ID, so an oversized record has zero side effects.
func newChunker(raw []byte, bufferSize int) (*chunker, error) {
	dataLen := bufferSize - chunkedHeaderLen
	total := (len(raw) + dataLen - 1) / dataLen
	if total > maxChunkCount {
		return nil, fmt.Errorf("%d-byte message needs %d chunks of %d bytes: %w",
			len(raw), total, dataLen, ErrTooManyChunks)
	}

	c := &chunker{
		raw:     raw,
		dataLen: dataLen,
		total:   total,
		buf:     make([]byte, 0, bufferSize),
	}

	c.buf = append(c.buf, magicChunked...)
	id := c.buf[len(magicChunked) : len(magicChunked)+8]
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("failed to generate chunked message ID: %w", err)
	}
	c.buf = c.buf[:chunkedHeaderLen]
	c.buf[11] = byte(total)

	return c, nil
}

// next returns the datagram for the next sequence number, or false once every
// chunk has been produced. The returned slice is only valid until the next
// call.
func (c *chunker) next() ([]byte, bool) {
	if c.seq >= c.total {
		return nil, false
	}

	off := c.seq * c.dataLen
	end := min(off+c.dataLen, len(c.raw))

	c.buf = c.buf[:chunkedHeaderLen]
	c.buf[10] = byte(c.seq)
	c.buf = append(c.buf, c.raw[off:end]...)
	c.seq++

	return c.buf, true
}
