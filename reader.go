package gelf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Reader receives, reassembles, and decodes GELF UDP datagrams. It exists
// primarily so the package and its users can verify what a Client put on the
// wire in integration tests; it is not a server.
type Reader struct {
	mu   sync.Mutex
	conn net.PacketConn
}

// NewReader starts listening for GELF datagrams on the given UDP address.
// Use "127.0.0.1:0" to let the OS pick a free loopback port.
func NewReader(addr string) (*Reader, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %q: %w", addr, err)
	}
	return &Reader{conn: conn}, nil
}

// Addr returns the address the Reader is listening on, suitable for
// ParseEndpoint.
func (r *Reader) Addr() string {
	return r.conn.LocalAddr().String()
}

// Close releases the socket. Blocked reads fail.
func (r *Reader) Close() error {
	return r.conn.Close()
}

// ReadMessage blocks until one complete message has arrived, reassembling
// chunked GELF as needed, and returns the decoded record. Chunks may arrive
// in any order, but all datagrams received while a chunked message is pending
// must belong to that message.
func (r *Reader) ReadMessage() (*Message, error) {
	raw, err := r.readRaw()
	if err != nil {
		return nil, err
	}

	body, err := inflate(raw)
	if err != nil {
		return nil, err
	}

	m := new(Message)
	if err := json.Unmarshal(body, m); err != nil {
		return nil, fmt.Errorf("failed to decode GELF record: %w", err)
	}
	return m, nil
}

// Read implements io.Reader over the text of the next message: the full
// message when present, otherwise the short message.
func (r *Reader) Read(p []byte) (int, error) {
	m, err := r.ReadMessage()
	if err != nil {
		return 0, err
	}

	text := m.Short
	if m.Full != "" {
		text = m.Full
	}
	return strings.NewReader(text).Read(p)
}

// readRaw returns the payload of the next message, concatenating chunk
// payloads in sequence order when the message arrives chunked.
func (r *Reader) readRaw() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := make([]byte, 1<<16)

	var (
		id     []byte
		chunks [][]byte
		got    int
	)

	for {
		n, _, err := r.conn.ReadFrom(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to read datagram: %w", err)
		}
		datagram := buf[:n]

		if !bytes.HasPrefix(datagram, magicChunked) {
			if id != nil {
				return nil, fmt.Errorf("unchunked datagram interleaved with chunked message %x", id)
			}
			return append([]byte(nil), datagram...), nil
		}

		if n < chunkedHeaderLen {
			return nil, fmt.Errorf("short chunked datagram: %d bytes", n)
		}

		cid := datagram[2:10]
		seq := int(datagram[10])
		total := int(datagram[11])

		if total < 1 || total > maxChunkCount || seq >= total {
			return nil, fmt.Errorf("invalid chunk header: seq %d of %d", seq, total)
		}

		if id == nil {
			id = append([]byte(nil), cid...)
			chunks = make([][]byte, total)
		} else if !bytes.Equal(id, cid) {
			return nil, fmt.Errorf("chunk for message %x interleaved with message %x", cid, id)
		} else if total != len(chunks) {
			return nil, fmt.Errorf("chunk total changed from %d to %d mid-message", len(chunks), total)
		}

		if chunks[seq] != nil {
			return nil, fmt.Errorf("duplicate chunk %d of %d", seq, total)
		}
		chunks[seq] = append([]byte(nil), datagram[chunkedHeaderLen:]...)

		got++
		if got == len(chunks) {
			return bytes.Join(chunks, nil), nil
		}
	}
}

// inflate decompresses the message body, sniffing the algorithm from its
// magic bytes. Plain JSON passes through unchanged.
func inflate(raw []byte) ([]byte, error) {
	var (
		zr  io.ReadCloser
		err error
	)
	switch {
	case bytes.HasPrefix(raw, magicGzip):
		zr, err = gzip.NewReader(bytes.NewReader(raw))
	case bytes.HasPrefix(raw, magicZlib):
		zr, err = zlib.NewReader(bytes.NewReader(raw))
	default:
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open decompressor: %w", err)
	}
	defer zr.Close()

	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress message body: %w", err)
	}
	return body, nil
}
