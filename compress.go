package gelf

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// CompressType selects the algorithm used when a record is compressed before
// it goes out on the wire. Graylog sniffs the algorithm from the first bytes
// of the datagram, so no further negotiation is needed.
type CompressType int

const (
	// CompressZlib compresses records with DEFLATE in a zlib envelope. This
	// is the conventional GELF default.
	CompressZlib CompressType = iota

	// CompressGzip compresses records with DEFLATE in a gzip envelope.
	CompressGzip

	// CompressNone sends records uncompressed.
	CompressNone
)

func (t CompressType) String() string {
	switch t {
	case CompressZlib:
		return "zlib"
	case CompressGzip:
		return "gzip"
	case CompressNone:
		return "none"
	default:
		return fmt.Sprintf("compresstype(%d)", int(t))
	}
}

func (t CompressType) valid() bool {
	return t >= CompressZlib && t <= CompressNone
}

// ParseCompressType maps an algorithm name to its CompressType.
func ParseCompressType(s string) (CompressType, error) {
	switch s {
	case "zlib":
		return CompressZlib, nil
	case "gzip":
		return CompressGzip, nil
	case "none", "":
		return CompressNone, nil
	}
	return 0, fmt.Errorf("unknown compression type: %q", s)
}

// CompressionMode controls when the Client compresses a record.
type CompressionMode int

const (
	// CompressOptimal compresses only records whose serialized size exceeds
	// the configured buffer size, so small records skip the compressor and
	// large records get a chance to fit into a single datagram.
	CompressOptimal CompressionMode = iota

	// CompressAlways compresses every record.
	CompressAlways

	// CompressNever sends every record uncompressed, chunking the plain
	// bytes when they do not fit into one datagram.
	CompressNever
)

func (m CompressionMode) String() string {
	switch m {
	case CompressOptimal:
		return "optimal"
	case CompressAlways:
		return "always"
	case CompressNever:
		return "never"
	default:
		return fmt.Sprintf("compressionmode(%d)", int(m))
	}
}

func (m CompressionMode) valid() bool {
	return m >= CompressOptimal && m <= CompressNever
}

// ParseCompressionMode maps a mode name to its CompressionMode.
func ParseCompressionMode(s string) (CompressionMode, error) {
	switch s {
	case "optimal", "":
		return CompressOptimal, nil
	case "always":
		return CompressAlways, nil
	case "never", "none":
		return CompressNever, nil
	}
	return 0, fmt.Errorf("unknown compression mode: %q", s)
}

// compressor deflates one serialized record into a caller-owned buffer. The
// writers are pooled because one is needed per in-flight compression and they
// carry large internal state.
type compressor interface {
	compressTo(dst *bytes.Buffer, src []byte) error
	typ() CompressType
}

// newCompressor returns the compressor for the given algorithm, or nil for
// CompressNone. The level must be a valid flate level; ClientOptions.resolve
// guarantees that.
func newCompressor(t CompressType, level int) compressor {
	switch t {
	case CompressZlib:
		return &zlibCompressor{level: level}
	case CompressGzip:
		return &gzipCompressor{level: level}
	default:
		return nil
	}
}

type zlibCompressor struct {
	level int
	pool  sync.Pool
}

func (z *zlibCompressor) typ() CompressType { return CompressZlib }

func (z *zlibCompressor) compressTo(dst *bytes.Buffer, src []byte) error {
	w, _ := z.pool.Get().(*zlib.Writer)
	if w == nil {
		var err error
		w, err = zlib.NewWriterLevel(dst, z.level)
		if err != nil {
			return fmt.Errorf("failed to create zlib writer: %w", err)
		}
	} else {
		w.Reset(dst)
	}
	defer z.pool.Put(w)

	if _, err := w.Write(src); err != nil {
		return fmt.Errorf("failed to zlib-compress record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to flush zlib writer: %w", err)
	}
	return nil
}

type gzipCompressor struct {
	level int
	pool  sync.Pool
}

func (g *gzipCompressor) typ() CompressType { return CompressGzip }

func (g *gzipCompressor) compressTo(dst *bytes.Buffer, src []byte) error {
	w, _ := g.pool.Get().(*gzip.Writer)
	if w == nil {
		var err error
		w, err = gzip.NewWriterLevel(dst, g.level)
		if err != nil {
			return fmt.Errorf("failed to create gzip writer: %w", err)
		}
	} else {
		w.Reset(dst)
	}
	defer g.pool.Put(w)

	if _, err := w.Write(src); err != nil {
		return fmt.Errorf("failed to gzip-compress record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to flush gzip writer: %w", err)
	}
	return nil
}
