package gelf

import (
	"os"

	"github.com/klauspost/compress/flate"
)

// ClientOptions are used to customize the GELF Client.
//
// # Invalid options are coerced
//
// Out-of-range numeric values are coerced to their defaults, matching the
// behavior of slog's HandlerOptions-style configuration. The exceptions are
// CompressionMode and CompressionType: an invalid enum value there is a
// configuration error and NewClient fails synchronously.
//
// NB: The struct pointer options approach is used to be consistent with the
// options used for the Handler, which uses the struct pointer approach to be
// consistent with the `HandlerOptions` used by log/slog.
type ClientOptions struct {

	// Host is the originating host name stamped into every record. The
	// default is os.Hostname().
	Host string

	// Facility is stamped into every record when non-empty. Deprecated by
	// GELF 1.1 in favor of an additional field, but still widely consumed.
	Facility string

	// BufferSize is the maximum UDP datagram body size in bytes. Records
	// larger than this are chunked. Should be less than the path MTU minus
	// the IP and UDP header overhead. The default is 1400.
	BufferSize int

	// CompressionMode controls when records are compressed before sending:
	// CompressOptimal (only when the record exceeds BufferSize, the
	// default), CompressAlways, or CompressNever.
	CompressionMode CompressionMode

	// CompressionType selects the compression algorithm: CompressZlib (the
	// default), CompressGzip, or CompressNone. CompressNone behaves like
	// CompressNever regardless of the mode.
	CompressionType CompressType

	// CompressionLevel is the flate level used by the compressor. The zero
	// value selects flate.BestSpeed; to disable compression use
	// CompressionMode CompressNever rather than flate.NoCompression.
	CompressionLevel int

	// NewBufferCap sets the capacity, in bytes, for newly created encode
	// buffers. The minimum value is 64 bytes. The default is 1KiB (1<<10).
	NewBufferCap int

	// MaxBufferCap sets the maximum buffer capacity, in bytes, beyond which
	// an encode buffer will not be returned to the shared pool, to prevent
	// rare, unusually large buffers from staying resident in memory. The
	// minimum value is the `NewBufferCap`. The default is 8KiB (1<<13).
	MaxBufferCap int

	// MaxEagerDialTries limits the number of times the constructor will try
	// to open the socket and resolve the configured servers before giving
	// up. This is not used if `SkipEagerDial` is true. If the value is < 0,
	// the constructor will not return until resolution succeeds. The
	// default is 10.
	MaxEagerDialTries int

	// SkipEagerDial defers opening the socket and resolving server
	// addresses until the first send.
	SkipEagerDial bool

	// OnError is an optional observer invoked once per failed send on the
	// safe (named-severity) paths, which never propagate errors to the
	// caller. When nil, failures are reported to the internal logger.
	OnError func(error)

	// Verbose controls whether debug logs are written to the internal logger.
	Verbose bool
}

// DefaultBufferSize is the default maximum datagram body size, conservative
// for a 1500-byte Ethernet MTU.
const DefaultBufferSize = 1400

const (
	// a chunk must carry the 12-byte header plus at least one payload byte
	minBufferSize = chunkedHeaderLen + 1

	minBufferCap        = 64
	defaultNewBufferCap = 1 << 10
	defaultMaxBufferCap = 1 << 13

	defaultEagerDialTries = 10
)

// DefaultClientOptions returns *ClientOptions with all default values.
func DefaultClientOptions() *ClientOptions {
	opts := &ClientOptions{
		BufferSize:        DefaultBufferSize,
		CompressionLevel:  flate.BestSpeed,
		NewBufferCap:      defaultNewBufferCap,
		MaxBufferCap:      defaultMaxBufferCap,
		MaxEagerDialTries: defaultEagerDialTries,
	}
	opts.resolveHost()
	return opts
}

// resolve ensures that all coercible options have valid values. The fatal
// cases (invalid CompressionMode or CompressionType) are checked separately
// by NewClient.
func (o *ClientOptions) resolve() {

	o.resolveHost()

	// must be positive; keep room for the chunk header plus payload
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	} else if o.BufferSize < minBufferSize {
		o.BufferSize = minBufferSize
	}

	// 0 means unset; NoCompression is expressed via CompressNever
	if o.CompressionLevel == 0 ||
		o.CompressionLevel < flate.HuffmanOnly ||
		o.CompressionLevel > flate.BestCompression {
		o.CompressionLevel = flate.BestSpeed
	}

	if o.NewBufferCap < minBufferCap {
		o.NewBufferCap = defaultNewBufferCap
	}
	o.MaxBufferCap = max(o.NewBufferCap, o.MaxBufferCap)

	// can be negative (infinity) or positive, but not 0
	if o.MaxEagerDialTries == 0 {
		o.MaxEagerDialTries = defaultEagerDialTries
	}
}

func (o *ClientOptions) resolveHost() {
	if o.Host != "" {
		return
	}
	if hn, err := os.Hostname(); err == nil {
		o.Host = hn
	} else {
		o.Host = "localhost"
	}
}
