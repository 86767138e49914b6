package gelf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitdabbler/backoff"
)

// NotSent is the sentinel returned by the named-severity methods when a send
// fails. Those methods never propagate errors to the caller; failures are
// routed to the OnError observer (or the internal logger) instead.
const NotSent = -1

// Client is a GELF UDP client. It builds GELF records, optionally compresses
// them, chunks them when they exceed the configured datagram size, and writes
// the resulting datagrams to one of the configured Graylog servers,
// round-robin, one server per logical message.
type Client struct {
	opts   *ClientOptions
	sel    *selector
	tr     *transport
	flight *flight
	pool   *encoderPool
	comp   compressor
}

// NewClient creates a new GELF client for the given servers. Unless
// SkipEagerDial is set it opens the UDP socket and resolves every server
// address immediately, returning an error if it cannot.
func NewClient(servers []Endpoint, opts *ClientOptions) (*Client, error) {
	return NewClientContext(context.Background(), servers, opts)
}

// NewClientContext is NewClient with a Context bounding the eager dial and
// address resolution, to cancel it or to set a global deadline.
func NewClientContext(ctx context.Context, servers []Endpoint, opts *ClientOptions) (*Client, error) {

	c, err := newClient(servers, opts)
	if err != nil {
		return nil, err
	}

	if c.opts.SkipEagerDial {
		return c, nil
	}

	if err := c.tryDial(ctx, c.opts.MaxEagerDialTries); err != nil {
		c.tr.close()
		return nil, err
	}

	return c, nil
}

func newClient(servers []Endpoint, opts *ClientOptions) (*Client, error) {

	if len(servers) == 0 {
		return nil, errors.New("at least one server endpoint required")
	}

	if opts == nil {
		opts = DefaultClientOptions()
	} else {
		opts.resolve()
	}

	// invalid enum values are configuration errors, not coercible
	if !opts.CompressionMode.valid() {
		return nil, fmt.Errorf("invalid compression mode: %d", opts.CompressionMode)
	}
	if !opts.CompressionType.valid() {
		return nil, fmt.Errorf("invalid compression type: %d", opts.CompressionType)
	}

	c := &Client{
		opts:   opts,
		sel:    newSelector(servers),
		tr:     newTransport(),
		flight: newFlight(),
		pool:   newEncoderPool(opts.NewBufferCap, opts.MaxBufferCap),
		comp:   newCompressor(opts.CompressionType, opts.CompressionLevel),
	}

	c.debug("starting Client with the resolved ClientOptions: %+v", c.opts)

	return c, nil
}

// tryDial opens the shared socket and resolves every configured server,
// retrying with exponential backoff up to maxAttempts.
func (c *Client) tryDial(ctx context.Context, maxAttempts int) error {
	c.debug("eagerly opening the socket and resolving servers")

	b, err := backoff.New(
		backoff.WithInitialDelay(0),
		backoff.WithExponentialLimit(time.Second*20),
	)
	if err != nil {
		return err
	}

	i := 0
	for {
		i++
		err = c.dialAndResolve()
		if err == nil {
			c.debug("successfully resolved all configured servers")
			return nil
		}

		c.debug("failed to dial on attempt %d: %v", i, err)

		if maxAttempts > 0 && i >= maxAttempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.Sleep()
	}

	return fmt.Errorf("failed to dial; maxAttempts reached: %d: %w", maxAttempts, err)
}

func (c *Client) dialAndResolve() error {
	if err := c.tr.dial(); err != nil {
		return err
	}
	for _, ep := range c.sel.endpoints {
		if err := c.tr.resolve(ep); err != nil {
			return err
		}
	}
	return nil
}

// Log builds a record at the given severity and sends it, propagating any
// error to the caller. The input is handled per its type: a string becomes
// the short message; an error contributes its message as the short message
// and, when it carries a github.com/pkg/errors stack trace, the rendered
// trace as the full message with the origin file and line folded into
// additional fields; any other value is serialized generically. Reserved keys
// in fields ("facility", "full_message", "level", "timestamp") override the
// corresponding record fields; all other keys become additional fields.
//
// Callers that must not fail on logging errors should use the named-severity
// methods instead.
func (c *Client) Log(level Level, v any, fields ...Fields) (int, error) {
	return c.WriteMessage(newMessage(c.opts.Host, c.opts.Facility, level, v, mergeFields(fields)))
}

// Emergency sends v at severity 0. It never fails; see NotSent.
func (c *Client) Emergency(v any, fields ...Fields) int {
	return c.logSafe(LevelEmergency, v, fields)
}

// Alert sends v at severity 1. It never fails; see NotSent.
func (c *Client) Alert(v any, fields ...Fields) int {
	return c.logSafe(LevelAlert, v, fields)
}

// Critical sends v at severity 2. It never fails; see NotSent.
func (c *Client) Critical(v any, fields ...Fields) int {
	return c.logSafe(LevelCritical, v, fields)
}

// Error sends v at severity 3. It never fails; see NotSent.
func (c *Client) Error(v any, fields ...Fields) int {
	return c.logSafe(LevelError, v, fields)
}

// Warning sends v at severity 4. It never fails; see NotSent.
func (c *Client) Warning(v any, fields ...Fields) int {
	return c.logSafe(LevelWarning, v, fields)
}

// Notice sends v at severity 5. It never fails; see NotSent.
func (c *Client) Notice(v any, fields ...Fields) int {
	return c.logSafe(LevelNotice, v, fields)
}

// Info sends v at severity 6. It never fails; see NotSent.
func (c *Client) Info(v any, fields ...Fields) int {
	return c.logSafe(LevelInfo, v, fields)
}

// Debug sends v at severity 7. It never fails; see NotSent.
func (c *Client) Debug(v any, fields ...Fields) int {
	return c.logSafe(LevelDebug, v, fields)
}

// logSafe is the safe-mode send path shared by the named-severity methods:
// errors are reported out of band and the call resolves to NotSent.
func (c *Client) logSafe(level Level, v any, fields []Fields) int {
	n, err := c.Log(level, v, fields...)
	if err != nil {
		c.reportError(err)
		return NotSent
	}
	return n
}

// Write implements io.Writer so the Client can be installed via
// log.SetOutput. The first line of p becomes the short message and the whole
// of p the full message, with the originating file and line of the log
// statement folded into additional fields. Records go out at LevelInfo.
func (c *Client) Write(p []byte) (int, error) {
	file, line := getCallerIgnoringLogMulti(1)

	short := bytes.TrimRight(p, "\n")
	full := []byte{}
	if i := bytes.IndexByte(short, '\n'); i > 0 {
		full = short
		short = short[:i]
	}

	m := &Message{
		Version:  Version,
		Host:     c.opts.Host,
		Short:    string(short),
		Full:     string(full),
		TimeUnix: unixNow(),
		Level:    LevelInfo,
		Facility: c.opts.Facility,
		Extra: Fields{
			"_file": file,
			"_line": line,
		},
	}

	if _, err := c.WriteMessage(m); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteMessage sends one record, propagating any error to the caller. Empty
// Version and Host fields and a zero TimeUnix are filled from the client's
// configuration and clock.
//
// The pipeline per logical message: render the record to JSON, compress it
// per the configured mode, pick one server round-robin, then either write a
// single datagram (records at or below BufferSize go out unchanged, with no
// chunk header) or write the chunk sequence strictly in ascending order. A
// transport error aborts the remaining chunks of the message. Returns the
// total bytes handed to the socket.
func (c *Client) WriteMessage(m *Message) (int, error) {
	if err := c.flight.beginMessage(); err != nil {
		return 0, err
	}
	defer c.flight.endMessage()

	if m.Version == "" {
		m.Version = Version
	}
	if m.Host == "" {
		m.Host = c.opts.Host
	}
	if m.TimeUnix == 0 {
		m.TimeUnix = unixNow()
	}

	enc := c.pool.get()
	defer enc.free()

	if err := enc.encodeMessage(m); err != nil {
		return 0, err
	}
	out := enc.Bytes()

	if c.compressionWanted(len(out)) {
		zbuf := c.pool.get()
		defer zbuf.free()

		if err := c.comp.compressTo(zbuf.Buffer, out); err != nil {
			return 0, err
		}
		out = zbuf.Bytes()
	}

	// single-datagram fast path; the bytes go out unchanged
	if len(out) <= c.opts.BufferSize {
		return c.sendDatagram(out, c.sel.next())
	}

	// validate the chunk count before consuming a selector slot, so a
	// size-exceeded failure has no side effects at all
	ch, err := newChunker(out, c.opts.BufferSize)
	if err != nil {
		return 0, err
	}

	// one endpoint per logical message, shared by all of its chunks
	ep := c.sel.next()

	total := 0
	for {
		d, ok := ch.next()
		if !ok {
			return total, nil
		}
		n, err := c.sendDatagram(d, ep)
		total += n
		if err != nil {
			// abort the remaining chunks; no partial-send retry
			return total, err
		}
	}
}

func (c *Client) compressionWanted(rawLen int) bool {
	if c.comp == nil {
		return false
	}
	switch c.opts.CompressionMode {
	case CompressAlways:
		return true
	case CompressOptimal:
		return rawLen > c.opts.BufferSize
	default:
		return false
	}
}

func (c *Client) sendDatagram(b []byte, ep Endpoint) (int, error) {
	c.flight.beginChunk()
	defer c.flight.endChunk()
	return c.tr.send(b, ep)
}

// Close drains and shuts down the client: it waits, without timeout, for
// every in-flight message and chunk to finish, then releases the socket.
// Close is idempotent-once: the first call succeeds (eventually), and any
// subsequent call fails immediately with ErrAlreadyClosing. Sends attempted
// after Close fail with ErrClosed.
func (c *Client) Close() error {
	c.debug("close requested; draining in-flight messages")
	return c.flight.close(c.tr.close)
}

func mergeFields(fields []Fields) Fields {
	if len(fields) <= 1 {
		if len(fields) == 0 {
			return nil
		}
		return fields[0]
	}
	merged := make(Fields)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return merged
}

// internal logging helpers:
func (c *Client) debug(format string, args ...any) {
	if !c.opts.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}

func (c *Client) reportError(err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(err)
		return
	}
	InternalLogger().Printf("failed to send message: %v", err)
}
