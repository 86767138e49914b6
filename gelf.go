/*
Package gelf provides a full GELF (Graylog Extended Log Format) UDP logging
stack in Go, including:

  - `gelf.Client` - builds GELF records, compresses and chunks them, and
    writes the resulting datagrams out to one or more Graylog servers
  - `gelf.Handler` - serializes Go structured logs (implements `slog.Handler`)
    on top of a Client
  - `gelf.Reader` - receives, reassembles, and decodes GELF datagrams,
    primarily for integration testing

The Client speaks GELF over UDP only. Records at or below the configured
datagram size go out as a single packet; larger records are optionally
DEFLATE/gzip compressed and, when still too large, split into the chunked
GELF format (12-byte header carrying a shared random message ID, a sequence
number, and the chunk total, capped at 128 chunks by the protocol).

Examples of behavior guarantees:

  - one endpoint is chosen per logical message, round-robin across the
    configured servers, so all chunks of one message arrive at one server
  - chunks are written strictly in ascending sequence order, one at a time
  - severity helpers (Info, Warning, ...) never fail the caller: transport
    errors are routed to an optional error observer and the call returns the
    NotSent sentinel
  - Close drains: it waits for every in-flight message and chunk before
    releasing the socket, and a second Close is rejected rather than queued

	ref: https://go2docs.graylog.org/current/getting_in_log_data/gelf.html
*/
package gelf
