package gelf

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
)

// DefaultPort is the registered GELF UDP input port.
const DefaultPort = 12201

// Endpoint identifies one Graylog server. Endpoints are immutable once the
// Client is constructed.
type Endpoint struct {
	Host string
	Port int
}

// ParseEndpoint parses "host" or "host:port" into an Endpoint. When the port
// is omitted it defaults to DefaultPort. IPv6 hosts must be bracketed, e.g.
// "[::1]:12201".
func ParseEndpoint(s string) (Endpoint, error) {
	if len(s) == 0 {
		return Endpoint{}, fmt.Errorf("empty server address")
	}

	// bare hostname or bracketed IPv6 literal without a port
	if !strings.Contains(s, ":") {
		return Endpoint{Host: s, Port: DefaultPort}, nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return Endpoint{Host: s[1 : len(s)-1], Port: DefaultPort}, nil
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid server address %q: %w", s, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid port in server address %q: %w", s, err)
	}

	return Endpoint{Host: host, Port: port}, nil
}

// addr composes the Endpoint into the format used by dialers and resolvers.
func (e Endpoint) addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string { return e.addr() }

// selector hands out endpoints round-robin. The call counter only advances
// once per logical message, never per chunk, so all chunks of a chunked
// message target the same server while consecutive messages fan out.
type selector struct {
	endpoints []Endpoint
	calls     atomic.Uint64
}

func newSelector(endpoints []Endpoint) *selector {
	return &selector{endpoints: endpoints}
}

// next returns the endpoint for the next logical message. The first call
// always returns index 0.
func (s *selector) next() Endpoint {
	n := s.calls.Add(1) - 1
	return s.endpoints[n%uint64(len(s.endpoints))]
}
