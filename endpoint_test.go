package gelf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {

	tests := []struct {
		name    string
		input   string
		expect  Endpoint
		wantErr bool
	}{
		{"host and port", "graylog.example.com:12202", Endpoint{"graylog.example.com", 12202}, false},
		{"bare host gets default port", "graylog.example.com", Endpoint{"graylog.example.com", DefaultPort}, false},
		{"ipv4 with port", "10.0.0.5:12201", Endpoint{"10.0.0.5", 12201}, false},
		{"bracketed ipv6 without port", "[::1]", Endpoint{"::1", DefaultPort}, false},
		{"bracketed ipv6 with port", "[::1]:12201", Endpoint{"::1", 12201}, false},
		{"empty rejected", "", Endpoint{}, true},
		{"garbage port rejected", "host:port:extra", Endpoint{}, true},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndpoint(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expect, got)
		})
	}
}

// the selector starts at index 0 and cycles; it advances once per call, so
// the caller decides the per-message granularity
func TestSelector_RoundRobin(t *testing.T) {
	eps := []Endpoint{
		{Host: "a", Port: 1},
		{Host: "b", Port: 2},
		{Host: "c", Port: 3},
	}
	s := newSelector(eps)

	for i := 0; i < 7; i++ {
		require.Equal(t, eps[i%3], s.next())
	}
}
