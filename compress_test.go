package gelf

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"
)

func TestParseCompressType(t *testing.T) {

	tests := []struct {
		name    string
		input   string
		expect  CompressType
		wantErr bool
	}{
		{"zlib", "zlib", CompressZlib, false},
		{"gzip", "gzip", CompressGzip, false},
		{"none", "none", CompressNone, false},
		{"empty defaults to none", "", CompressNone, false},
		{"unknown name rejected", "brotli", 0, true},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCompressType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expect, got)
		})
	}
}

func TestParseCompressionMode(t *testing.T) {

	tests := []struct {
		name    string
		input   string
		expect  CompressionMode
		wantErr bool
	}{
		{"optimal", "optimal", CompressOptimal, false},
		{"always", "always", CompressAlways, false},
		{"never", "never", CompressNever, false},
		{"empty defaults to optimal", "", CompressOptimal, false},
		{"unknown name rejected", "sometimes", 0, true},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCompressionMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expect, got)
		})
	}
}

// compressTo output must round-trip through the magic-sniffing inflater the
// Reader uses on the receive side
func TestCompressor_RoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("compressible GELF record content "), 64)

	for _, typ := range []CompressType{CompressZlib, CompressGzip} {
		t.Run(typ.String(), func(t *testing.T) {
			comp := newCompressor(typ, flate.BestSpeed)
			require.NotNil(t, comp)
			require.Equal(t, typ, comp.typ())

			var dst bytes.Buffer
			require.NoError(t, comp.compressTo(&dst, src))
			require.Less(t, dst.Len(), len(src))

			inflated, err := inflate(dst.Bytes())
			require.NoError(t, err)
			require.Equal(t, src, inflated)
		})
	}
}

// pooled writers must not leak state between compressions
func TestCompressor_Reuse(t *testing.T) {
	comp := newCompressor(CompressZlib, flate.BestSpeed)

	for i := 0; i < 3; i++ {
		src := bytes.Repeat([]byte{byte('a' + i)}, 512)

		var dst bytes.Buffer
		require.NoError(t, comp.compressTo(&dst, src))

		inflated, err := inflate(dst.Bytes())
		require.NoError(t, err)
		require.Equal(t, src, inflated)
	}
}

func TestNewCompressor_None(t *testing.T) {
	require.Nil(t, newCompressor(CompressNone, flate.BestSpeed))
}
