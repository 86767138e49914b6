package gelf

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunker_SplitsAndReassembles(t *testing.T) {
	raw := make([]byte, 3000)
	_, err := rand.Read(raw)
	require.NoError(t, err)

	const bufferSize = 1400
	dataLen := bufferSize - chunkedHeaderLen

	c, err := newChunker(raw, bufferSize)
	require.NoError(t, err)
	require.Equal(t, 3, c.total)

	var (
		id          []byte
		reassembled []byte
		seq         int
	)
	for {
		d, ok := c.next()
		if !ok {
			break
		}
		require.LessOrEqual(t, len(d), bufferSize)
		require.True(t, bytes.HasPrefix(d, magicChunked))

		if id == nil {
			id = append([]byte(nil), d[2:10]...)
		} else {
			require.Equal(t, id, d[2:10])
		}
		require.Equal(t, byte(seq), d[10])
		require.Equal(t, byte(3), d[11])

		// every chunk except the last carries a full payload slice
		if seq < 2 {
			require.Len(t, d, bufferSize)
		}

		reassembled = append(reassembled, d[chunkedHeaderLen:]...)
		seq++
	}

	require.Equal(t, 3, seq)
	require.Equal(t, raw, reassembled)
	require.Equal(t, dataLen*2+(3000-dataLen*2), len(reassembled))
}

func TestChunker_ExactMultiple(t *testing.T) {
	const bufferSize = 112 // dataLen 100
	raw := bytes.Repeat([]byte("y"), 200)

	c, err := newChunker(raw, bufferSize)
	require.NoError(t, err)
	require.Equal(t, 2, c.total)

	first, ok := c.next()
	require.True(t, ok)
	require.Len(t, first, bufferSize)

	second, ok := c.next()
	require.True(t, ok)
	require.Len(t, second, bufferSize)

	_, ok = c.next()
	require.False(t, ok)
}

func TestChunker_TooManyChunks(t *testing.T) {
	raw := make([]byte, 129)

	c, err := newChunker(raw, minBufferSize)
	require.ErrorIs(t, err, ErrTooManyChunks)
	require.Nil(t, c)
}

func TestChunker_CeilingExactlyReachable(t *testing.T) {
	raw := make([]byte, maxChunkCount)

	c, err := newChunker(raw, minBufferSize)
	require.NoError(t, err)
	require.Equal(t, maxChunkCount, c.total)
}
