package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_enqueue(t *testing.T) {
	s := newSession(nil)

	require.True(t, s.enqueue([]byte("before close")))

	// After close, enqueue must report false every time, not just when the
	// buffer happens to be full.
	s.close()
	for i := 0; i < 100; i++ {
		assert.False(t, s.enqueue([]byte("after close")))
	}
	assert.Len(t, s.send, 1)
}

func TestSession_enqueueFullBuffer(t *testing.T) {
	s := newSession(nil)

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, s.enqueue([]byte("fill")))
	}
	assert.False(t, s.enqueue([]byte("overflow")))
}
