package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRelayStream(t *testing.T) {
	rl := NewRelay(zap.NewNop())
	payload := bytes.Repeat([]byte("x"), 3*relayBufferSize+17)

	r := httptest.NewRequest(http.MethodGet, "/v1/streams/x", nil)
	w := httptest.NewRecorder()
	total := rl.Stream(w, r, bytes.NewReader(payload), "video/x-matroska")

	assert.Equal(t, int64(len(payload)), total)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/x-matroska", w.Header().Get("Content-Type"))
	assert.Equal(t, payload, w.Body.Bytes())
	assert.True(t, w.Flushed)
}

func TestRelayStreamFuncReportsChunks(t *testing.T) {
	rl := NewRelay(zap.NewNop())
	payload := bytes.Repeat([]byte("y"), relayBufferSize+100)

	var reported int64
	var calls int
	r := httptest.NewRequest(http.MethodGet, "/v1/streams/x", nil)
	w := httptest.NewRecorder()
	total := rl.StreamFunc(w, r, bytes.NewReader(payload), "audio/aac", func(n int64) {
		reported += n
		calls++
	})

	assert.Equal(t, int64(len(payload)), total)
	assert.Equal(t, total, reported)
	assert.Equal(t, 2, calls)
}

func TestRelayStreamStopsOnContextCancel(t *testing.T) {
	rl := NewRelay(zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := httptest.NewRequest(http.MethodGet, "/v1/streams/x", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	// An endless source: only the cancelled context stops the loop.
	src := endlessReader{}
	total := rl.StreamFunc(w, r, src, "video/mp2t", nil)
	assert.Zero(t, total)
}

type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestNormalStreamEnd(t *testing.T) {
	require.True(t, normalStreamEnd(io.EOF))
	require.True(t, normalStreamEnd(io.ErrClosedPipe))
	require.True(t, normalStreamEnd(fmt.Errorf("read: %w", syscall.EPIPE)))
	assert.False(t, normalStreamEnd(assert.AnError))
}
