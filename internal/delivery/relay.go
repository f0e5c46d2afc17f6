package delivery

import (
	"errors"
	"io"
	"net/http"
	"syscall"

	"go.uber.org/zap"
)

const relayBufferSize = 64 * 1024

// Relay streams live encoder output to a client with no range negotiation.
// Bytes are forwarded in the exact order produced and flushed as they become
// available.
type Relay struct {
	logger *zap.Logger
}

// NewRelay creates a relay.
func NewRelay(logger *zap.Logger) *Relay {
	return &Relay{logger: logger}
}

// Stream copies src to the response until end-of-stream or client disconnect,
// both of which are normal termination. onBytes, when non-nil, receives the
// size of every chunk delivered for statistics reporting. Returns the total
// byte count.
func (rl *Relay) Stream(w http.ResponseWriter, r *http.Request, src io.Reader, contentType string) int64 {
	return rl.StreamFunc(w, r, src, contentType, nil)
}

// StreamFunc is Stream with a per-chunk byte callback.
func (rl *Relay) StreamFunc(w http.ResponseWriter, r *http.Request, src io.Reader, contentType string, onBytes func(int64)) int64 {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, relayBufferSize)
	var total int64

	for {
		select {
		case <-r.Context().Done():
			return total
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			written, writeErr := w.Write(buf[:n])
			total += int64(written)
			if onBytes != nil && written > 0 {
				onBytes(int64(written))
			}
			if writeErr != nil {
				// Client went away mid-stream.
				return total
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if !normalStreamEnd(readErr) {
				rl.logger.Debug("stream read failed", zap.Error(readErr))
			}
			return total
		}
	}
}

// normalStreamEnd reports whether the read error means the upstream process
// simply finished or was torn down.
func normalStreamEnd(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
