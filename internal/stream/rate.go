package stream

import (
	"bytes"
	"regexp"
	"strconv"
	"sync"
)

var speedRegex = regexp.MustCompile(`speed=\s*([\d.]+)x`)

// rateScanner is an io.Writer attached to the encoder's stderr. It scans the
// diagnostic text for speed markers and maintains a running average encode
// rate. Absence of any marker leaves the rate at zero; scanning never fails.
type rateScanner struct {
	mu      sync.Mutex
	partial []byte
	sum     float64
	count   int
}

func newRateScanner() *rateScanner {
	return &rateScanner{}
}

func (r *rateScanner) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.partial = append(r.partial, p...)
	for {
		// ffmpeg progress lines end in \r, log lines in \n.
		idx := bytes.IndexAny(r.partial, "\r\n")
		if idx < 0 {
			break
		}
		line := r.partial[:idx]
		r.partial = r.partial[idx+1:]
		r.scanLine(line)
	}
	// Unbounded growth guard for marker-free streams.
	if len(r.partial) > 4096 {
		r.partial = r.partial[len(r.partial)-4096:]
	}
	return len(p), nil
}

func (r *rateScanner) scanLine(line []byte) {
	matches := speedRegex.FindSubmatch(line)
	if len(matches) < 2 {
		return
	}
	v, err := strconv.ParseFloat(string(matches[1]), 64)
	if err != nil {
		return
	}
	r.sum += v
	r.count++
}

// Rate returns the running average encode rate, zero when no marker has been
// seen yet.
func (r *rateScanner) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return 0
	}
	return r.sum / float64(r.count)
}
