package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateScannerDefaultsToZero(t *testing.T) {
	r := newRateScanner()
	assert.Zero(t, r.Rate())

	// Marker-free diagnostics leave the rate untouched.
	_, err := r.Write([]byte("Stream mapping:\n  Stream #0:0 -> #0:0 (h264 -> h264)\n"))
	require.NoError(t, err)
	assert.Zero(t, r.Rate())
}

func TestRateScannerAverages(t *testing.T) {
	r := newRateScanner()
	r.Write([]byte("frame=  100 fps= 25 time=00:00:04.00 speed=1.00x\r"))
	r.Write([]byte("frame=  200 fps= 25 time=00:00:08.00 speed=3.00x\r"))
	assert.InDelta(t, 2.0, r.Rate(), 0.001)
}

func TestRateScannerHandlesSplitWrites(t *testing.T) {
	r := newRateScanner()
	r.Write([]byte("frame=  100 spee"))
	assert.Zero(t, r.Rate())
	r.Write([]byte("d= 1.50x\n"))
	assert.InDelta(t, 1.5, r.Rate(), 0.001)
}

func TestRateScannerIgnoresMalformedMarkers(t *testing.T) {
	r := newRateScanner()
	r.Write([]byte("speed=N/A x\n"))
	assert.Zero(t, r.Rate())
}
