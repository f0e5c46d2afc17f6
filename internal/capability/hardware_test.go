package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tvoe/mediaserver/internal/domain"
)

func TestResolveHardwareIntelGenerations(t *testing.T) {
	// Gen9: AVC only.
	gen9 := ResolveHardware("intel", "0x1912")
	assert.True(t, gen9.Has(domain.CodecAVCHigh))
	assert.False(t, gen9.Has(domain.CodecHEVCMain))

	// Gen9.5: HEVC Main/Main10 but no HDR10.
	gen95 := ResolveHardware("8086", "5912")
	assert.True(t, gen95.Has(domain.CodecHEVCMain))
	assert.True(t, gen95.Has(domain.CodecHEVCMain10))
	assert.False(t, gen95.Has(domain.CodecHEVCHDR10))

	// Gen12: full pipeline.
	gen12 := ResolveHardware("intel", "9a49")
	assert.True(t, gen12.Has(domain.CodecHEVCHDR10))
}

func TestResolveHardwareNvidiaGenerations(t *testing.T) {
	maxwell := ResolveHardware("nvidia", "GeForce GTX 960")
	assert.True(t, maxwell.Has(domain.CodecAVCHigh))
	assert.False(t, maxwell.Has(domain.CodecHEVCMain))

	pascal := ResolveHardware("10de", "GeForce GTX 1080 Ti")
	assert.True(t, pascal.Has(domain.CodecHEVCMain10))

	turing := ResolveHardware("nvidia", "GeForce RTX 2070 SUPER")
	assert.True(t, turing.Has(domain.CodecHEVCHDR10))
}

func TestResolveHardwareUnknown(t *testing.T) {
	assert.Empty(t, ResolveHardware("amd", "Radeon RX 580"))
	assert.Empty(t, ResolveHardware("intel", "ffff"))
	assert.Empty(t, ResolveHardware("nvidia", "GeForce GT 210"))
	assert.Empty(t, ResolveHardware("", ""))
}
