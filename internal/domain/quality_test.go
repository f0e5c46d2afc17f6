package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuality(t *testing.T) {
	assert.Equal(t, Quality720p, ParseQuality("720p"))
	assert.Equal(t, Quality2160p, ParseQuality(" 2160P "))
	assert.Equal(t, QualityOriginal, ParseQuality("original"))
	assert.Equal(t, QualityOriginal, ParseQuality("potato"))
	assert.Equal(t, QualityOriginal, ParseQuality(""))
}

func TestQualityForHeight(t *testing.T) {
	assert.Equal(t, Quality2160p, QualityForHeight(2160))
	assert.Equal(t, Quality1080p, QualityForHeight(1080))
	// Heights between tiers round down.
	assert.Equal(t, Quality720p, QualityForHeight(816))
	assert.Equal(t, Quality240p, QualityForHeight(144))
	assert.Equal(t, QualityOriginal, QualityForHeight(0))
}

func TestQualityClamp(t *testing.T) {
	assert.Equal(t, Quality720p, Quality2160p.Clamp(Quality720p))
	assert.Equal(t, Quality480p, Quality480p.Clamp(Quality1080p))
}

func TestAudioQualityFromVideoTier(t *testing.T) {
	assert.Equal(t, AudioQualityLow, Quality360p.AudioQuality())
	assert.Equal(t, AudioQualityMedium, Quality720p.AudioQuality())
	assert.Equal(t, AudioQualityHigh, Quality1080p.AudioQuality())
	assert.Equal(t, AudioQualityHigh, QualityOriginal.AudioQuality())
}

func TestAudioQualityBitrate(t *testing.T) {
	// Dolby codecs share one stereo rate and a tiered multichannel table.
	assert.Equal(t, 192, AudioQualityHigh.Bitrate(CodecAC3, 2))
	assert.Equal(t, 384, AudioQualityLow.Bitrate(CodecEAC3, 6))
	assert.Equal(t, 448, AudioQualityMedium.Bitrate(CodecEAC3, 6))
	assert.Equal(t, 640, AudioQualityHigh.Bitrate(CodecEAC3, 6))

	assert.Equal(t, 96, AudioQualityLow.Bitrate(CodecAAC, 2))
	assert.Equal(t, 160, AudioQualityMedium.Bitrate(CodecAAC, 2))
	assert.Equal(t, 256, AudioQualityHigh.Bitrate(CodecAAC, 2))
	assert.Equal(t, 512, AudioQualityHigh.Bitrate(CodecAAC, 6))

	// Lossless output carries no bitrate cap.
	assert.Equal(t, 0, AudioQualityHigh.Bitrate(CodecFLAC, 2))
}

func TestAudioQualityMaxSampleRate(t *testing.T) {
	assert.Equal(t, 48000, AudioQualityHigh.MaxSampleRate())
	assert.Equal(t, 192000, AudioQualityLossless.MaxSampleRate())
}
