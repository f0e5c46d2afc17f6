package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVideoCodec(t *testing.T) {
	assert.Equal(t, CodecAVCBaseline, ParseVideoCodec("h264", "Baseline"))
	assert.Equal(t, CodecAVCBaseline, ParseVideoCodec("h264", "Constrained Baseline"))
	assert.Equal(t, CodecAVCMain, ParseVideoCodec("h264", "Main"))
	// Unknown or absent profile assumes the widest one.
	assert.Equal(t, CodecAVCHigh, ParseVideoCodec("h264", ""))
	assert.Equal(t, CodecAVCHigh, ParseVideoCodec("h264", "High 10"))

	assert.Equal(t, CodecHEVCMain, ParseVideoCodec("hevc", "Main"))
	assert.Equal(t, CodecHEVCMain10, ParseVideoCodec("h265", "Main 10"))
	assert.Equal(t, CodecMPEG2, ParseVideoCodec("mpeg2video", ""))
	assert.Equal(t, CodecUnsupported, ParseVideoCodec("av1", ""))
}

func TestParseAudioCodec(t *testing.T) {
	assert.Equal(t, CodecAAC, ParseAudioCodec("aac"))
	assert.Equal(t, CodecDTSHD, ParseAudioCodec("dts_hd"))
	assert.Equal(t, CodecPCM, ParseAudioCodec("pcm_s16le"))
	assert.Equal(t, CodecPCM, ParseAudioCodec("pcm_s24be"))
	assert.Equal(t, CodecDSD, ParseAudioCodec("dsd_lsbf"))
	assert.Equal(t, CodecUnsupported, ParseAudioCodec("opus_unknown"))
}

func TestCodecKindRanges(t *testing.T) {
	assert.True(t, CodecHEVCHDR10.IsVideo())
	assert.False(t, CodecAAC.IsVideo())
	assert.True(t, CodecTrueHD.IsAudio())
	assert.False(t, CodecSubRip.IsAudio())
	assert.True(t, CodecPGS.IsSubtitle())
	assert.False(t, CodecUnsupported.IsVideo())
}

func TestCodecLossless(t *testing.T) {
	for _, c := range []Codec{CodecFLAC, CodecALAC, CodecPCM, CodecTrueHD, CodecDTSHD, CodecDSD} {
		assert.True(t, c.Lossless(), c.String())
	}
	assert.False(t, CodecAAC.Lossless())
	assert.False(t, CodecDTS.Lossless())
}

func TestCodecSet(t *testing.T) {
	var nilSet CodecSet
	assert.False(t, nilSet.Has(CodecAAC))

	s := NewCodecSet(CodecAAC)
	s.Add(CodecAVCHigh)
	assert.True(t, s.Has(CodecAVCHigh))

	clone := s.Clone()
	clone.Remove(CodecAAC)
	assert.True(t, s.Has(CodecAAC))
	assert.False(t, clone.Has(CodecAAC))
}
