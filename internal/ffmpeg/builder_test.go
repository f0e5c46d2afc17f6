package ffmpeg

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvoe/mediaserver/internal/domain"
)

func adaptiveProfile() *domain.TranscodeProfile {
	return &domain.TranscodeProfile{
		VideoCodec:             domain.CodecAVCHigh,
		AudioCodec:             domain.CodecAAC,
		SourceVideoCodec:       domain.CodecAVCHigh,
		SourceAudioCodec:       domain.CodecAAC,
		VideoBitrate:           3000,
		AudioBitrate:           160,
		MaxChannels:            2,
		MaxSampleRate:          48000,
		AudioTrack:             0,
		SubtitleTrack:          -1,
		VideoTranscodeRequired: true,
		AudioTranscodeRequired: true,
		SegmentDuration:        4 * time.Second,
		WorkDir:                "/work/job",
	}
}

func builderElement() *domain.MediaElement {
	return &domain.MediaElement{
		Path:  "/media/movie.mkv",
		Type:  domain.MediaTypeVideo,
		Video: &domain.VideoStream{Codec: domain.CodecAVCHigh, Width: 1920, Height: 1080},
		Audio: []domain.AudioStream{{Index: 0, Codec: domain.CodecAAC, Channels: 2, SampleRate: 48000}},
	}
}

func argAfter(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, a := range args {
		if a == flag {
			require.Less(t, i+1, len(args), "flag %s has no value", flag)
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}

func TestBuildHLSCommandSegmentJumpOffset(t *testing.T) {
	b := NewCommandBuilder("/usr/bin/ffmpeg")
	p := adaptiveProfile()
	p.SegmentOffset = 10

	args := b.BuildHLSCommand(builderElement(), p)
	require.NotNil(t, args)

	assert.Equal(t, "/usr/bin/ffmpeg", args[0])
	// Seek offset is segment duration times segment number.
	assert.Equal(t, "40.000", argAfter(t, args, "-ss"))
	assert.Equal(t, "10", argAfter(t, args, "-segment_start_number"))
	assert.Equal(t, "mpegts", argAfter(t, args, "-segment_format"))
	assert.Equal(t, "/work/job/stream%05d.ts", args[len(args)-1])
}

func TestBuildHLSCommandNoSeekAtStart(t *testing.T) {
	b := NewCommandBuilder("ffmpeg")
	args := b.BuildHLSCommand(builderElement(), adaptiveProfile())
	require.NotNil(t, args)
	assert.NotContains(t, args, "-ss")
}

func TestBuildHLSCommandForcedKeyFrames(t *testing.T) {
	b := NewCommandBuilder("ffmpeg")

	args := b.BuildHLSCommand(builderElement(), adaptiveProfile())
	assert.Equal(t, "expr:gte(t,n_forced*4)", argAfter(t, args, "-force_key_frames"))

	// Pass-through video keeps the source key frame cadence.
	p := adaptiveProfile()
	p.VideoTranscodeRequired = false
	args = b.BuildHLSCommand(builderElement(), p)
	assert.NotContains(t, args, "-force_key_frames")
	assert.Equal(t, "copy", argAfter(t, args, "-c:v"))
}

func TestBuildDASHCommandContainerBranch(t *testing.T) {
	b := NewCommandBuilder("ffmpeg")
	element := builderElement()

	p := adaptiveProfile()
	p.VideoTranscodeRequired = false

	// MPEG-TS pass-through applies the bitstream filter.
	args := b.BuildDASHCommand(element, p, DASHContainerMPEGTS)
	assert.Equal(t, "h264_mp4toannexb", argAfter(t, args, "-bsf:v"))
	assert.True(t, strings.HasSuffix(args[len(args)-1], ".ts"))

	// MP4 never does.
	args = b.BuildDASHCommand(element, p, DASHContainerMP4)
	assert.NotContains(t, args, "-bsf:v")
	assert.True(t, strings.HasSuffix(args[len(args)-1], ".mp4"))

	// Transcoded MPEG-TS does not need the filter either.
	args = b.BuildDASHCommand(element, adaptiveProfile(), DASHContainerMPEGTS)
	assert.NotContains(t, args, "-bsf:v")

	args = b.BuildDASHCommand(element, p, DASHContainerWebM)
	assert.True(t, strings.HasSuffix(args[len(args)-1], ".webm"))
}

func TestBuildAudioCommand(t *testing.T) {
	b := NewCommandBuilder("ffmpeg")
	element := builderElement()
	p := adaptiveProfile()

	args := b.BuildAudioCommand(element, p, 90*time.Second)
	require.NotNil(t, args)
	assert.Equal(t, "90.000", argAfter(t, args, "-ss"))
	assert.Contains(t, args, "-vn")
	assert.Contains(t, args, "-sn")
	assert.Equal(t, "0:a:0", argAfter(t, args, "-map"))
	assert.Equal(t, "adts", argAfter(t, args, "-f"))
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestBuildAudioCommandNilOnUnresolved(t *testing.T) {
	b := NewCommandBuilder("ffmpeg")
	element := builderElement()

	// No audio track selected.
	p := adaptiveProfile()
	p.AudioTrack = -1
	assert.Nil(t, b.BuildAudioCommand(element, p, 0))

	// Negotiation failed.
	p = adaptiveProfile()
	p.AudioCodec = domain.CodecUnsupported
	assert.Nil(t, b.BuildAudioCommand(element, p, 0))

	// No streamable container for the codec.
	p = adaptiveProfile()
	p.AudioCodec = domain.CodecDTS
	assert.Nil(t, b.BuildAudioCommand(element, p, 0))
}

func TestBuildVideoCommand(t *testing.T) {
	b := NewCommandBuilder("ffmpeg")
	element := builderElement()
	p := adaptiveProfile()

	args := b.BuildVideoCommand(element, p, 0)
	require.NotNil(t, args)
	assert.Equal(t, "matroska", argAfter(t, args, "-f"))
	assert.Equal(t, "pipe:1", args[len(args)-1])
	assert.Equal(t, "libx264", argAfter(t, args, "-c:v"))
	assert.Equal(t, "high", argAfter(t, args, "-profile:v"))
	assert.Equal(t, "3000k", argAfter(t, args, "-b:v"))
	assert.Equal(t, "4000k", argAfter(t, args, "-maxrate"))
	assert.Equal(t, "6000k", argAfter(t, args, "-bufsize"))

	assert.Nil(t, b.BuildVideoCommand(&domain.MediaElement{}, p, 0))
}

func TestMappingArgsSubtitleEngaged(t *testing.T) {
	b := NewCommandBuilder("ffmpeg")
	element := builderElement()
	element.Subtitles = []domain.SubtitleStream{{Index: 0, Codec: domain.CodecSubRip}}

	p := adaptiveProfile()
	p.SubtitleTrack = 0

	args := b.BuildHLSCommand(element, p)
	assert.Contains(t, args, "0:s:0")
	assert.Equal(t, "webvtt", argAfter(t, args, "-c:s"))
	assert.NotContains(t, args, "-sn")
}

func TestMappingArgsNoAudio(t *testing.T) {
	b := NewCommandBuilder("ffmpeg")
	p := adaptiveProfile()
	p.AudioTrack = -1

	args := b.BuildHLSCommand(builderElement(), p)
	assert.Contains(t, args, "-an")
	assert.Contains(t, args, "-sn")
}
