package ffmpeg

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvoe/mediaserver/internal/domain"
)

const movieProbeJSON = `{
	"format": {
		"format_name": "matroska,webm",
		"duration": "5400.480000",
		"bit_rate": "12000000"
	},
	"streams": [
		{
			"index": 0,
			"codec_name": "h264",
			"codec_type": "video",
			"profile": "High",
			"width": 1920,
			"height": 1080,
			"r_frame_rate": "24000/1001",
			"bit_rate": "10000000"
		},
		{
			"index": 1,
			"codec_name": "aac",
			"codec_type": "audio",
			"channels": 2,
			"sample_rate": "48000",
			"bit_rate": "160000",
			"tags": {"language": "eng"}
		},
		{
			"index": 2,
			"codec_name": "dts",
			"codec_type": "audio",
			"channels": 6,
			"sample_rate": "48000",
			"bit_rate": "1500000"
		},
		{
			"index": 3,
			"codec_name": "subrip",
			"codec_type": "subtitle",
			"tags": {"language": "ger"},
			"disposition": {"forced": 1}
		}
	]
}`

func TestParseProbeOutputVideo(t *testing.T) {
	var data probeOutput
	require.NoError(t, json.Unmarshal([]byte(movieProbeJSON), &data))

	p := NewProber("ffprobe")
	element, err := p.parseProbeOutput("/media/movie.mkv", &data)
	require.NoError(t, err)

	assert.Equal(t, "/media/movie.mkv", element.Path)
	assert.Equal(t, domain.MediaTypeVideo, element.Type)
	assert.Equal(t, "mkv", element.Container)
	assert.Equal(t, int64(12_000_000), element.Bitrate)
	assert.InDelta(t, (5400*time.Second + 480*time.Millisecond).Seconds(), element.Duration.Seconds(), 0.001)

	require.NotNil(t, element.Video)
	assert.Equal(t, domain.CodecAVCHigh, element.Video.Codec)
	assert.Equal(t, 1920, element.Video.Width)
	assert.InDelta(t, 23.976, element.Video.FrameRate, 0.001)

	// Audio streams get element-local indices in file order.
	require.Len(t, element.Audio, 2)
	assert.Equal(t, 0, element.Audio[0].Index)
	assert.Equal(t, domain.CodecAAC, element.Audio[0].Codec)
	assert.Equal(t, "eng", element.Audio[0].Language)
	assert.Equal(t, int64(160_000), element.Audio[0].Bitrate)
	assert.Equal(t, 1, element.Audio[1].Index)
	assert.Equal(t, domain.CodecDTS, element.Audio[1].Codec)
	assert.Equal(t, "und", element.Audio[1].Language) // no language tag

	require.Len(t, element.Subtitles, 1)
	assert.Equal(t, domain.CodecSubRip, element.Subtitles[0].Codec)
	assert.True(t, element.Subtitles[0].Forced)

	// DTS is lossy, so the source is not lossless end to end.
	assert.False(t, element.Lossless)
}

func TestParseProbeOutputLosslessAudio(t *testing.T) {
	data := probeOutput{
		Format: probeFormat{FormatName: "flac", Duration: "241.2", BitRate: "900000"},
		Streams: []probeStream{
			{Index: 0, CodecName: "flac", CodecType: "audio", Channels: 2, SampleRate: "96000"},
		},
	}

	p := NewProber("ffprobe")
	element, err := p.parseProbeOutput("/media/track.flac", &data)
	require.NoError(t, err)

	assert.Equal(t, domain.MediaTypeAudio, element.Type)
	assert.Equal(t, "flac", element.Container)
	assert.True(t, element.Lossless)
	require.Len(t, element.Audio, 1)
	assert.Equal(t, 96000, element.Audio[0].SampleRate)
}

func TestParseFrameRate(t *testing.T) {
	assert.Equal(t, 25.0, parseFrameRate("25/1"))
	assert.InDelta(t, 29.97, parseFrameRate("30000/1001"), 0.001)
	assert.Zero(t, parseFrameRate("0/0"))
	assert.Zero(t, parseFrameRate("not-a-rate"))
}

func TestNormalizeContainer(t *testing.T) {
	assert.Equal(t, "mkv", normalizeContainer("matroska,webm"))
	assert.Equal(t, "mov", normalizeContainer("mov,mp4,m4a,3gp,3g2,mj2"))
	assert.Equal(t, "flac", normalizeContainer("flac"))
}
