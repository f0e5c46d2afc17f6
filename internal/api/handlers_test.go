package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tvoe/mediaserver/internal/domain"
)

func TestParseJobType(t *testing.T) {
	jt, ok := parseJobType("hls")
	require.True(t, ok)
	assert.Equal(t, domain.JobTypeHLS, jt)

	jt, ok = parseJobType("  DASH ")
	require.True(t, ok)
	assert.Equal(t, domain.JobTypeDASH, jt)

	_, ok = parseJobType("rtmp")
	assert.False(t, ok)
	_, ok = parseJobType("")
	assert.False(t, ok)
}

func TestParseClientCodecs(t *testing.T) {
	set := parseClientCodecs([]string{"h264/high", "hevc/main", "aac", "eac3", "srt", "unknowncodec"})
	assert.True(t, set.Has(domain.CodecAVCHigh))
	assert.True(t, set.Has(domain.CodecHEVCMain))
	assert.True(t, set.Has(domain.CodecAAC))
	assert.True(t, set.Has(domain.CodecEAC3))
	assert.True(t, set.Has(domain.CodecSubRip))
	assert.False(t, set.Has(domain.CodecUnsupported))

	// No profile suffix falls to the default profile branch.
	set = parseClientCodecs([]string{"h264"})
	assert.True(t, set.Has(domain.CodecAVCHigh))

	assert.Nil(t, parseClientCodecs(nil))
}

func TestParseSegmentName(t *testing.T) {
	n, ok := parseSegmentName("stream00042.ts", ".ts")
	require.True(t, ok)
	assert.Equal(t, 42, n)

	n, ok = parseSegmentName("stream00000.mp4", ".mp4")
	require.True(t, ok)
	assert.Equal(t, 0, n)

	for _, name := range []string{
		"stream00042.mp4", // wrong extension
		"segment00042.ts", // wrong prefix
		"stream.ts",       // no digits
		"streamabc.ts",    // non-numeric
		"stream-0001.ts",  // negative
	} {
		_, ok := parseSegmentName(name, ".ts")
		assert.False(t, ok, name)
	}
}

func TestRegisterMediaRejectsBadRequests(t *testing.T) {
	h := &Handler{logger: zap.NewNop()}

	// Malformed body.
	rec := httptest.NewRecorder()
	h.RegisterMedia(rec, httptest.NewRequest("POST", "/v1/media", strings.NewReader("{broken")))
	assert.Equal(t, 400, rec.Code)

	// Missing path.
	rec = httptest.NewRecorder()
	h.RegisterMedia(rec, httptest.NewRequest("POST", "/v1/media", strings.NewReader(`{"path":"  "}`)))
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), "path is required")
}

func TestLookupMediaRequiresPath(t *testing.T) {
	h := &Handler{logger: zap.NewNop()}

	rec := httptest.NewRecorder()
	h.LookupMedia(rec, httptest.NewRequest("GET", "/v1/media", nil))
	assert.Equal(t, 400, rec.Code)
}

func TestSegmentContentType(t *testing.T) {
	assert.Equal(t, "video/mp2t", segmentContentType(".ts"))
	assert.Equal(t, "video/webm", segmentContentType(".webm"))
	assert.Equal(t, "video/mp4", segmentContentType(".mp4"))
}

func TestDirectContentType(t *testing.T) {
	video := &streamSession{
		job:     &domain.Job{Type: domain.JobTypeVideo},
		profile: &domain.TranscodeProfile{AudioCodec: domain.CodecAAC},
	}
	assert.Equal(t, "video/x-matroska", directContentType(video))

	audio := &streamSession{
		job:     &domain.Job{Type: domain.JobTypeAudio},
		profile: &domain.TranscodeProfile{AudioCodec: domain.CodecFLAC},
	}
	assert.Equal(t, "audio/flac", directContentType(audio))

	audio.profile.AudioCodec = domain.CodecEAC3
	assert.Equal(t, "audio/ac3", directContentType(audio))
}

func TestContainerContentType(t *testing.T) {
	assert.Equal(t, "video/x-matroska", containerContentType("mkv"))
	assert.Equal(t, "audio/mpeg", containerContentType("mp3"))
	assert.Equal(t, "application/octet-stream", containerContentType("iso"))
}
