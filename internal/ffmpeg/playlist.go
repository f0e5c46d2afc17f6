package ffmpeg

import (
	"fmt"
	"strings"
	"time"
)

// PlaylistParams describe one adaptive session for manifest generation.
type PlaylistParams struct {
	Duration        time.Duration
	SegmentDuration time.Duration
	SegmentExt      string
	Bandwidth       int // bit/s
	Width           int
	Height          int
	VideoCodecAttr  string // RFC 6381 codec string, e.g. "avc1.640028"
	AudioCodecAttr  string // e.g. "mp4a.40.2"
	InitSegment     string // fMP4 init segment name, empty for TS
}

// SegmentCount returns the number of segments the session spans.
func (p PlaylistParams) SegmentCount() int {
	if p.SegmentDuration <= 0 {
		return 0
	}
	n := int(p.Duration / p.SegmentDuration)
	if p.Duration%p.SegmentDuration > 0 {
		n++
	}
	return n
}

// GenerateHLSPlaylist generates a VOD media playlist enumerating every
// segment of the session.
func GenerateHLSPlaylist(params PlaylistParams) string {
	var sb strings.Builder
	seconds := int(params.SegmentDuration.Seconds())

	sb.WriteString("#EXTM3U\n")
	sb.WriteString("#EXT-X-VERSION:7\n")
	sb.WriteString(fmt.Sprintf("#EXT-X-TARGETDURATION:%d\n", seconds))
	sb.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	sb.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")
	if params.InitSegment != "" {
		sb.WriteString(fmt.Sprintf("#EXT-X-MAP:URI=\"%s\"\n", params.InitSegment))
	}

	count := params.SegmentCount()
	remaining := params.Duration
	for i := 0; i < count; i++ {
		segDuration := params.SegmentDuration
		if remaining < segDuration {
			segDuration = remaining
		}
		sb.WriteString(fmt.Sprintf("#EXTINF:%.3f,\n", segDuration.Seconds()))
		sb.WriteString(fmt.Sprintf(SegmentFilePattern+"%s\n", i, params.SegmentExt))
		remaining -= segDuration
	}

	sb.WriteString("#EXT-X-ENDLIST\n")
	return sb.String()
}

// GenerateDASHManifest generates a static MPD for the session with a single
// video and audio representation.
func GenerateDASHManifest(params PlaylistParams) string {
	var sb strings.Builder

	durationISO := formatDuration(params.Duration)
	segMillis := params.SegmentDuration.Milliseconds()
	mediaTemplate := SegmentFilePattern + params.SegmentExt
	mediaTemplate = strings.Replace(mediaTemplate, "%05d", "$Number%05d$", 1)

	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(`<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" `+
		`profiles="urn:mpeg:dash:profile:isoff-live:2011" `+
		`type="static" `+
		`mediaPresentationDuration="%s" `+
		`minBufferTime="PT2S">`, durationISO))
	sb.WriteString("\n")
	sb.WriteString("  <Period>\n")

	sb.WriteString(`    <AdaptationSet mimeType="video/mp4" segmentAlignment="true" startWithSAP="1">`)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(`      <Representation id="video" bandwidth="%d" width="%d" height="%d" codecs="%s">`,
		params.Bandwidth, params.Width, params.Height, params.VideoCodecAttr))
	sb.WriteString("\n")
	if params.InitSegment != "" {
		sb.WriteString(fmt.Sprintf(`        <SegmentTemplate timescale="1000" duration="%d" initialization="%s" media="%s" startNumber="0"/>`,
			segMillis, params.InitSegment, mediaTemplate))
	} else {
		sb.WriteString(fmt.Sprintf(`        <SegmentTemplate timescale="1000" duration="%d" media="%s" startNumber="0"/>`,
			segMillis, mediaTemplate))
	}
	sb.WriteString("\n")
	sb.WriteString("      </Representation>\n")
	sb.WriteString("    </AdaptationSet>\n")

	if params.AudioCodecAttr != "" {
		sb.WriteString(`    <AdaptationSet mimeType="audio/mp4" segmentAlignment="true" startWithSAP="1" lang="und">`)
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf(`      <Representation id="audio" bandwidth="128000" codecs="%s" audioSamplingRate="48000">`,
			params.AudioCodecAttr))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf(`        <SegmentTemplate timescale="1000" duration="%d" media="%s" startNumber="0"/>`,
			segMillis, mediaTemplate))
		sb.WriteString("\n")
		sb.WriteString("      </Representation>\n")
		sb.WriteString("    </AdaptationSet>\n")
	}

	sb.WriteString("  </Period>\n")
	sb.WriteString("</MPD>\n")

	return sb.String()
}

// formatDuration converts a Go duration to ISO 8601 duration format.
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := d.Seconds() - float64(hours*3600) - float64(minutes*60)

	if hours > 0 {
		return fmt.Sprintf("PT%dH%dM%.3fS", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("PT%dM%.3fS", minutes, seconds)
	}
	return fmt.Sprintf("PT%.3fS", seconds)
}
