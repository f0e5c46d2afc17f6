package domain

import "time"

// TranscodeProfile is the resolved per-request encoding decision. It is
// created fresh for each request, mutated only during the single resolution
// pass, then handed frozen to the command builder.
type TranscodeProfile struct {
	Client Client `json:"client"`

	// Selected output codecs. CodecCopy means pass-through.
	VideoCodec Codec `json:"videoCodec"`
	AudioCodec Codec `json:"audioCodec"`

	// Source codecs the selection was made against.
	SourceVideoCodec Codec `json:"sourceVideoCodec"`
	SourceAudioCodec Codec `json:"sourceAudioCodec"`

	Quality      Quality      `json:"quality"`
	AudioQuality AudioQuality `json:"audioQuality"`

	// Target frame size, zero when no scaling applies.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Target bitrates in kbit/s, zero when uncapped.
	VideoBitrate int `json:"videoBitrate"`
	AudioBitrate int `json:"audioBitrate"`

	MaxChannels   int `json:"maxChannels"`
	MaxSampleRate int `json:"maxSampleRate"`

	// Selected track indices, -1 when no track is selected.
	AudioTrack    int `json:"audioTrack"`
	SubtitleTrack int `json:"subtitleTrack"`

	VideoTranscodeRequired bool `json:"videoTranscodeRequired"`
	AudioTranscodeRequired bool `json:"audioTranscodeRequired"`

	// Adaptive streaming only.
	SegmentDuration time.Duration `json:"segmentDuration,omitempty"`
	SegmentOffset   int           `json:"segmentOffset,omitempty"`
	WorkDir         string        `json:"-"`
}

// SeekOffset is the input seek position implied by the segment offset.
func (p *TranscodeProfile) SeekOffset() time.Duration {
	return p.SegmentDuration * time.Duration(p.SegmentOffset)
}

// TranscodeRequired reports whether any stream needs re-encoding.
func (p *TranscodeProfile) TranscodeRequired() bool {
	return p.VideoTranscodeRequired || p.AudioTranscodeRequired
}
