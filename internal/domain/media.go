package domain

import "time"

// MediaType classifies a media element.
type MediaType string

const (
	MediaTypeAudio     MediaType = "audio"
	MediaTypeVideo     MediaType = "video"
	MediaTypeDirectory MediaType = "directory"
)

// VideoStream describes the video stream of a source file.
type VideoStream struct {
	Codec     Codec   `json:"codec"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Bitrate   int64   `json:"bitrate"`
	FrameRate float64 `json:"frameRate"`
}

// AudioStream describes one audio stream of a source file. Index is the
// position within the element's audio streams, not the ffmpeg global stream
// index.
type AudioStream struct {
	Index      int    `json:"index"`
	Codec      Codec  `json:"codec"`
	Language   string `json:"language"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sampleRate"`
	Bitrate    int64  `json:"bitrate"`
}

// SubtitleStream describes one subtitle stream of a source file.
type SubtitleStream struct {
	Index    int    `json:"index"`
	Codec    Codec  `json:"codec"`
	Language string `json:"language"`
	Forced   bool   `json:"forced"`
}

// MediaElement is an immutable snapshot of one source file or directory for
// the duration of a single negotiation. It is owned by the metadata store and
// passed by reference into the pipeline.
type MediaElement struct {
	ID        int64            `json:"id" db:"id"`
	Path      string           `json:"path" db:"path"`
	Type      MediaType        `json:"type" db:"type"`
	Container string           `json:"container" db:"container"`
	Duration  time.Duration    `json:"duration" db:"duration"`
	Bitrate   int64            `json:"bitrate" db:"bitrate"`
	Video     *VideoStream     `json:"video,omitempty"`
	Audio     []AudioStream    `json:"audio,omitempty"`
	Subtitles []SubtitleStream `json:"subtitles,omitempty"`

	// Lossless is set when the source carries lossless audio end to end.
	Lossless bool `json:"lossless" db:"lossless"`
}

// AudioStreamAt returns the audio stream with the given index.
func (m *MediaElement) AudioStreamAt(index int) (*AudioStream, bool) {
	for i := range m.Audio {
		if m.Audio[i].Index == index {
			return &m.Audio[i], true
		}
	}
	return nil, false
}

// SubtitleStreamAt returns the subtitle stream with the given index.
func (m *MediaElement) SubtitleStreamAt(index int) (*SubtitleStream, bool) {
	for i := range m.Subtitles {
		if m.Subtitles[i].Index == index {
			return &m.Subtitles[i], true
		}
	}
	return nil, false
}

// ForcedSubtitle returns the index of the first forced subtitle stream,
// or -1 when the element has none.
func (m *MediaElement) ForcedSubtitle() int {
	for _, s := range m.Subtitles {
		if s.Forced {
			return s.Index
		}
	}
	return -1
}

// SourceCodecs collects the codecs present in the element across all streams.
func (m *MediaElement) SourceCodecs() CodecSet {
	set := NewCodecSet()
	if m.Video != nil {
		set.Add(m.Video.Codec)
	}
	for _, a := range m.Audio {
		set.Add(a.Codec)
	}
	for _, s := range m.Subtitles {
		set.Add(s.Codec)
	}
	return set
}
