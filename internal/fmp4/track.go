package fmp4

// TrackKind distinguishes the handler and header boxes a track needs.
type TrackKind int

const (
	TrackVideo TrackKind = iota
	TrackAudio
)

// EditEntry is one edit-list entry in movie-timescale units.
type EditEntry struct {
	Duration  uint64
	MediaTime int64
}

// TrackInfo carries the static metadata of a single elementary stream. It is
// the sole input to init-segment construction and supplies fragment defaults.
type TrackInfo struct {
	ID        uint32
	Kind      TrackKind
	Timescale uint32

	// Video geometry; zero for audio tracks.
	Width  uint16
	Height uint16

	// Audio parameters; zero for video tracks.
	SampleRate   uint32
	ChannelCount uint16

	// SampleEntry is the four-character sample description type, e.g.
	// "avc1", "hvc1", or "mp4a".
	SampleEntry string

	// CodecData is the raw decoder configuration record placed inside the
	// codec config box (avcC, hvcC, or esds payload).
	CodecData []byte

	DefaultSampleDuration uint32
	DefaultSampleSize     uint32
	DefaultSampleFlags    uint32

	// FirstSampleFlags, when non-zero, overrides the flags of the first
	// sample of every track run, marking it as the sync sample of the
	// fragment.
	FirstSampleFlags uint32

	EditList []EditEntry
}

// baseDecodeTime derives the fragment base media decode time from the edit
// list: the first non-empty edit's media time, zero when no list is present.
func (t *TrackInfo) baseDecodeTime() uint64 {
	for _, e := range t.EditList {
		if e.MediaTime >= 0 {
			return uint64(e.MediaTime)
		}
	}
	return 0
}

// configBoxType maps a sample entry type to its codec config child box type.
func configBoxType(sampleEntry string) string {
	switch sampleEntry {
	case "avc1", "avc3":
		return "avcC"
	case "hvc1", "hev1":
		return "hvcC"
	case "mp4a":
		return "esds"
	default:
		return ""
	}
}

// Sample is one encoded access unit inside a media segment.
type Sample struct {
	Data     []byte
	Duration uint32

	// CompositionOffset shifts presentation time relative to decode time,
	// in track timescale units. Non-zero for reordered video frames.
	CompositionOffset int32
}
