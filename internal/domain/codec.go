package domain

// Codec identifies a single audio, video or subtitle encoding. The zero value
// is CodecUnsupported. Codecs are opaque tags: they are only ever compared and
// selected, never mutated.
type Codec int

const (
	CodecUnsupported Codec = iota

	// CodecCopy marks a stream that is passed through without re-encoding.
	CodecCopy

	// Video codecs
	CodecAVCBaseline
	CodecAVCMain
	CodecAVCHigh
	CodecHEVCMain
	CodecHEVCMain10
	CodecHEVCHDR10
	CodecMPEG2
	CodecVC1

	// Audio codecs
	CodecAAC
	CodecAC3
	CodecEAC3
	CodecDTS
	CodecDTSHD
	CodecPCM
	CodecTrueHD
	CodecMP3
	CodecDSD
	CodecFLAC
	CodecALAC
	CodecVorbis

	// Subtitle codecs
	CodecSubRip
	CodecWebVTT
	CodecPGS
	CodecDVBSub
	CodecDVDSub
)

var codecNames = map[Codec]string{
	CodecUnsupported: "unsupported",
	CodecCopy:        "copy",
	CodecAVCBaseline: "h264_baseline",
	CodecAVCMain:     "h264_main",
	CodecAVCHigh:     "h264_high",
	CodecHEVCMain:    "hevc_main",
	CodecHEVCMain10:  "hevc_main10",
	CodecHEVCHDR10:   "hevc_hdr10",
	CodecMPEG2:       "mpeg2video",
	CodecVC1:         "vc1",
	CodecAAC:         "aac",
	CodecAC3:         "ac3",
	CodecEAC3:        "eac3",
	CodecDTS:         "dts",
	CodecDTSHD:       "dts_hd",
	CodecPCM:         "pcm",
	CodecTrueHD:      "truehd",
	CodecMP3:         "mp3",
	CodecDSD:         "dsd",
	CodecFLAC:        "flac",
	CodecALAC:        "alac",
	CodecVorbis:      "vorbis",
	CodecSubRip:      "subrip",
	CodecWebVTT:      "webvtt",
	CodecPGS:         "hdmv_pgs_subtitle",
	CodecDVBSub:      "dvb_subtitle",
	CodecDVDSub:      "dvd_subtitle",
}

func (c Codec) String() string {
	if name, ok := codecNames[c]; ok {
		return name
	}
	return "unknown"
}

// IsVideo reports whether the codec is a video codec.
func (c Codec) IsVideo() bool {
	return c >= CodecAVCBaseline && c <= CodecVC1
}

// IsAudio reports whether the codec is an audio codec.
func (c Codec) IsAudio() bool {
	return c >= CodecAAC && c <= CodecVorbis
}

// IsSubtitle reports whether the codec is a subtitle codec.
func (c Codec) IsSubtitle() bool {
	return c >= CodecSubRip && c <= CodecDVDSub
}

// Lossless reports whether an audio codec carries lossless or raw samples.
func (c Codec) Lossless() bool {
	switch c {
	case CodecFLAC, CodecALAC, CodecPCM, CodecTrueHD, CodecDTSHD, CodecDSD:
		return true
	default:
		return false
	}
}

// EncoderName returns the ffmpeg encoder used to produce this codec.
// Pass-through and unsupported codecs map to "copy".
func (c Codec) EncoderName() string {
	switch c {
	case CodecAVCBaseline, CodecAVCMain, CodecAVCHigh:
		return "libx264"
	case CodecHEVCMain, CodecHEVCMain10, CodecHEVCHDR10:
		return "libx265"
	case CodecAAC:
		return "aac"
	case CodecAC3:
		return "ac3"
	case CodecEAC3:
		return "eac3"
	case CodecFLAC:
		return "flac"
	case CodecMP3:
		return "libmp3lame"
	case CodecVorbis:
		return "libvorbis"
	case CodecWebVTT:
		return "webvtt"
	case CodecSubRip:
		return "srt"
	default:
		return "copy"
	}
}

// EncoderProfile returns the -profile:v value for AVC/HEVC targets,
// or "" when the encoder takes none.
func (c Codec) EncoderProfile() string {
	switch c {
	case CodecAVCBaseline:
		return "baseline"
	case CodecAVCMain:
		return "main"
	case CodecAVCHigh:
		return "high"
	case CodecHEVCMain:
		return "main"
	case CodecHEVCMain10, CodecHEVCHDR10:
		return "main10"
	default:
		return ""
	}
}

// ParseVideoCodec maps an ffprobe codec name plus profile string to a Codec.
func ParseVideoCodec(name, profile string) Codec {
	switch name {
	case "h264":
		switch profile {
		case "Baseline", "Constrained Baseline":
			return CodecAVCBaseline
		case "Main":
			return CodecAVCMain
		default:
			return CodecAVCHigh
		}
	case "hevc", "h265":
		switch profile {
		case "Main 10":
			return CodecHEVCMain10
		default:
			return CodecHEVCMain
		}
	case "mpeg2video":
		return CodecMPEG2
	case "vc1":
		return CodecVC1
	default:
		return CodecUnsupported
	}
}

// ParseAudioCodec maps an ffprobe codec name to a Codec.
func ParseAudioCodec(name string) Codec {
	switch name {
	case "aac":
		return CodecAAC
	case "ac3":
		return CodecAC3
	case "eac3":
		return CodecEAC3
	case "dts":
		return CodecDTS
	case "dts_hd", "dtshd":
		return CodecDTSHD
	case "truehd":
		return CodecTrueHD
	case "mp3":
		return CodecMP3
	case "flac":
		return CodecFLAC
	case "alac":
		return CodecALAC
	case "vorbis":
		return CodecVorbis
	case "dsd_lsbf", "dsd_msbf", "dsd_lsbf_planar", "dsd_msbf_planar":
		return CodecDSD
	default:
		if len(name) >= 4 && name[:4] == "pcm_" {
			return CodecPCM
		}
		return CodecUnsupported
	}
}

// ParseSubtitleCodec maps an ffprobe codec name to a Codec.
func ParseSubtitleCodec(name string) Codec {
	switch name {
	case "subrip", "srt":
		return CodecSubRip
	case "webvtt":
		return CodecWebVTT
	case "hdmv_pgs_subtitle":
		return CodecPGS
	case "dvb_subtitle":
		return CodecDVBSub
	case "dvd_subtitle":
		return CodecDVDSub
	default:
		return CodecUnsupported
	}
}

// CodecSet is an unordered set of codecs.
type CodecSet map[Codec]struct{}

// NewCodecSet builds a set from the given codecs.
func NewCodecSet(codecs ...Codec) CodecSet {
	s := make(CodecSet, len(codecs))
	for _, c := range codecs {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether c is in the set. A nil set contains nothing.
func (s CodecSet) Has(c Codec) bool {
	_, ok := s[c]
	return ok
}

// Add inserts c into the set.
func (s CodecSet) Add(c Codec) {
	s[c] = struct{}{}
}

// Remove deletes c from the set.
func (s CodecSet) Remove(c Codec) {
	delete(s, c)
}

// Clone returns an independent copy of the set.
func (s CodecSet) Clone() CodecSet {
	out := make(CodecSet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}
