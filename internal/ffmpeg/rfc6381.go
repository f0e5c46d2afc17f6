package ffmpeg

import "github.com/tvoe/mediaserver/internal/domain"

// CodecAttr returns the RFC 6381 codecs attribute for playlist and manifest
// generation. Empty for codecs that never appear in adaptive output.
func CodecAttr(codec domain.Codec) string {
	switch codec {
	case domain.CodecAVCBaseline:
		return "avc1.42e01e"
	case domain.CodecAVCMain:
		return "avc1.4d401f"
	case domain.CodecAVCHigh:
		return "avc1.640028"
	case domain.CodecHEVCMain, domain.CodecHEVCMain10, domain.CodecHEVCHDR10:
		return "hvc1.1.6.L120.90"
	case domain.CodecAAC:
		return "mp4a.40.2"
	case domain.CodecAC3:
		return "ac-3"
	case domain.CodecEAC3:
		return "ec-3"
	case domain.CodecFLAC:
		return "fLaC"
	case domain.CodecMP3:
		return "mp4a.40.34"
	case domain.CodecVorbis:
		return "vorbis"
	default:
		return ""
	}
}
