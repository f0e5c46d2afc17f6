// Package capability holds the static codec capability tables per delivery
// target and the negotiation logic that intersects them with source and
// client codec sets.
package capability

import "github.com/tvoe/mediaserver/internal/domain"

// Table describes what one delivery target can carry. Tables are immutable;
// client binding produces a specialized copy via ForClient.
type Table struct {
	Target string

	// VideoPreference is the fixed best-to-worst selection order. Every codec
	// in it is also in Video.
	VideoPreference []domain.Codec

	Video     domain.CodecSet
	Audio     domain.CodecSet
	Subtitles domain.CodecSet

	// AudioPreference drives the single-codec selection branch.
	AudioPreference []domain.Codec

	// AllowLossless enables the FLAC pass-through path. Intentionally set on
	// some targets and not others; the asymmetry is per-target policy.
	AllowLossless bool

	// SingleAudioCodec forces one audio codec for the whole session,
	// ignoring channel count.
	SingleAudioCodec bool

	// StrictAudio constrains audio selection to whichever of EAC3/AC3/AAC
	// the client supports, overriding the multichannel branching.
	StrictAudio bool

	Client domain.Client
}

// HLSTable is the fMP4 HLS target. The lossless path is enabled here.
func HLSTable() Table {
	return Table{
		Target: "hls",
		VideoPreference: []domain.Codec{
			domain.CodecHEVCMain,
			domain.CodecAVCHigh,
			domain.CodecAVCMain,
			domain.CodecAVCBaseline,
		},
		Video: domain.NewCodecSet(
			domain.CodecHEVCMain,
			domain.CodecAVCHigh,
			domain.CodecAVCMain,
			domain.CodecAVCBaseline,
		),
		Audio: domain.NewCodecSet(
			domain.CodecAAC,
			domain.CodecAC3,
			domain.CodecEAC3,
			domain.CodecFLAC,
		),
		Subtitles: domain.NewCodecSet(
			domain.CodecWebVTT,
			domain.CodecSubRip,
		),
		AudioPreference: []domain.Codec{
			domain.CodecEAC3,
			domain.CodecAC3,
			domain.CodecAAC,
		},
		AllowLossless: true,
	}
}

// MPEGTSTable is the legacy transport-stream HLS target. It carries the same
// codec matrix as HLSTable but without the lossless path.
func MPEGTSTable() Table {
	t := HLSTable()
	t.Target = "mpegts"
	t.Audio = domain.NewCodecSet(
		domain.CodecAAC,
		domain.CodecAC3,
		domain.CodecEAC3,
	)
	t.AllowLossless = false
	return t
}

// DASHTable is the DASH target.
func DASHTable() Table {
	return Table{
		Target: "dash",
		VideoPreference: []domain.Codec{
			domain.CodecHEVCMain,
			domain.CodecAVCHigh,
			domain.CodecAVCMain,
			domain.CodecAVCBaseline,
		},
		Video: domain.NewCodecSet(
			domain.CodecHEVCMain,
			domain.CodecAVCHigh,
			domain.CodecAVCMain,
			domain.CodecAVCBaseline,
		),
		Audio: domain.NewCodecSet(
			domain.CodecAAC,
			domain.CodecAC3,
			domain.CodecEAC3,
			domain.CodecVorbis,
		),
		Subtitles: domain.NewCodecSet(
			domain.CodecWebVTT,
		),
		AudioPreference: []domain.Codec{
			domain.CodecEAC3,
			domain.CodecAC3,
			domain.CodecAAC,
		},
	}
}

// AudioTable is the direct audio stream target.
func AudioTable() Table {
	return Table{
		Target: "audio",
		Audio: domain.NewCodecSet(
			domain.CodecAAC,
			domain.CodecMP3,
			domain.CodecFLAC,
			domain.CodecVorbis,
		),
		AudioPreference: []domain.Codec{
			domain.CodecAAC,
			domain.CodecMP3,
		},
		AllowLossless: true,
	}
}

// ForClient returns a copy of the table specialized for the given client.
// This is the one-time table specialization step performed when the client
// identity is bound; the receiver is never mutated.
func (t Table) ForClient(client domain.Client) Table {
	out := t
	out.Client = client
	out.Video = t.Video.Clone()
	out.Audio = t.Audio.Clone()
	out.Subtitles = t.Subtitles.Clone()
	out.VideoPreference = append([]domain.Codec(nil), t.VideoPreference...)
	out.AudioPreference = append([]domain.Codec(nil), t.AudioPreference...)

	switch client {
	case domain.ClientKodi:
		out.Audio.Add(domain.CodecFLAC)
		out.AllowLossless = true
	case domain.ClientChromecast:
		// Chromecast sessions cannot switch audio codecs mid-stream and the
		// device line does not decode HEVC reliably.
		out.SingleAudioCodec = true
		for _, c := range []domain.Codec{domain.CodecHEVCMain, domain.CodecHEVCMain10, domain.CodecHEVCHDR10} {
			out.Video.Remove(c)
		}
		pref := out.VideoPreference[:0]
		for _, c := range t.VideoPreference {
			if out.Video.Has(c) {
				pref = append(pref, c)
			}
		}
		out.VideoPreference = pref
		if t.Target == "dash" {
			out.StrictAudio = true
		}
	}
	return out
}
