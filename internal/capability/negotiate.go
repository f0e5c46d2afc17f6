package capability

import "github.com/tvoe/mediaserver/internal/domain"

// NegotiateVideo selects the output video codec. It walks the table's
// preference order and returns the first codec present in the source set, the
// client-declared set and, when hardware negotiation is requested, the
// hardware-supported set. CodecUnsupported when nothing matches.
func NegotiateVideo(source, client domain.CodecSet, table Table, hardware domain.CodecSet) domain.Codec {
	for _, c := range table.VideoPreference {
		if !table.Video.Has(c) {
			continue
		}
		if !source.Has(c) || !client.Has(c) {
			continue
		}
		if hardware != nil && !hardware.Has(c) {
			continue
		}
		return c
	}
	return domain.CodecUnsupported
}

// NegotiateAudio selects the output audio codec for the element against the
// client-declared set and the bound table.
func NegotiateAudio(element *domain.MediaElement, client domain.CodecSet, table Table) domain.Codec {
	if table.StrictAudio {
		return pickFirst(table.AudioPreference, client, table.Audio)
	}

	if table.SingleAudioCodec {
		// One codec for the whole session, channel count ignored.
		return pickFirst(table.AudioPreference, client, table.Audio)
	}

	channels := sourceChannels(element)

	if table.AllowLossless && element != nil && element.Lossless &&
		hasSourceCodec(element, domain.CodecFLAC) &&
		client.Has(domain.CodecFLAC) && table.Audio.Has(domain.CodecFLAC) {
		return domain.CodecFLAC
	}

	if channels > 2 {
		for _, c := range []domain.Codec{domain.CodecEAC3, domain.CodecAC3} {
			if client.Has(c) && table.Audio.Has(c) {
				return c
			}
		}
	}

	if client.Has(domain.CodecAAC) && table.Audio.Has(domain.CodecAAC) {
		return domain.CodecAAC
	}
	return domain.CodecUnsupported
}

// Negotiate combines video and audio selection for one request.
func Negotiate(element *domain.MediaElement, client domain.CodecSet, table Table, hardware domain.CodecSet) (video, audio domain.Codec) {
	source := domain.NewCodecSet()
	if element != nil {
		source = element.SourceCodecs()
	}
	video = NegotiateVideo(source, client, table, hardware)
	audio = NegotiateAudio(element, client, table)
	return video, audio
}

func pickFirst(preference []domain.Codec, client, allowed domain.CodecSet) domain.Codec {
	for _, c := range preference {
		if client.Has(c) && allowed.Has(c) {
			return c
		}
	}
	return domain.CodecUnsupported
}

func sourceChannels(element *domain.MediaElement) int {
	if element == nil || len(element.Audio) == 0 {
		return 0
	}
	channels := 0
	for _, a := range element.Audio {
		if a.Channels > channels {
			channels = a.Channels
		}
	}
	return channels
}

func hasSourceCodec(element *domain.MediaElement, codec domain.Codec) bool {
	for _, a := range element.Audio {
		if a.Codec == codec {
			return true
		}
	}
	return false
}
