// Package profile resolves client hints and negotiated codecs into a
// complete, self-consistent transcode profile.
package profile

import (
	"time"

	"go.uber.org/zap"

	"github.com/tvoe/mediaserver/internal/domain"
)

// Hints carries the per-request inputs to profile resolution: the bound
// client, its declared codecs, the negotiated output codecs and optional
// track and quality selections. Track values of -1 mean unset.
type Hints struct {
	Client       domain.Client
	ClientCodecs domain.CodecSet

	VideoCodec domain.Codec
	AudioCodec domain.Codec

	Quality       domain.Quality
	AudioTrack    int
	SubtitleTrack int

	// Multichannel enables multichannel output when the source has more than
	// two channels.
	Multichannel bool

	// SupportedSubtitles is the target's subtitle codec set.
	SupportedSubtitles domain.CodecSet

	// Adaptive streaming only.
	SegmentDuration time.Duration
	SegmentOffset   int
}

// Resolver turns a media element plus hints into a TranscodeProfile.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve applies the resolution rules in order. It is deterministic and
// performs no I/O beyond reading the element.
func (r *Resolver) Resolve(element *domain.MediaElement, hints Hints) (*domain.TranscodeProfile, error) {
	if element == nil || hints.ClientCodecs == nil {
		return nil, domain.ErrInsufficientData
	}

	// Quality starts at the requested tier so audio-only elements keep it;
	// resolveVideo re-derives it against the source when video is present.
	p := &domain.TranscodeProfile{
		Client:          hints.Client,
		VideoCodec:      hints.VideoCodec,
		AudioCodec:      hints.AudioCodec,
		Quality:         hints.Quality,
		AudioTrack:      -1,
		SubtitleTrack:   -1,
		SegmentDuration: hints.SegmentDuration,
		SegmentOffset:   hints.SegmentOffset,
	}

	r.resolveVideo(element, hints, p)
	r.resolveSubtitle(element, hints, p)
	r.resolveAudio(element, hints, p)

	return p, nil
}

func (r *Resolver) resolveVideo(element *domain.MediaElement, hints Hints, p *domain.TranscodeProfile) {
	if element.Video == nil {
		return
	}
	src := element.Video
	p.SourceVideoCodec = src.Codec

	// Never exceed the source's own tier. An original-quality request stays
	// original: no scaling and no bitrate cap.
	sourceTier := domain.QualityForHeight(src.Height)
	if hints.Quality == domain.QualityOriginal || sourceTier == domain.QualityOriginal {
		p.Quality = domain.QualityOriginal
	} else {
		p.Quality = hints.Quality.Clamp(sourceTier)
	}

	if p.Quality != domain.QualityOriginal {
		_, targetHeight := p.Quality.Dimensions()
		p.Width, p.Height = scaleToHeight(src.Width, src.Height, targetHeight)
		p.VideoBitrate = p.Quality.VideoBitrate()
	}

	p.VideoTranscodeRequired = p.VideoCodec != src.Codec ||
		(p.VideoBitrate > 0 && (src.Bitrate == 0 || src.Bitrate > int64(p.VideoBitrate)*1000)) ||
		(p.Height > 0 && src.Height > p.Height)
}

func (r *Resolver) resolveSubtitle(element *domain.MediaElement, hints Hints, p *domain.TranscodeProfile) {
	track := hints.SubtitleTrack
	if track < 0 {
		track = element.ForcedSubtitle()
	}
	if track < 0 {
		return
	}
	stream, ok := element.SubtitleStreamAt(track)
	if !ok || !hints.SupportedSubtitles.Has(stream.Codec) {
		if r.logger != nil {
			r.logger.Debug("subtitle track rejected",
				zap.Int("track", track),
				zap.Int64("mediaId", element.ID))
		}
		return
	}
	p.SubtitleTrack = track
}

func (r *Resolver) resolveAudio(element *domain.MediaElement, hints Hints, p *domain.TranscodeProfile) {
	if len(element.Audio) == 0 {
		return
	}

	track := hints.AudioTrack
	if track < 0 {
		track = 0
	}
	stream, ok := element.AudioStreamAt(track)
	if !ok {
		stream, ok = element.AudioStreamAt(0)
		if !ok {
			return
		}
		track = 0
	}
	p.AudioTrack = track
	p.SourceAudioCodec = stream.Codec

	p.AudioQuality = p.Quality.AudioQuality()
	if element.Lossless && p.AudioCodec.Lossless() {
		p.AudioQuality = domain.AudioQualityLossless
	}

	if hints.Multichannel && stream.Channels > 2 {
		p.MaxChannels = 8
	} else {
		p.MaxChannels = 2
	}
	p.MaxSampleRate = p.AudioQuality.MaxSampleRate()
	p.AudioBitrate = p.AudioQuality.Bitrate(p.AudioCodec, minInt(stream.Channels, p.MaxChannels))

	lossy := !p.AudioCodec.Lossless()
	p.AudioTranscodeRequired = p.AudioCodec != stream.Codec ||
		stream.SampleRate == 0 || stream.SampleRate > p.MaxSampleRate ||
		stream.Channels > p.MaxChannels ||
		(lossy && (stream.Bitrate == 0 || stream.Bitrate > int64(p.AudioBitrate)*1000))
}

// scaleToHeight computes the target frame size for a height, preserving the
// source aspect ratio and keeping both dimensions even.
func scaleToHeight(srcWidth, srcHeight, targetHeight int) (int, int) {
	if srcHeight <= 0 || srcWidth <= 0 {
		return 0, targetHeight
	}
	width := srcWidth * targetHeight / srcHeight
	if width%2 != 0 {
		width++
	}
	if targetHeight%2 != 0 {
		targetHeight++
	}
	return width, targetHeight
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
