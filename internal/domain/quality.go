package domain

import "strings"

// Quality is a bounded video quality tier. Tiers order from lowest to
// highest; QualityOriginal means "whatever the source is".
type Quality int

const (
	Quality240p Quality = iota
	Quality360p
	Quality480p
	Quality720p
	Quality1080p
	Quality2160p
	QualityOriginal
)

var qualityNames = map[Quality]string{
	Quality240p:     "240p",
	Quality360p:     "360p",
	Quality480p:     "480p",
	Quality720p:     "720p",
	Quality1080p:    "1080p",
	Quality2160p:    "2160p",
	QualityOriginal: "original",
}

func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return "original"
}

// ParseQuality maps a tier name to a Quality, defaulting to QualityOriginal.
func ParseQuality(s string) Quality {
	for q, name := range qualityNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return q
		}
	}
	return QualityOriginal
}

// Dimensions returns the target frame size for the tier. QualityOriginal
// returns zeros, meaning no scaling.
func (q Quality) Dimensions() (width, height int) {
	switch q {
	case Quality240p:
		return 426, 240
	case Quality360p:
		return 640, 360
	case Quality480p:
		return 854, 480
	case Quality720p:
		return 1280, 720
	case Quality1080p:
		return 1920, 1080
	case Quality2160p:
		return 3840, 2160
	default:
		return 0, 0
	}
}

// VideoBitrate returns the target video bitrate in kbit/s for the tier.
// QualityOriginal returns 0, meaning no bitrate cap.
func (q Quality) VideoBitrate() int {
	switch q {
	case Quality240p:
		return 400
	case Quality360p:
		return 800
	case Quality480p:
		return 1500
	case Quality720p:
		return 3000
	case Quality1080p:
		return 6000
	case Quality2160p:
		return 15000
	default:
		return 0
	}
}

// Clamp bounds the tier to max.
func (q Quality) Clamp(max Quality) Quality {
	if q > max {
		return max
	}
	return q
}

// QualityForHeight returns the highest tier whose frame height does not
// exceed the source height. Sources below 240p still map to the lowest tier.
func QualityForHeight(height int) Quality {
	if height <= 0 {
		return QualityOriginal
	}
	for q := Quality2160p; q > Quality240p; q-- {
		if _, h := q.Dimensions(); height >= h {
			return q
		}
	}
	return Quality240p
}

// AudioQuality is a bounded audio quality tier.
type AudioQuality int

const (
	AudioQualityLow AudioQuality = iota
	AudioQualityMedium
	AudioQualityHigh
	AudioQualityLossless
)

// AudioQuality derives the default audio tier from the video tier: lower
// video quality implies lower default audio quality.
func (q Quality) AudioQuality() AudioQuality {
	switch {
	case q <= Quality360p:
		return AudioQualityLow
	case q <= Quality720p:
		return AudioQualityMedium
	default:
		return AudioQualityHigh
	}
}

// Bitrate returns the target audio bitrate in kbit/s for the tier, branching
// on the stereo and multichannel bitrate tables of the selected codec.
func (aq AudioQuality) Bitrate(codec Codec, channels int) int {
	multichannel := channels > 2
	switch codec {
	case CodecEAC3, CodecAC3:
		if multichannel {
			switch aq {
			case AudioQualityLow:
				return 384
			case AudioQualityMedium:
				return 448
			default:
				return 640
			}
		}
		return 192
	case CodecFLAC:
		// Lossless: no target bitrate.
		return 0
	default: // AAC and friends
		if multichannel {
			switch aq {
			case AudioQualityLow:
				return 256
			case AudioQualityMedium:
				return 384
			default:
				return 512
			}
		}
		switch aq {
		case AudioQualityLow:
			return 96
		case AudioQualityMedium:
			return 160
		default:
			return 256
		}
	}
}

// MaxSampleRate returns the highest sample rate the tier allows.
func (aq AudioQuality) MaxSampleRate() int {
	if aq == AudioQualityLossless {
		return 192000
	}
	return 48000
}
