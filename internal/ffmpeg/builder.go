// Package ffmpeg builds encoder invocations and extracts source metadata.
package ffmpeg

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/tvoe/mediaserver/internal/domain"
)

// SegmentFilePattern is the output template for adaptive segment files,
// relative to the job working directory.
const SegmentFilePattern = "stream%05d"

// CommandBuilder turns resolved transcode profiles into ordered ffmpeg
// argument vectors. The first element of every returned vector is the
// encoder executable path; no shell interpretation is applied.
type CommandBuilder struct {
	ffmpegPath string
}

// NewCommandBuilder creates a command builder.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{ffmpegPath: ffmpegPath}
}

// BuildHLSCommand builds the segmenting command for an adaptive HLS job.
// Segments are written as MPEG-TS files into the profile's working directory.
func (b *CommandBuilder) BuildHLSCommand(element *domain.MediaElement, p *domain.TranscodeProfile) []string {
	if element == nil || p == nil || p.AudioTrack < 0 && element.Video == nil {
		return nil
	}

	args := b.inputArgs(element, p.SeekOffset())
	args = append(args, b.mappingArgs(element, p)...)
	args = append(args, b.videoArgs(p)...)
	args = append(args, b.audioArgs(p)...)
	args = append(args, b.segmentArgs(p, "mpegts", ".ts")...)
	return args
}

// DASHContainer selects the segment container for a DASH profile.
type DASHContainer string

const (
	DASHContainerMPEGTS DASHContainer = "mpegts"
	DASHContainerWebM   DASHContainer = "webm"
	DASHContainerMP4    DASHContainer = "mp4"
)

// BuildDASHCommand builds the segmenting command for an adaptive DASH job.
// The bitstream filter applies only to the MPEG-TS container variant.
func (b *CommandBuilder) BuildDASHCommand(element *domain.MediaElement, p *domain.TranscodeProfile, container DASHContainer) []string {
	if element == nil || p == nil {
		return nil
	}

	args := b.inputArgs(element, p.SeekOffset())
	args = append(args, b.mappingArgs(element, p)...)
	args = append(args, b.videoArgs(p)...)
	args = append(args, b.audioArgs(p)...)

	ext := ".mp4"
	switch container {
	case DASHContainerMPEGTS:
		ext = ".ts"
		if !p.VideoTranscodeRequired {
			args = append(args, "-bsf:v", "h264_mp4toannexb")
		}
	case DASHContainerWebM:
		ext = ".webm"
	}
	args = append(args, b.segmentArgs(p, string(container), ext)...)
	return args
}

// BuildAudioCommand builds a direct audio stream command writing to stdout.
// A nil return signals the caller to abort stream creation.
func (b *CommandBuilder) BuildAudioCommand(element *domain.MediaElement, p *domain.TranscodeProfile, offset time.Duration) []string {
	if element == nil || p == nil || p.AudioTrack < 0 {
		return nil
	}
	if p.AudioCodec == domain.CodecUnsupported {
		return nil
	}

	args := b.inputArgs(element, offset)
	args = append(args, "-vn", "-sn")
	args = append(args, "-map", fmt.Sprintf("0:a:%d", p.AudioTrack))
	args = append(args, b.audioArgs(p)...)

	format := audioStreamFormat(p.AudioCodec)
	if format == "" {
		return nil
	}
	args = append(args, "-f", format, "pipe:1")
	return args
}

// BuildVideoCommand builds a direct video stream command writing a Matroska
// stream to stdout.
func (b *CommandBuilder) BuildVideoCommand(element *domain.MediaElement, p *domain.TranscodeProfile, offset time.Duration) []string {
	if element == nil || p == nil || element.Video == nil {
		return nil
	}
	if p.VideoCodec == domain.CodecUnsupported {
		return nil
	}

	args := b.inputArgs(element, offset)
	args = append(args, b.mappingArgs(element, p)...)
	args = append(args, b.videoArgs(p)...)
	args = append(args, b.audioArgs(p)...)
	args = append(args, "-f", "matroska", "pipe:1")
	return args
}

func (b *CommandBuilder) inputArgs(element *domain.MediaElement, seek time.Duration) []string {
	args := []string{b.ffmpegPath, "-y", "-loglevel", "info", "-nostdin"}
	if seek > 0 {
		args = append(args, "-ss", formatSeek(seek))
	}
	args = append(args, "-i", element.Path)
	return args
}

// mappingArgs disables unused stream kinds and emits explicit -map directives
// when subtitle handling is engaged.
func (b *CommandBuilder) mappingArgs(element *domain.MediaElement, p *domain.TranscodeProfile) []string {
	var args []string
	if p.SubtitleTrack >= 0 {
		args = append(args, "-map", "0:v:0")
		if p.AudioTrack >= 0 {
			args = append(args, "-map", fmt.Sprintf("0:a:%d", p.AudioTrack))
		}
		args = append(args, "-map", fmt.Sprintf("0:s:%d", p.SubtitleTrack))
		args = append(args, "-c:s", "webvtt")
		return args
	}

	args = append(args, "-sn")
	if element.Video != nil {
		args = append(args, "-map", "0:v:0")
	}
	if p.AudioTrack >= 0 {
		args = append(args, "-map", fmt.Sprintf("0:a:%d", p.AudioTrack))
	} else {
		args = append(args, "-an")
	}
	return args
}

func (b *CommandBuilder) videoArgs(p *domain.TranscodeProfile) []string {
	if p.VideoCodec == domain.CodecUnsupported && !p.VideoTranscodeRequired {
		return nil
	}
	if !p.VideoTranscodeRequired {
		return []string{"-c:v", "copy"}
	}

	codec := p.VideoCodec
	if codec == domain.CodecUnsupported || codec == domain.CodecCopy {
		codec = domain.CodecAVCHigh
	}

	args := []string{"-c:v", codec.EncoderName()}
	if profileName := codec.EncoderProfile(); profileName != "" {
		args = append(args, "-profile:v", profileName)
	}
	if p.VideoBitrate > 0 {
		args = append(args,
			"-b:v", fmt.Sprintf("%dk", p.VideoBitrate),
			"-maxrate", fmt.Sprintf("%dk", p.VideoBitrate*4/3),
			"-bufsize", fmt.Sprintf("%dk", p.VideoBitrate*2),
		)
	}
	if p.Width > 0 && p.Height > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", p.Width, p.Height))
	}
	return args
}

func (b *CommandBuilder) audioArgs(p *domain.TranscodeProfile) []string {
	if p.AudioTrack < 0 {
		return nil
	}
	if !p.AudioTranscodeRequired {
		return []string{"-c:a", "copy"}
	}

	codec := p.AudioCodec
	if codec == domain.CodecUnsupported || codec == domain.CodecCopy {
		codec = domain.CodecAAC
	}

	args := []string{"-c:a", codec.EncoderName()}
	if p.AudioBitrate > 0 {
		args = append(args, "-b:a", fmt.Sprintf("%dk", p.AudioBitrate))
	}
	if p.MaxChannels > 0 {
		args = append(args, "-ac", fmt.Sprintf("%d", p.MaxChannels))
	}
	if p.MaxSampleRate > 0 && p.MaxSampleRate <= 48000 {
		args = append(args, "-ar", fmt.Sprintf("%d", p.MaxSampleRate))
	}
	return args
}

// segmentArgs emits the segmenting directives: fixed segment duration,
// numbering start, container format, key frames forced onto segment
// boundaries, and the zero-padded output template.
func (b *CommandBuilder) segmentArgs(p *domain.TranscodeProfile, format, ext string) []string {
	seconds := p.SegmentDuration.Seconds()
	args := []string{
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%.0f", seconds),
		"-segment_start_number", fmt.Sprintf("%d", p.SegmentOffset),
		"-segment_format", format,
	}
	if p.VideoTranscodeRequired {
		args = append(args, "-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%.0f)", seconds))
	}
	args = append(args, filepath.Join(p.WorkDir, SegmentFilePattern+ext))
	return args
}

func audioStreamFormat(codec domain.Codec) string {
	switch codec {
	case domain.CodecAAC:
		return "adts"
	case domain.CodecMP3:
		return "mp3"
	case domain.CodecFLAC:
		return "flac"
	case domain.CodecVorbis:
		return "ogg"
	case domain.CodecAC3, domain.CodecEAC3:
		return "ac3"
	default:
		return ""
	}
}

func formatSeek(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
