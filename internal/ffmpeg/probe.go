package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tvoe/mediaserver/internal/domain"
)

// Prober extracts source metadata from media files.
type Prober struct {
	ffprobePath string
}

// NewProber creates a new prober.
func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath}
}

// Probe inspects a media file and returns its element snapshot. The returned
// element has no ID; the metadata store assigns one on insert.
func (p *Prober) Probe(ctx context.Context, inputPath string) (*domain.MediaElement, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probeData probeOutput
	if err := json.Unmarshal(output, &probeData); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return p.parseProbeOutput(inputPath, &probeData)
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

type probeStream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Profile     string            `json:"profile"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	RFrameRate  string            `json:"r_frame_rate"`
	BitRate     string            `json:"bit_rate"`
	Channels    int               `json:"channels"`
	SampleRate  string            `json:"sample_rate"`
	Tags        map[string]string `json:"tags"`
	Disposition map[string]int    `json:"disposition"`
}

func (p *Prober) parseProbeOutput(path string, data *probeOutput) (*domain.MediaElement, error) {
	element := &domain.MediaElement{
		Path:      path,
		Type:      domain.MediaTypeAudio,
		Container: normalizeContainer(data.Format.FormatName),
	}

	if duration, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil {
		element.Duration = time.Duration(duration * float64(time.Second))
	}
	if bitrate, err := strconv.ParseInt(data.Format.BitRate, 10, 64); err == nil {
		element.Bitrate = bitrate
	}

	audioIndex := 0
	subtitleIndex := 0
	for _, stream := range data.Streams {
		switch stream.CodecType {
		case "video":
			if element.Video != nil {
				continue
			}
			element.Type = domain.MediaTypeVideo
			video := &domain.VideoStream{
				Codec:     domain.ParseVideoCodec(stream.CodecName, stream.Profile),
				Width:     stream.Width,
				Height:    stream.Height,
				FrameRate: parseFrameRate(stream.RFrameRate),
			}
			if br, err := strconv.ParseInt(stream.BitRate, 10, 64); err == nil {
				video.Bitrate = br
			}
			element.Video = video
		case "audio":
			track := domain.AudioStream{
				Index:    audioIndex,
				Codec:    domain.ParseAudioCodec(stream.CodecName),
				Language: getLanguage(stream.Tags),
				Channels: stream.Channels,
			}
			if sr, err := strconv.Atoi(stream.SampleRate); err == nil {
				track.SampleRate = sr
			}
			if br, err := strconv.ParseInt(stream.BitRate, 10, 64); err == nil {
				track.Bitrate = br
			}
			element.Audio = append(element.Audio, track)
			audioIndex++
		case "subtitle":
			element.Subtitles = append(element.Subtitles, domain.SubtitleStream{
				Index:    subtitleIndex,
				Codec:    domain.ParseSubtitleCodec(stream.CodecName),
				Language: getLanguage(stream.Tags),
				Forced:   stream.Disposition["forced"] == 1,
			})
			subtitleIndex++
		}
	}

	element.Lossless = losslessSource(element)

	return element, nil
}

// losslessSource reports whether every audio stream carries lossless samples.
func losslessSource(element *domain.MediaElement) bool {
	if len(element.Audio) == 0 {
		return false
	}
	for _, a := range element.Audio {
		if !a.Codec.Lossless() {
			return false
		}
	}
	return true
}

func parseFrameRate(rate string) float64 {
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func getLanguage(tags map[string]string) string {
	if lang, ok := tags["language"]; ok {
		return lang
	}
	return "und"
}

func normalizeContainer(format string) string {
	formats := strings.Split(format, ",")
	if len(formats) > 0 {
		f := formats[0]
		switch f {
		case "matroska", "webm":
			return "mkv"
		default:
			return f
		}
	}
	return format
}
