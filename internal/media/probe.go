package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// FileInfo summarises a probed media file. When probing fails only Error
// is set.
type FileInfo struct {
	Path       string     `json:"path,omitempty"`
	Format     string     `json:"format,omitempty"`
	FormatLong string     `json:"format_long_name,omitempty"`
	Duration   float64    `json:"duration,omitempty"`
	Size       int64      `json:"size,omitempty"`
	BitRate    int64      `json:"bit_rate,omitempty"`
	HasVideo   bool       `json:"has_video"`
	HasAudio   bool       `json:"has_audio"`
	Video      *VideoInfo `json:"video,omitempty"`
	Audio      *AudioInfo `json:"audio,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// VideoInfo describes the first video stream.
type VideoInfo struct {
	Codec     string  `json:"codec"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate,omitempty"`
}

// AudioInfo describes the first audio stream.
type AudioInfo struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// Prober inspects a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (*FileInfo, error)
}

// FFprobe implements Prober with the ffprobe executable.
type FFprobe struct {
	// Path is the ffprobe binary; empty means "ffprobe" from PATH.
	Path string
}

func (p FFprobe) bin() string {
	if p.Path != "" {
		return p.Path
	}
	return "ffprobe"
}

// Check verifies the ffprobe binary can be found.
func (p FFprobe) Check() error {
	path, err := exec.LookPath(p.bin())
	if err != nil {
		return fmt.Errorf("ffprobe not found: install FFmpeg with: brew install ffmpeg (macOS) or apt install ffmpeg (Linux)")
	}
	log.Debug().Str("path", path).Msg("ffprobe found")
	return nil
}

// Probe runs ffprobe with JSON output and parses the result.
func (p FFprobe) Probe(ctx context.Context, path string) (*FileInfo, error) {
	log.Debug().Str("path", path).Msg("Probing media file")

	cmd := exec.CommandContext(ctx, p.bin(),
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	info, err := parseProbe(output)
	if err != nil {
		return nil, err
	}
	info.Path = path
	return info, nil
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
}

type ffprobeStream struct {
	CodecName   string `json:"codec_name"`
	CodecType   string `json:"codec_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	RFrameRate  string `json:"r_frame_rate"`
	SampleRate  string `json:"sample_rate"`
	Channels    int    `json:"channels"`
	Disposition struct {
		AttachedPic int `json:"attached_pic"`
	} `json:"disposition"`
}

func parseProbe(output []byte) (*FileInfo, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &FileInfo{
		Format:     probe.Format.FormatName,
		FormatLong: probe.Format.FormatLongName,
	}
	info.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	info.Size, _ = strconv.ParseInt(probe.Format.Size, 10, 64)
	info.BitRate, _ = strconv.ParseInt(probe.Format.BitRate, 10, 64)

	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			// Cover art in audio files shows up as a single-frame video stream.
			if s.Disposition.AttachedPic == 1 || info.Video != nil {
				continue
			}
			info.HasVideo = true
			info.Video = &VideoInfo{
				Codec:     s.CodecName,
				Width:     s.Width,
				Height:    s.Height,
				FrameRate: parseFrameRate(s.RFrameRate),
			}
		case "audio":
			if info.Audio != nil {
				continue
			}
			info.HasAudio = true
			info.Audio = &AudioInfo{Codec: s.CodecName, Channels: s.Channels}
			info.Audio.SampleRate, _ = strconv.Atoi(s.SampleRate)
		}
	}
	return info, nil
}

// parseFrameRate parses ffprobe's "30000/1001" style rates.
func parseFrameRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		f, _ := strconv.ParseFloat(rate, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
