package transcode

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrNoVideoStream = errors.New("no video stream found in file")

type VideoInfo struct {
	Width           int
	Height          int
	DurationSeconds float64
	FPS             float64
	Codec           string
	AudioCodec      string
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type Prober struct {
	runner Runner
	bin    string
}

func NewProber(runner Runner, ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{runner: runner, bin: ffprobePath}
}

// Probe reads container and stream metadata. A file without a video stream
// yields ErrNoVideoStream.
func (p *Prober) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	out, err := p.runner.Run(ctx, p.bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "ffprobe failed: %s", truncateOutput(out, 500))
	}

	var data ffprobeOutput
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, errors.Wrap(err, "parse ffprobe output")
	}

	info := &VideoInfo{}
	found := false
	for _, s := range data.Streams {
		switch {
		case s.CodecType == "video" && !found:
			found = true
			info.Width = s.Width
			info.Height = s.Height
			info.Codec = s.CodecName
			info.FPS = parseFrameRate(s.RFrameRate)
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
				info.DurationSeconds = d
			}
		case s.CodecType == "audio" && info.AudioCodec == "":
			info.AudioCodec = s.CodecName
		}
	}
	if !found {
		return nil, ErrNoVideoStream
	}
	if info.Codec == "" {
		info.Codec = "unknown"
	}
	if d, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil && d > 0 {
		info.DurationSeconds = d
	}
	return info, nil
}

// parseFrameRate accepts "30000/1001" or "29.97"; anything unparseable is 30.
func parseFrameRate(s string) float64 {
	if s == "" {
		return 30
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 30
		}
		return n / d
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 30
	}
	return f
}
