package transcode

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

const (
	PlaylistName   = "playlist.m3u8"
	segmentPattern = "segment_%03d.ts"
)

// Rendition is the on-disk result of encoding one tier.
type Rendition struct {
	Preset       Preset
	Dir          string
	PlaylistPath string
	SizeBytes    int64
}

type Encoder struct {
	runner         Runner
	bin            string
	segmentSeconds int
}

func NewEncoder(runner Runner, ffmpegPath string, segmentSeconds int) *Encoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if segmentSeconds <= 0 {
		segmentSeconds = 6
	}
	return &Encoder{runner: runner, bin: ffmpegPath, segmentSeconds: segmentSeconds}
}

func (e *Encoder) hlsArgs(input, dir string, p Preset) []string {
	return []string{
		"-i", input,
		"-y",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-profile:v", "main",
		"-level", "4.0",
		"-vf", fmt.Sprintf("scale=-2:%d", p.Height),
		"-b:v", fmt.Sprintf("%dk", p.VideoBitrate),
		"-maxrate", fmt.Sprintf("%dk", p.MaxRate()),
		"-bufsize", fmt.Sprintf("%dk", p.BufSize()),
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", p.AudioBitrate),
		"-ar", "44100",
		"-f", "hls",
		"-hls_time", strconv.Itoa(e.segmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(dir, segmentPattern),
		"-hls_playlist_type", "vod",
		filepath.Join(dir, PlaylistName),
	}
}

// EncodeHLS writes one tier as a VOD HLS playlist under outDir/<tier>.
// Leftovers from an earlier attempt are removed first.
func (e *Encoder) EncodeHLS(ctx context.Context, input, outDir string, p Preset) (*Rendition, error) {
	dir := filepath.Join(outDir, p.Name)
	if err := os.RemoveAll(dir); err != nil {
		return nil, errors.Wrap(err, "clear tier dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create tier dir")
	}

	out, err := e.runner.Run(ctx, e.bin, e.hlsArgs(input, dir, p)...)
	if err != nil {
		return nil, errors.Errorf("transcode %s failed: %v: %s", p.Name, err, truncateOutput(out, 500))
	}

	playlist := filepath.Join(dir, PlaylistName)
	if _, err := os.Stat(playlist); err != nil {
		return nil, errors.Wrapf(err, "transcode %s produced no playlist", p.Name)
	}
	size, err := dirSize(dir)
	if err != nil {
		return nil, errors.Wrap(err, "measure tier output")
	}
	return &Rendition{Preset: p, Dir: dir, PlaylistPath: playlist, SizeBytes: size}, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
