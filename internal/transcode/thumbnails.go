package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// ThumbnailPercents are the positions, in percent of duration, thumbnails are
// taken at.
var ThumbnailPercents = []int{0, 25, 50, 75}

type Thumb struct {
	Percent int
	Path    string
	Err     error
}

func ThumbnailName(pct int) string {
	return fmt.Sprintf("thumb_%d.jpg", pct)
}

type Thumbnailer struct {
	runner Runner
	bin    string
}

func NewThumbnailer(runner Runner, ffmpegPath string) *Thumbnailer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Thumbnailer{runner: runner, bin: ffmpegPath}
}

// Extract grabs one frame per ThumbnailPercents entry. Each result carries
// its own error; one bad frame does not stop the rest.
func (t *Thumbnailer) Extract(ctx context.Context, input, outDir string, duration float64) []Thumb {
	results := make([]Thumb, 0, len(ThumbnailPercents))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		for _, pct := range ThumbnailPercents {
			results = append(results, Thumb{Percent: pct, Err: errors.Wrap(err, "create thumbnail dir")})
		}
		return results
	}
	for _, pct := range ThumbnailPercents {
		ts := duration * float64(pct) / 100
		path := filepath.Join(outDir, ThumbnailName(pct))
		out, err := t.runner.Run(ctx, t.bin,
			"-ss", strconv.FormatFloat(ts, 'f', 3, 64),
			"-i", input,
			"-y",
			"-vframes", "1",
			"-vf", "scale=640:-2",
			"-q:v", "2",
			path,
		)
		if err != nil {
			results = append(results, Thumb{Percent: pct, Err: errors.Errorf("thumbnail at %d%%: %v: %s", pct, err, truncateOutput(out, 200))})
			continue
		}
		results = append(results, Thumb{Percent: pct, Path: path})
	}
	return results
}
