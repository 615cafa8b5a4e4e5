package worker

import (
	"context"

	"github.com/amankumarsingh77/video-gatekeeper/internal/models"
	"github.com/amankumarsingh77/video-gatekeeper/internal/transcode"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// encodeShare is the part of the progress bar the tier loop fills.
	encodeShare       = 80
	thumbnailProgress = 85
	doneProgress      = 100
	thumbnailDir      = "thumbnails"
)

var (
	// ErrInvalidJob marks a queue message that can never succeed; it is
	// dropped instead of retried.
	ErrInvalidJob = errors.New("invalid encode job")
	// ErrNoVariants marks a run in which every tier failed. The failure is
	// deterministic, so the job is not retried.
	ErrNoVariants = errors.New("no variants were created")
	errVideoGone  = errors.New("video was deleted during processing")
)

// noVariantsError carries the first tier error of a run that produced no
// variants.
type noVariantsError struct {
	first error
}

func (e *noVariantsError) Error() string {
	if e.first == nil {
		return ErrNoVariants.Error() + ": no tiers selected"
	}
	return ErrNoVariants.Error() + ": " + e.first.Error()
}

func (e *noVariantsError) Is(target error) bool { return target == ErrNoVariants }

// ProgressFunc observes every progress value the orchestrator records.
type ProgressFunc func(videoID uuid.UUID, progress int)

// TierResult is the outcome of encoding one quality tier.
type TierResult struct {
	Preset  transcode.Preset
	Variant *models.Variant
	Err     error
}

type prober interface {
	Probe(ctx context.Context, path string) (*transcode.VideoInfo, error)
}

type encoder interface {
	EncodeHLS(ctx context.Context, input, outDir string, p transcode.Preset) (*transcode.Rendition, error)
}

type thumbnailer interface {
	Extract(ctx context.Context, input, outDir string, duration float64) []transcode.Thumb
}
