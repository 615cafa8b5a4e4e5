package models

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

const MaxErrorMessageLen = 500

// TranscodeJob is the persisted record of a video's processing run.
type TranscodeJob struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	VideoID      uuid.UUID  `json:"video_id" db:"video_id"`
	Status       JobStatus  `json:"status" db:"status"`
	Progress     int        `json:"progress" db:"progress"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	Attempts     int        `json:"attempts" db:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// EncodeJob is the queue message handed to workers.
type EncodeJob struct {
	JobID      string    `json:"job_id" validate:"required,uuid"`
	VideoID    string    `json:"video_id" validate:"required,uuid"`
	InputKey   string    `json:"input_key" validate:"required"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func (j *EncodeJob) MarshalBinary() ([]byte, error) {
	return json.Marshal(j)
}

func (j *EncodeJob) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, j)
}

// TruncateError cuts msg to MaxErrorMessageLen bytes without splitting a rune.
func TruncateError(msg string) string {
	if len(msg) <= MaxErrorMessageLen {
		return msg
	}
	cut := MaxErrorMessageLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
