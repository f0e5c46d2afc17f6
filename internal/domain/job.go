package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobType classifies a playback job.
type JobType string

const (
	JobTypeAudio    JobType = "AUDIO"
	JobTypeVideo    JobType = "VIDEO"
	JobTypeDownload JobType = "DOWNLOAD"
	JobTypeHLS      JobType = "HLS"
	JobTypeDASH     JobType = "DASH"
)

// Adaptive reports whether the job delivers segmented output.
func (t JobType) Adaptive() bool {
	return t == JobTypeHLS || t == JobTypeDASH
}

// Job is the bookkeeping record for one playback session. Persistence is
// owned by the job store; the pipeline only reports activity and end-of-life.
type Job struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Type             JobType    `json:"type" db:"type"`
	UserID           int64      `json:"userId" db:"user_id"`
	MediaID          int64      `json:"mediaId" db:"media_id"`
	Client           Client     `json:"client" db:"client"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	LastActiveAt     time.Time  `json:"lastActiveAt" db:"last_active_at"`
	EndedAt          *time.Time `json:"endedAt,omitempty" db:"ended_at"`
	BytesTransferred int64      `json:"bytesTransferred" db:"bytes_transferred"`
	LastSegment      int        `json:"lastSegment" db:"last_segment"`
}

// NewJob creates a job record for a media element and user.
func NewJob(jobType JobType, userID, mediaID int64, client Client) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:           uuid.New(),
		Type:         jobType,
		UserID:       userID,
		MediaID:      mediaID,
		Client:       client,
		CreatedAt:    now,
		LastActiveAt: now,
		LastSegment:  -1,
	}
}

// Ended reports whether the job has been closed.
func (j *Job) Ended() bool {
	return j.EndedAt != nil
}
