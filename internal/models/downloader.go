package models

import "time"

// Download job statuses.
const (
	DownloadQueued     = "queued"
	DownloadInProgress = "in_progress"
	DownloadCompleted  = "completed"
	DownloadFailed     = "failed"
)

// DownloadJob is one queued episode download.
type DownloadJob struct {
	ID        string    `json:"id"`
	EpisodeID int64     `json:"episode_id"`
	UserID    int64     `json:"user_id"`
	IsYouTube bool      `json:"is_youtube"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"` // percent
	Message   string    `json:"message"`
	FilePath  string    `json:"file_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
