package models

// ProgressUpdate is broadcast to admin clients on the job hub.
type ProgressUpdate struct {
	JobID    string  `json:"jobId"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	ItemID   string  `json:"item_id,omitempty"`
	Status   string  `json:"status"` // e.g. "in_progress", "completed", "failed"
	Done     bool    `json:"done"`
}
