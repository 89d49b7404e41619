package model

// PendingSubmission references an undelivered export document kept in
// durable storage.
type PendingSubmission struct {
	Key       string `json:"key"`
	ChapterID string `json:"chapter_id"`
	Version   string `json:"version"`
	CreatedAt int64  `json:"created_at"`
}
