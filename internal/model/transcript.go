package model

import "time"

// Transcript is a sales-call transcript as ingested from the upstream
// transcription service. Immutable once stored.
type Transcript struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	DurationSecs int       `json:"duration_secs"`
	Language     string    `json:"language"`
	CreatedAt    time.Time `json:"created_at"`
}
