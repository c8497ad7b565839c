package backup

import "time"

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// Manifest describes backup contents and metadata.
type Manifest struct {
	Version   string    `json:"version"`
	ID        string    `json:"id"` // Unique per archive
	CreatedAt time.Time `json:"created_at"`

	// Server identity
	ServerID       string `json:"server_id"`
	ServerName     string `json:"server_name"`
	DevFlowVersion string `json:"devflow_version"`

	// Content summary
	Counts EntityCounts `json:"counts"`

	// What's included
	IncludesAvatars bool `json:"includes_avatars"`
}

// EntityCounts tracks entity counts for validation and progress reporting.
type EntityCounts struct {
	Users        int `json:"users"`
	Tags         int `json:"tags"`
	Questions    int `json:"questions"`
	TagQuestions int `json:"tag_questions"`
	Answers      int `json:"answers"`
	Votes        int `json:"votes"`
	Avatars      int `json:"avatars,omitempty"`
}
