package backup

import "time"

// BackupOptions configures backup creation.
type BackupOptions struct {
	IncludeAvatars bool   // Include avatar image files
	OutputPath     string // Where to write the backup file
}

// DefaultBackupOptions returns sensible defaults.
func DefaultBackupOptions() BackupOptions {
	return BackupOptions{
		IncludeAvatars: true,
	}
}

// BackupResult contains the outcome of a backup operation.
type BackupResult struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Counts   EntityCounts  `json:"counts"`
	Duration time.Duration `json:"duration"`
	Checksum string        `json:"checksum"`
}

// BackupInfo describes an existing backup.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// RestoreResult contains the outcome of a restore operation.
type RestoreResult struct {
	Imported map[string]int `json:"imported"`
	Errors   []RestoreError `json:"errors,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// RestoreError describes a non-fatal error during restore.
type RestoreError struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	Error      string `json:"error"`
}

// ValidationResult describes backup validity.
type ValidationResult struct {
	Valid          bool         `json:"valid"`
	Manifest       *Manifest    `json:"manifest,omitempty"`
	ExpectedCounts EntityCounts `json:"expected_counts"`
	Errors         []string     `json:"errors,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`
}
