package types

import "time"

// DocumentStatus is the ingestion lifecycle state of a Document.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// CanTransitionTo reports whether the monotonic status sequence
// Pending -> Processing -> {Ready|Failed} permits moving to next.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case DocumentStatusPending:
		return next == DocumentStatusProcessing
	case DocumentStatusProcessing:
		return next == DocumentStatusReady || next == DocumentStatusFailed
	case DocumentStatusFailed:
		// re-ingestion re-enters at Processing after the caller resets to Pending.
		return next == DocumentStatusPending
	default:
		return false
	}
}

// Document belongs to exactly one Session and is the unit of ingestion.
type Document struct {
	ID              string         `json:"id" gorm:"primaryKey;column:id"`
	SessionID       string         `json:"session_id" gorm:"column:session_id;index"`
	FileName        string         `json:"file_name" gorm:"column:file_name"`
	MimeType        string         `json:"mime_type" gorm:"column:mime_type"`
	Status          DocumentStatus `json:"status" gorm:"column:status"`
	ChunkCount      int            `json:"chunk_count" gorm:"column:chunk_count"`
	ProcessingError string         `json:"processing_error,omitempty" gorm:"column:processing_error"`
	CreatedAt       time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"column:updated_at"`
}

func (Document) TableName() string { return "documents" }
