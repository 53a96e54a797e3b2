package types

import "time"

// Session is the tenancy root: it owns a document set, a message transcript,
// a compacted-summary set and a memory set. The core never persists it; only
// the relational repository contract (interfaces.SessionRepository) is consumed.
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;column:id"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Session) TableName() string { return "sessions" }
