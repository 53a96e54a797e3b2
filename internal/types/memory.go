package types

import "time"

// MemoryType classifies a piece of extracted semantic memory.
type MemoryType string

const (
	MemoryTypeFact       MemoryType = "fact"
	MemoryTypePreference MemoryType = "preference"
	MemoryTypeInsight    MemoryType = "insight"
)

// Memory is a durable fact, preference or insight extracted from a
// conversation, capped per session and evicted by importance then age.
type Memory struct {
	ID             string     `json:"id" gorm:"primaryKey;column:id"`
	SessionID      string     `json:"session_id" gorm:"column:session_id;index"`
	MemoryContent  string     `json:"memory_content" gorm:"column:memory_content"`
	MemoryType     MemoryType `json:"memory_type" gorm:"column:memory_type"`
	Importance     float64    `json:"importance" gorm:"column:importance"`
	CreatedAt      time.Time  `json:"created_at" gorm:"column:created_at"`
	LastAccessedAt time.Time  `json:"last_accessed_at" gorm:"column:last_accessed_at"`

	// Embedding is populated only on the indexed copy.
	Embedding []float32 `json:"embedding,omitempty" gorm:"-"`
}

func (Memory) TableName() string { return "memories" }
