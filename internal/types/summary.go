package types

import "time"

// ChatSummary is the immutable result of compaction: it replaces a
// contiguous run of old messages with an LLM-authored summary.
type ChatSummary struct {
	ID                 string    `json:"id" gorm:"primaryKey;column:id"`
	SessionID          string    `json:"session_id" gorm:"column:session_id;index"`
	FromTimestamp       int64     `json:"from_timestamp" gorm:"column:from_timestamp"`
	ToTimestamp         int64     `json:"to_timestamp" gorm:"column:to_timestamp"`
	SummaryContent     string    `json:"summary_content" gorm:"column:summary_content"`
	MessageCount       int       `json:"message_count" gorm:"column:message_count"`
	OriginalTokenCount int       `json:"original_token_count" gorm:"column:original_token_count"`
	TokenCount         int       `json:"token_count" gorm:"column:token_count"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at"`
}

func (ChatSummary) TableName() string { return "chat_summaries" }
