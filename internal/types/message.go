package types

import "time"

// Role identifies the speaker of a ChatMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn of a Session's transcript. The indexed form (held
// in the chat-message search index) additionally carries Embedding and
// Timestamp; both are zero-valued on the authoritative relational record.
type ChatMessage struct {
	ID                   string    `json:"id" gorm:"primaryKey;column:id"`
	SessionID            string    `json:"session_id" gorm:"column:session_id;index"`
	Role                 Role      `json:"role" gorm:"column:role"`
	Content              string    `json:"content" gorm:"column:content"`
	CreatedAt            time.Time `json:"created_at" gorm:"column:created_at"`
	TokenCount           int       `json:"token_count" gorm:"column:token_count"`
	IsCompacted          bool      `json:"is_compacted" gorm:"column:is_compacted"`
	SummaryRef           string    `json:"summary_ref,omitempty" gorm:"column:summary_ref"`
	RetrievedContextJSON string    `json:"retrieved_context_json,omitempty" gorm:"column:retrieved_context_json"`

	// Embedding and Timestamp are populated only on the indexed copy.
	Embedding []float32 `json:"embedding,omitempty" gorm:"-"`
	Timestamp int64     `json:"timestamp,omitempty" gorm:"-"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// EpochTimestamp returns CreatedAt as a Unix epoch, the form the indexed
// chat-message document and the reformulator's chronological sort use.
func (m ChatMessage) EpochTimestamp() int64 {
	if m.Timestamp != 0 {
		return m.Timestamp
	}
	return m.CreatedAt.Unix()
}

// EstimateTokenCount is the ASCII-biased ceil(len/4) estimate used for
// budgeting only; MaxChunkChars remains the hard limit elsewhere.
func EstimateTokenCount(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
