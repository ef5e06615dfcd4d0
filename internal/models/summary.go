package models

import (
	"encoding/json"
	"time"
)

// ConversationSummary is the end-of-call record persisted asynchronously by
// the summary worker.
type ConversationSummary struct {
	ID        string          `json:"id"`
	UserPhone string          `json:"user_phone"`
	Summary   json.RawMessage `json:"summary"`
	ToolCalls json.RawMessage `json:"tool_calls"`
	CreatedAt time.Time       `json:"created_at"`
}
