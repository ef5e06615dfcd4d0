package models

import "time"

// Session carries per-conversation state across tool calls. The identified
// phone lives here instead of in process-global state, so concurrent
// conversations cannot leak identities into each other.
type Session struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone,omitempty"`
	ToolCalls []string  `json:"tool_calls,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identified reports whether identify_user has run for this session.
func (s *Session) Identified() bool {
	return s != nil && s.Phone != ""
}

// Clone returns a deep copy. Session stores hand out clones so concurrent
// tool calls on the same session never share a ToolCalls backing array.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	if s.ToolCalls != nil {
		clone.ToolCalls = append([]string(nil), s.ToolCalls...)
	}
	return &clone
}
