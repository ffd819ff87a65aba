package models

import "time"

// Event is an inbound occurrence delivered to the trigger matcher. Both
// push-based sources (chat messages, webhooks) and the scheduler tick
// produce the same shape.
type Event struct {
	Type      TriggerType    `json:"type"`
	Text      string         `json:"text,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Source    string         `json:"source,omitempty"`
	Path      string         `json:"path,omitempty"`
	Body      map[string]any `json:"body,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
