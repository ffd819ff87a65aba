package models

import "encoding/json"

// TriggerType identifies the kind of inbound event a trigger matches.
type TriggerType string

const (
	TriggerTypeMessage   TriggerType = "message"
	TriggerTypeScheduled TriggerType = "scheduled"
	TriggerTypeWebhook   TriggerType = "webhook"
)

// Trigger matches inbound events to workflow activation. A trigger belongs
// to exactly one workflow and carries no mutable state of its own.
type Trigger struct {
	ID      string      `json:"id"`
	Type    TriggerType `json:"type" validate:"required,oneof=message scheduled webhook"`
	Pattern string      `json:"pattern,omitempty"`
	Sources []string    `json:"sources,omitempty"`
	Cron    string      `json:"cron,omitempty"`
	Path    string      `json:"path,omitempty"`
}

// Older definitions use a singular "source" key; both shapes are accepted.
func (t *Trigger) UnmarshalJSON(data []byte) error {
	type alias Trigger

	var raw struct {
		alias

		Source string `json:"source,omitempty"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Trigger(raw.alias)

	if raw.Source != "" {
		t.Sources = append(t.Sources, raw.Source)
	}

	return nil
}
