// Package eventstream defines transport-neutral events emitted when an
// answer reaches a terminal state, and the Publisher contract for shipping
// them to a stream backend.
package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeAnswerCompleted is emitted when a question's answer stream
	// reaches a terminal state, successful or not.
	EventTypeAnswerCompleted = "docschat.answer.completed"
)

// AnswerCompletedEvent is the payload published for every terminal answer.
type AnswerCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	ActionID      string      `json:"action_id"`
	Question      string      `json:"question"`
	AnswerSize    int         `json:"answer_size"`
	RelatedLinks  int         `json:"related_links"`
	Failed        bool        `json:"failed"`
	StartedAt     time.Time   `json:"started_at"`
	CompletedAt   time.Time   `json:"completed_at"`
	DurationMs    int64       `json:"duration_ms"`
}

// EventSource identifies which model stack produced the answer.
type EventSource struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}
