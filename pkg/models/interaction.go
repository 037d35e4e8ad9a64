package models

import "time"

// Source records how an interaction reached the ledger.
type Source string

const (
	SourceCall     Source = "call"
	SourceExternal Source = "external"
)

// InteractionRecord is an immutable log entry for one completed interaction.
type InteractionRecord struct {
	ID           string        `json:"id"`
	SubjectID    string        `json:"subject_id"`
	Timestamp    time.Time     `json:"timestamp"`
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	Tier         ExecutionTier `json:"tier"`
	Intent       Intent        `json:"intent"`
	Source       Source        `json:"source"`
	BilledUSD    float64       `json:"billed_usd"`
	Duration     time.Duration `json:"duration"`
}

// TotalTokens returns input plus output tokens.
func (r InteractionRecord) TotalTokens() int64 {
	return r.InputTokens + r.OutputTokens
}

// CompletedCall describes a finished interaction reported by the caller.
type CompletedCall struct {
	Intent        Intent        `json:"intent"`
	Tier          ExecutionTier `json:"tier"`
	InputTokens   int64         `json:"input_tokens"`
	OutputTokens  int64         `json:"output_tokens"`
	Duration      time.Duration `json:"duration"`
	ReservationID string        `json:"reservation_id,omitempty"`
	Source        Source        `json:"source,omitempty"`
}
