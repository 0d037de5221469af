package model

import "time"

// HistoryOutcome is the final result recorded for a submission or approval.
type HistoryOutcome string

const (
	HistoryOutcomeAnswered        HistoryOutcome = "answered"
	HistoryOutcomeCompleted       HistoryOutcome = "completed"
	HistoryOutcomeWaitingApproval HistoryOutcome = "waiting_approval"
	HistoryOutcomeCancelled       HistoryOutcome = "cancelled"
	HistoryOutcomeFailed          HistoryOutcome = "failed"
)

// HistoryEntry is a local journal record of a task interaction.
type HistoryEntry struct {
	ID          string
	TaskID      string
	Description string
	Outcome     HistoryOutcome
	Text        string
	CreatedAt   time.Time
}
