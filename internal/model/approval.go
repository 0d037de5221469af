package model

import "strings"

// RiskLevel is the risk of an execution step. It's an open set, the backend
// may use named (low, medium, high) or numbered (R0..R3) levels.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
	RiskLevelR0     RiskLevel = "R0"
	RiskLevelR1     RiskLevel = "R1"
	RiskLevelR2     RiskLevel = "R2"
	RiskLevelR3     RiskLevel = "R3"
)

// RequiresApproval returns true for the levels that need a human decision
// before being executed.
func (r RiskLevel) RequiresApproval() bool {
	switch RiskLevel(strings.TrimSpace(string(r))) {
	case RiskLevelMedium, RiskLevelHigh, RiskLevelR2, RiskLevelR3:
		return true
	default:
		return false
	}
}

// ApprovalStep is a single risky step reported by the backend.
type ApprovalStep struct {
	Description string
	RiskLevel   RiskLevel
}

// ApprovalRequest is created when a task needs a human decision before the
// backend can execute it.
type ApprovalRequest struct {
	TaskID string
	Steps  []ApprovalStep
}

// ApprovalDecision is the human decision for an approval request.
type ApprovalDecision struct {
	TaskID   string
	Approved bool
}
