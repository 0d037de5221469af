package fake

import (
	"fmt"
	"strings"

	"github.com/slok/jarvis/internal/model"
)

// Plan is what the fake backend does with a task.
type Plan struct {
	// QA tasks are answered directly, without steps.
	QA     bool
	Answer string
	Steps  []model.ApprovalStep
	// Summary and Artifacts are the execution result.
	Summary   string
	Artifacts []model.Artifact
	// Err makes the task processing fail.
	Err error
}

// Planner decides the plan for a task description.
type Planner interface {
	Plan(taskID, description string) Plan
}

// PlannerFunc is a helper to use functions as Planners.
type PlannerFunc func(taskID, description string) Plan

func (p PlannerFunc) Plan(taskID, description string) Plan { return p(taskID, description) }

// riskyKeywords are the description keywords that make a step need approval.
var riskyKeywords = []string{"delete", "remove", "rm ", "install", "write", "list files", "kill"}

// KeywordPlanner is the default planner. Questions are answered, descriptions
// with risky keywords get an R2 step and everything else a single R0 step.
var KeywordPlanner = PlannerFunc(func(taskID, description string) Plan {
	d := strings.TrimSpace(description)
	if strings.HasSuffix(d, "?") {
		return Plan{QA: true, Answer: fmt.Sprintf("You asked %q, the fake backend has no real answer.", d)}
	}

	risk := model.RiskLevelR0
	lower := strings.ToLower(d)
	for _, k := range riskyKeywords {
		if strings.Contains(lower, k) {
			risk = model.RiskLevelR2
			break
		}
	}

	return Plan{
		Steps:     []model.ApprovalStep{{Description: "Run: " + d, RiskLevel: risk}},
		Summary:   "Executed: " + d,
		Artifacts: []model.Artifact{{Path: fmt.Sprintf("output/%s.txt", taskID), Type: "file", Description: "Execution output"}},
	}
})

var riskRank = map[model.RiskLevel]int{
	model.RiskLevelR0:     0,
	model.RiskLevelLow:    0,
	model.RiskLevelR1:     1,
	model.RiskLevelR2:     2,
	model.RiskLevelMedium: 2,
	model.RiskLevelR3:     3,
	model.RiskLevelHigh:   3,
}

// maxRisk returns the highest risk of the steps, unknown levels rank as R2.
func maxRisk(steps []model.ApprovalStep) model.RiskLevel {
	highest := model.RiskLevelR0
	highestRank := 0
	for _, s := range steps {
		r, ok := riskRank[s.RiskLevel]
		if !ok {
			r = 2
		}
		if r > highestRank {
			highest, highestRank = s.RiskLevel, r
		}
	}
	return highest
}

func needsApproval(steps []model.ApprovalStep) bool {
	for _, s := range steps {
		if s.RiskLevel.RequiresApproval() {
			return true
		}
	}
	return false
}
