package printer

import "github.com/slok/jarvis/internal/model"

// Printer knows how to print client information in different formats.
type Printer interface {
	PrintSkills(skills []model.Skill) error
	PrintTools(tools []model.Tool) error
	PrintHistory(entries []model.HistoryEntry) error
	PrintMessage(msg string) error
}
