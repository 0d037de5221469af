package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/jarvis/internal/model"
)

// JSONPrinter prints client information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type catalogItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type historyItem struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Outcome     string    `json:"outcome"`
	Text        string    `json:"text,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintSkills prints skills in JSON format.
func (j *JSONPrinter) PrintSkills(skills []model.Skill) error {
	items := make([]catalogItem, len(skills))
	for i, s := range skills {
		items[i] = catalogItem{ID: s.ID, Name: s.Name, Description: s.Description}
	}
	return j.encode(items)
}

// PrintTools prints tools in JSON format.
func (j *JSONPrinter) PrintTools(tools []model.Tool) error {
	items := make([]catalogItem, len(tools))
	for i, t := range tools {
		items[i] = catalogItem{ID: t.ID, Name: t.Name, Description: t.Description}
	}
	return j.encode(items)
}

// PrintHistory prints history entries in JSON format.
func (j *JSONPrinter) PrintHistory(entries []model.HistoryEntry) error {
	items := make([]historyItem, len(entries))
	for i, e := range entries {
		items[i] = historyItem{
			ID:          e.ID,
			TaskID:      e.TaskID,
			Description: e.Description,
			Outcome:     string(e.Outcome),
			Text:        e.Text,
			CreatedAt:   e.CreatedAt.UTC(),
		}
	}
	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
