package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/slok/jarvis/internal/model"
)

const maxCellLen = 60

// TablePrinter prints client information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintSkills prints skills in a table format.
func (t *TablePrinter) PrintSkills(skills []model.Skill) error {
	if len(skills) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, s := range skills {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, cell(s.Description))
	}

	return nil
}

// PrintTools prints tools in a table format.
func (t *TablePrinter) PrintTools(tools []model.Tool) error {
	if len(tools) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, tl := range tools {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", tl.ID, tl.Name, cell(tl.Description))
	}

	return nil
}

// PrintHistory prints history entries in a table format.
func (t *TablePrinter) PrintHistory(entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tTASK\tOUTCOME\tDESCRIPTION\tCREATED\tAGE")
	for _, e := range entries {
		taskID := e.TaskID
		if taskID == "" {
			taskID = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, taskID, e.Outcome, cell(e.Description), FormatTimestamp(e.CreatedAt), TimeAgo(e.CreatedAt))
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

// cell makes a value fit in a single table cell.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "-"
	}
	if len(s) > maxCellLen {
		return s[:maxCellLen-3] + "..."
	}
	return s
}
