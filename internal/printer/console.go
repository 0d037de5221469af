package printer

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/slok/jarvis/internal/model"
	"github.com/slok/jarvis/internal/progress"
)

// ConsolePresenter renders a session on a terminal, one line per change.
type ConsolePresenter struct {
	w  io.Writer
	mu sync.Mutex

	ok      *color.Color
	bad     *color.Color
	warn    *color.Color
	user    *color.Color
	jarvis  *color.Color
	dim     *color.Color
	lastBar string
	// lastArtifacts is the key of the last printed artifacts list.
	lastArtifacts string
}

// NewConsolePresenter returns a new console presenter writing on w.
func NewConsolePresenter(w io.Writer, noColor bool) *ConsolePresenter {
	p := &ConsolePresenter{
		w:      w,
		ok:     color.New(color.FgGreen),
		bad:    color.New(color.FgRed),
		warn:   color.New(color.FgYellow, color.Bold),
		user:   color.New(color.FgCyan, color.Bold),
		jarvis: color.New(color.FgGreen, color.Bold),
		dim:    color.New(color.Faint),
	}

	if noColor {
		for _, c := range []*color.Color{p.ok, p.bad, p.warn, p.user, p.jarvis, p.dim} {
			c.DisableColor()
		}
	}

	return p
}

// ConnectivityChanged renders the connection indicator.
func (p *ConsolePresenter) ConnectivityChanged(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if connected {
		p.ok.Fprintln(p.w, "● connected")
		return
	}
	p.bad.Fprintln(p.w, "○ disconnected, reconnecting...")
}

// ProgressChanged renders the progress bar of the current stage and, once
// attached, the produced artifacts.
func (p *ConsolePresenter) ProgressChanged(v progress.View) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !v.Visible {
		p.lastBar = ""
		p.lastArtifacts = ""
		p.dim.Fprintln(p.w, "(progress hidden)")
		return
	}

	bar := ProgressBar(v)
	if bar != p.lastBar {
		p.lastBar = bar
		p.dim.Fprintln(p.w, bar)
	}

	p.printArtifacts(v.Artifacts)
}

// ArtifactsProduced renders the artifacts of a finished task, unless they were
// already rendered with the progress view.
func (p *ConsolePresenter) ArtifactsProduced(as []model.Artifact) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printArtifacts(as)
}

func (p *ConsolePresenter) printArtifacts(as []model.Artifact) {
	if len(as) == 0 {
		return
	}

	paths := make([]string, 0, len(as))
	for _, a := range as {
		paths = append(paths, a.Path)
	}
	key := strings.Join(paths, "\n")
	if key == p.lastArtifacts {
		return
	}
	p.lastArtifacts = key

	p.ok.Fprintln(p.w, "Artifacts:")
	for _, path := range paths {
		fmt.Fprintf(p.w, "  - %s\n", path)
	}
}

// ApprovalRequested renders the approval panel.
func (p *ConsolePresenter) ApprovalRequested(req model.ApprovalRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.warn.Fprintf(p.w, "Approval required for task %s\n", req.TaskID)
	for i, s := range req.Steps {
		risk := string(s.RiskLevel)
		if s.RiskLevel.RequiresApproval() {
			risk = p.bad.Sprint(risk)
		}
		fmt.Fprintf(p.w, "  %d. [%s] %s\n", i+1, risk, s.Description)
	}
	p.dim.Fprintln(p.w, "Type /approve or /reject")
}

// ApprovalDismissed renders the approval panel closing.
func (p *ConsolePresenter) ApprovalDismissed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dim.Fprintln(p.w, "Decision sent, waiting for the backend...")
}

// MessageAdded renders a conversation message.
func (p *ConsolePresenter) MessageAdded(m model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch m.Role {
	case model.MessageRoleUser:
		p.user.Fprint(p.w, "you> ")
	default:
		p.jarvis.Fprint(p.w, "jarvis> ")
	}
	fmt.Fprintln(p.w, m.Text)
}

// ProgressBar returns a single line representation of the view steps.
func ProgressBar(v progress.View) string {
	var sb strings.Builder
	done := 0
	for _, s := range v.Steps {
		switch s.Status {
		case progress.StepStatusCompleted:
			sb.WriteString("■")
			done++
		case progress.StepStatusActive:
			sb.WriteString("▶")
			done++
		default:
			sb.WriteString("·")
		}
	}

	label := v.Stage.Label()
	if model.StageIndex(v.Stage) < 0 {
		label = strings.ReplaceAll(string(v.Stage), "_", " ")
	}

	return fmt.Sprintf("[%s] %d/%d %s", sb.String(), done, len(v.Steps), label)
}
