package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/CyberForgeX/titanoboa/internal/dispatch"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4D96FF"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6BCB77"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD93D"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// Output formats command results for the terminal. In JSON mode data goes to
// stdout unstyled so the CLI composes with scripts.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput creates an Output writing data to stdout and messages to stderr.
func NewOutput(jsonMode bool) *Output {
	return &Output{jsonMode: jsonMode, w: os.Stdout, errW: os.Stderr}
}

// Table renders rows through tabwriter with a dimmed header rule.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, headingStyle.Render(strings.Join(headers, "\t")))
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, dimStyle.Render(strings.Join(dashes, "\t")))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// JSON writes v to stdout with indentation.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success writes a green status line to stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, successStyle.Render(msg))
}

// Warn writes a yellow status line to stderr.
func (o *Output) Warn(msg string) {
	fmt.Fprintln(o.errW, warnStyle.Render(msg))
}

// Error writes a red status line to stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, errorStyle.Render("error: ")+msg)
}

// resultView is the JSON shape of a command result. dispatch.Result keeps
// its errors out of its own JSON form, so the view flattens them to strings.
type resultView struct {
	dispatch.Result
	Errors []string `json:"errors,omitempty"`
}

// Result prints one command outcome: a JSON document in JSON mode, otherwise
// styled summary lines followed by per-directory warnings and failures.
func (o *Output) Result(res dispatch.Result) {
	if o.jsonMode {
		view := resultView{Result: res}
		for _, dirErr := range res.Errors {
			view.Errors = append(view.Errors, dirErr.Error())
		}
		o.JSON(view)
		return
	}

	switch res.Op {
	case dispatch.OpClean:
		o.Success(fmt.Sprintf("Removed %d orchestrator artifact(s)", res.Removed))
	default:
		o.Success(fmt.Sprintf(
			"Regenerated %d artifact(s), ran %d module(s) across %d director(ies)",
			res.Regenerated, res.ModulesRun, res.DirectoriesRun,
		))
		if !res.Diff.Empty() {
			fmt.Fprintln(o.errW, dimStyle.Render(res.Diff.Summary()))
		}
	}
	for _, w := range res.Warnings {
		o.Warn("warning: " + w)
	}
	for _, dirErr := range res.Errors {
		o.Error(dirErr.Error())
	}
	if res.Cancelled {
		o.Warn("cancelled before all directories completed")
	}
}
