package errcore

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter renders a CoreError the way the embedding CLI prints it: a bold
// colored header, then indented notes and help text. The core itself never
// calls this directly (§6: "printing... is delegated"); it exists for
// collaborators (demo CLI, tests) that want the teacher's Rust-like styling
// without re-deriving it.
type Reporter struct{}

// NewReporter returns a Reporter. It holds no state; it exists as a type so
// call sites read the same way the teacher's ErrorReporter does.
func NewReporter() *Reporter { return &Reporter{} }

// Format renders err as a multi-line, color-coded diagnostic.
func (r *Reporter) Format(err *CoreError) string {
	var b strings.Builder

	levelColor := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(&b, "%s[%s]: %s\n", levelColor(string(err.Kind.String())), err.Code, err.Message)

	for _, note := range err.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		fmt.Fprintf(&b, "  %s %s %s\n", dim("│"), noteColor("note:"), note)
	}

	if err.Help != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(&b, "  %s %s %s\n", dim("│"), helpColor("help:"), err.Help)
	}

	return b.String()
}
