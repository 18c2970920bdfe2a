// Package tui renders compilation results for a terminal.
package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/weft/pkg/diag"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/export"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or 0 when unknown.
func Width(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// Printer writes diagnostics and reports, colored when the output is a
// terminal.
type Printer struct {
	w       io.Writer
	profile termenv.Profile
	render  func(string) (string, error)
}

// NewPrinter creates a Printer on f. Colors and markdown rendering are
// enabled only when f is a terminal.
func NewPrinter(f *os.File) *Printer {
	if !IsTerminal(f) {
		return NewPlainPrinter(f)
	}
	return &Printer{w: f, profile: termenv.ColorProfile(), render: NewRenderer(Width(f))}
}

// NewPlainPrinter creates a Printer that writes uncolored text.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w, profile: termenv.Ascii}
}

// Report implements diag.Handler.
func (p *Printer) Report(d diag.Diagnostic) {
	fmt.Fprintln(p.w, p.Diagnostic(d))
}

// Diagnostic formats one diagnostic as "loc: severity: message [kind]".
func (p *Printer) Diagnostic(d diag.Diagnostic) string {
	color := "#f9a825"
	if d.Severity == diag.Error {
		color = "#e53935"
	}
	sev := p.profile.String(d.Severity.String()).Foreground(p.profile.Color(color)).Bold()
	var sb strings.Builder
	if !d.Location.IsZero() {
		sb.WriteString(d.Location.String())
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "%s: %s [%s]", sev, d.Message, d.Kind)
	return sb.String()
}

// Document writes a markdown summary of doc, rendered by glamour on a
// terminal.
func (p *Printer) Document(doc *export.Document) error {
	return p.Markdown(Markdown(doc))
}

// Markdown writes md, rendered by glamour on a terminal.
func (p *Printer) Markdown(md string) error {
	if p.render != nil {
		out, err := p.render(md)
		if err != nil {
			return err
		}
		md = out
	}
	_, err := io.WriteString(p.w, md)
	return err
}

// Markdown summarizes doc as a markdown report.
func Markdown(doc *export.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", doc.Name)

	nerr, nwarn := 0, 0
	for _, d := range doc.Diagnostics {
		if d.Severity == diag.Error {
			nerr++
		} else {
			nwarn++
		}
	}
	fmt.Fprintf(&sb, "%d elements, %d connections, %d errors, %d warnings.\n\n",
		len(doc.Elements), len(doc.Connections), nerr, nwarn)

	if len(doc.Requirements) > 0 {
		fmt.Fprintf(&sb, "Requires: %s\n\n", strings.Join(doc.Requirements, ", "))
	}

	if len(doc.Elements) > 0 {
		sb.WriteString("| Element | Class | Ports | Processing |\n|---|---|---|---|\n")
		for _, e := range doc.Elements {
			class := e.Class
			if e.Config != "" {
				class += "(" + e.Config + ")"
			}
			fmt.Fprintf(&sb, "| `%s` | %s | %d/%d | `%s` |\n",
				e.Name, escapeCell(class), e.Inputs, e.Outputs, e.Processing)
		}
		sb.WriteString("\n")
	}

	if len(doc.Diagnostics) > 0 {
		sb.WriteString("## Diagnostics\n\n")
		for _, d := range doc.Diagnostics {
			loc := ""
			if !d.Location.IsZero() {
				loc = "`" + d.Location.String() + "` "
			}
			fmt.Fprintf(&sb, "- **%s** %s%s _(%s)_\n", d.Severity, loc, d.Message, d.Kind)
		}
	}
	return sb.String()
}

// ClassTable lists element classes as a markdown table.
func ClassTable(traits []domain.Traits) string {
	var sb strings.Builder
	sb.WriteString("| Class | Ports | Processing | Flow | Requires |\n|---|---|---|---|---|\n")
	for _, t := range traits {
		fmt.Fprintf(&sb, "| `%s` | %s | `%s` | `%s` | %s |\n",
			t.Name, orDash(t.PortCount), orDash(t.Processing), orDash(t.FlowCode), escapeCell(orDash(t.Requirements)))
	}
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
