package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"assetgraph/internal/apperror"
	"assetgraph/internal/domain"
)

var (
	headerColor  = color.New(color.Bold, color.FgCyan)
	dimColor     = color.New(color.FgHiBlack)
	successColor = color.New(color.FgGreen)
)

// table renders aligned columns under a colored header
type table struct {
	w       io.Writer
	headers []string
	rows    [][]string
}

func newTable(w io.Writer, headers ...string) *table {
	return &table{w: w, headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range t.headers {
		headerColor.Fprint(t.w, pad(h, widths[i], i == len(t.headers)-1))
	}
	fmt.Fprintln(t.w)
	for i, width := range widths {
		dimColor.Fprint(t.w, pad(strings.Repeat("-", width), width, i == len(widths)-1))
	}
	fmt.Fprintln(t.w)

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprint(t.w, pad(cell, widths[i], i == len(row)-1))
			}
		}
		fmt.Fprintln(t.w)
	}
}

func pad(s string, width int, last bool) string {
	if last {
		return s
	}
	if len(s) < width {
		s += strings.Repeat(" ", width-len(s))
	}
	return s + "  "
}

func printClasses(w io.Writer, classes []*domain.Class) {
	if len(classes) == 0 {
		dimColor.Fprintln(w, "(none)")
		return
	}
	t := newTable(w, "NAME", "PARENT", "ABSTRACT", "CUSTOM", "ID")
	for _, c := range classes {
		t.addRow(c.Name, c.ParentName, flag(c.Abstract), flag(c.Custom), c.ID)
	}
	t.render()
}

func printAttributes(w io.Writer, attrs []*domain.Attribute) {
	t := newTable(w, "NAME", "MAPPING", "TYPE", "FLAGS")
	for _, a := range attrs {
		t.addRow(a.Name, a.Mapping.String(), a.Type, attributeFlags(a))
	}
	t.render()
}

func attributeFlags(a *domain.Attribute) string {
	var flags []string
	if a.Mandatory {
		flags = append(flags, "mandatory")
	}
	if a.Unique {
		flags = append(flags, "unique")
	}
	if a.ReadOnly {
		flags = append(flags, "read-only")
	}
	if !a.Visible {
		flags = append(flags, "hidden")
	}
	if a.Protected() {
		flags = append(flags, "protected")
	}
	return strings.Join(flags, ",")
}

func printKeyValues(w io.Writer, pairs ...string) {
	width := 0
	for i := 0; i < len(pairs); i += 2 {
		width = max(width, len(pairs[i]))
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		headerColor.Fprint(w, pad(pairs[i]+":", width+1, false))
		fmt.Fprintln(w, pairs[i+1])
	}
}

func printSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, "✓ "+format+"\n", args...)
}

func flag(b bool) string {
	return strconv.FormatBool(b)
}

// formatError renders a command failure with the offending subject when
// the engine reported one
func formatError(err error) string {
	red := color.New(color.FgRed, color.Bold)
	msg := red.Sprintf("Error: %s\n", err)
	if subject := apperror.SubjectOf(err); subject != "" {
		msg += dimColor.Sprintf("  subject: %s\n", subject)
	}
	return msg
}
