package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Community colors are already available in the JSON output
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether empty sections are shown.
	showEmpty bool

	// verbose lists every relation with its fields.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeCommunities(&sb, report)
	w.writeMostConnected(&sb, report)
	w.writeRelations(&sb, report)
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      PEOPLE NETWORK REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if len(report.Roots) > 0 {
		sb.WriteString(fmt.Sprintf("Roots:          %s\n", strings.Join(report.Roots, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Depth:          %d\n", report.Depth))
	sb.WriteString(fmt.Sprintf("Generated:      %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("People:         %d\n", report.NodeCount()))
	sb.WriteString(fmt.Sprintf("Relations:      %d\n", report.EdgeCount()))
	sb.WriteString(fmt.Sprintf("Communities:    %d\n", report.CommunityCount()))
	sb.WriteString(fmt.Sprintf("Cached Pages:   %d\n", report.CachedPages))

	if report.Partial {
		sb.WriteString(fmt.Sprintf("Status:         PARTIAL - %s\n", report.Error))
	} else {
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeCommunities lists every community with its members.
func (w *SimpleWriter) writeCommunities(sb *strings.Builder, report *Report) {
	if report.CommunityCount() == 0 && !w.showEmpty {
		return
	}

	section(sb, "COMMUNITIES")
	if report.CommunityCount() == 0 {
		sb.WriteString("  No people in the graph\n\n")
		return
	}

	for i, group := range report.View.Communities {
		sb.WriteString(fmt.Sprintf("[%d] %d people\n", i+1, len(group)))
		for _, id := range group {
			marker := "-"
			if n, ok := report.View.Node(id); ok && n.UserAdded {
				marker = "*"
			}
			sb.WriteString(fmt.Sprintf("  %s %s\n", marker, id))
		}
		sb.WriteString("\n")
	}
}

// writeMostConnected writes the people with the most neighbors.
func (w *SimpleWriter) writeMostConnected(sb *strings.Builder, report *Report) {
	ranked := report.MostConnected(mostConnectedLimit)
	if len(ranked) == 0 && !w.showEmpty {
		return
	}

	section(sb, "MOST CONNECTED")
	if len(ranked) == 0 {
		sb.WriteString("  No relations\n\n")
		return
	}
	for i, c := range ranked {
		sb.WriteString(fmt.Sprintf("  %2d. %s (%d)\n", i+1, c.ID, c.Degree))
	}
	sb.WriteString("\n")
}

// writeRelations lists every edge in verbose mode.
func (w *SimpleWriter) writeRelations(sb *strings.Builder, report *Report) {
	if !w.verbose || (report.EdgeCount() == 0 && !w.showEmpty) {
		return
	}

	section(sb, "RELATIONS")
	if report.EdgeCount() == 0 {
		sb.WriteString("  No relations\n\n")
		return
	}
	for _, e := range report.View.Edges {
		sb.WriteString(fmt.Sprintf("  %s -> %s [%s]\n", e.Source, e.Target, strings.Join(e.Labels, ", ")))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *Report) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	if report.Version != "" {
		sb.WriteString(fmt.Sprintf("Report generated by peoplenet %s\n", report.Version))
	} else {
		sb.WriteString("Report generated by peoplenet\n")
	}
	sb.WriteString("https://github.com/nao1215/peoplenet\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
