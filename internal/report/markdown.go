package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// mostConnectedLimit is the number of people listed as most connected.
const mostConnectedLimit = 10

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. Mermaid charts for the community distribution
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeCommunities(md, report)
	w.writeMostConnected(md, report)
	w.writePeople(md, report)
	w.writeRelations(md, report)
	w.writeFooter(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	md.H1("People Network Report")
	md.PlainText("")

	modularity := "-"
	if report.View != nil && report.EdgeCount() > 0 {
		modularity = strconv.FormatFloat(report.View.Modularity, 'f', 3, 64)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Roots", w.roots(report)},
			{"Depth", strconv.Itoa(report.Depth)},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"People", strconv.Itoa(report.NodeCount())},
			{"Relations", strconv.Itoa(report.EdgeCount())},
			{"Communities", strconv.Itoa(report.CommunityCount())},
			{"Modularity", modularity},
			{"Cached Pages", strconv.Itoa(report.CachedPages)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")

	switch {
	case report.Partial:
		md.Warningf("The expansion stopped early: %s. Completed levels are shown.", report.Error)
	case report.NodeCount() == 0:
		md.Note("The graph is empty.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) roots(report *Report) string {
	if len(report.Roots) == 0 {
		return "-"
	}
	quoted := make([]string, len(report.Roots))
	for i, r := range report.Roots {
		quoted[i] = "`" + r + "`"
	}
	return strings.Join(quoted, ", ")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *Report) string {
	if report.Partial {
		return "⚠️ Partial - " + report.Error
	}
	return "✅ Complete"
}

// writeCommunities writes the community section with a pie chart.
func (w *MarkdownWriter) writeCommunities(md *markdown.Markdown, report *Report) {
	if report.CommunityCount() == 0 {
		return
	}

	md.H2("Communities")
	md.PlainText("")

	if report.CommunityCount() > 1 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("People per Community"),
			piechart.WithShowData(true),
		)
		for i, group := range report.View.Communities {
			chart.LabelAndIntValue(communityLabel(i, group), uint64(len(group)))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	for i, group := range report.View.Communities {
		md.H3(communityLabel(i, group))
		md.PlainText("")
		md.BulletList(group...)
		md.PlainText("")
	}
}

// communityLabel names a community after its first member.
func communityLabel(i int, group []string) string {
	return fmt.Sprintf("Community %d (%s)", i+1, group[0])
}

// writeMostConnected writes the people with the most neighbors.
func (w *MarkdownWriter) writeMostConnected(md *markdown.Markdown, report *Report) {
	ranked := report.MostConnected(mostConnectedLimit)
	if len(ranked) == 0 {
		return
	}

	md.H2("Most Connected")
	md.PlainText("")

	rows := make([][]string, len(ranked))
	for i, c := range ranked {
		rows[i] = []string{strconv.Itoa(i + 1), c.ID, strconv.Itoa(c.Degree)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Person", "Neighbors"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePeople writes the node table.
func (w *MarkdownWriter) writePeople(md *markdown.Markdown, report *Report) {
	if report.NodeCount() == 0 {
		return
	}

	md.H2("People")
	md.PlainText("")

	rows := make([][]string, len(report.View.Nodes))
	for i, n := range report.View.Nodes {
		added := "-"
		if n.UserAdded {
			added = "yes"
		}
		rows[i] = []string{
			n.DisplayName,
			n.ID,
			strconv.Itoa(n.Community + 1),
			"`" + n.Color.Hex + "`",
			added,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Name", "Title", "Community", "Color", "Requested"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeRelations writes the edge table.
func (w *MarkdownWriter) writeRelations(md *markdown.Markdown, report *Report) {
	if report.EdgeCount() == 0 {
		return
	}

	md.H2("Relations")
	md.PlainText("")

	rows := make([][]string, len(report.View.Edges))
	for i, e := range report.View.Edges {
		rows[i] = []string{e.Source, e.Target, truncateString(strings.Join(e.Labels, ", "), 60)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"From", "To", "Fields"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, report *Report) {
	md.HorizontalRule()
	md.PlainText("")
	if report.Version != "" {
		md.PlainTextf("*Report generated by [peoplenet](https://github.com/nao1215/peoplenet) %s*", report.Version)
		return
	}
	md.PlainTextf("*Report generated by [peoplenet](https://github.com/nao1215/peoplenet)*")
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
