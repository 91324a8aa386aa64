// Package report writes people graph reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for renderers and tools
//   - MarkdownWriter: Markdown with a community pie chart for sharing
//
// Design decision: We separate report writing from view assembly (which
// is in the export package) so that adding an output format never touches
// clustering or layout.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
