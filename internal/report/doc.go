// Package report renders the results of a run.
//
// Four formats are supported:
//   - HTML: the primary, self-contained report with thumbnails and links
//   - Markdown: GitHub flavored tables with a mermaid pie chart
//   - JSON: machine readable, scores are null for pages without a score
//   - Simple: plain text for terminals
//
// Every format lists failing and erroring pages before passing ones; the
// relative order of pages with the same verdict follows the configuration.
package report
