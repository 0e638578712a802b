// Package report renders audit results into shareable documents.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/JakeFAU/seo-auditor/internal/audit"
)

// MarkdownWriter renders an audit result as a Markdown report.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter targeting output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders the full report.
func (w *MarkdownWriter) Write(result audit.Result) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeScores(md, result)
	w.writeIssues(md, result)
	w.writeRecommendations(md, result)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result audit.Result) {
	md.H1("SEO Audit Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", result.RootURL},
			{"Audit ID", "`" + result.AuditID + "`"},
			{"Finished", result.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Crawled", strconv.Itoa(result.Stats.Crawled)},
			{"Overall Score", fmt.Sprintf("**%.1f (%s)**", result.Overall.Score, result.Overall.Grade)},
			{"Crawl Status", crawlStatus(result.Stats)},
		},
	})
	md.PlainText("")
}

func crawlStatus(stats audit.CrawlStats) string {
	if stats.Truncated {
		return "Truncated (page or time budget reached)"
	}
	return "Complete"
}

func (w *MarkdownWriter) writeScores(md *markdown.Markdown, result audit.Result) {
	md.H2("Category Scores")
	md.PlainText("")

	rows := make([][]string, 0, len(result.CategoryScores))
	for _, cs := range result.CategoryScores {
		if cs.Status != audit.EngineSuccess {
			rows = append(rows, []string{string(cs.Category), "-", "-", "analysis failed"})
			continue
		}
		rows = append(rows, []string{
			string(cs.Category),
			fmt.Sprintf("%.1f", cs.Score),
			cs.Grade,
			strconv.Itoa(cs.Issues),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Score", "Grade", "Issues"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeIssues(md *markdown.Markdown, result audit.Result) {
	md.H2("Issues")
	md.PlainText("")

	if len(result.Issues) == 0 {
		md.PlainText("No issues detected.")
		md.PlainText("")
		return
	}

	order := []audit.Severity{
		audit.SeverityCritical,
		audit.SeverityHigh,
		audit.SeverityMedium,
		audit.SeverityLow,
		audit.SeverityInfo,
	}
	for _, sev := range order {
		var rows [][]string
		for _, issue := range result.Issues {
			if issue.Severity != sev {
				continue
			}
			rows = append(rows, []string{
				issue.Name,
				string(issue.Category),
				strconv.Itoa(len(issue.AffectedURLs)),
				truncate(issue.Recommendation, 80),
			})
		}
		if len(rows) == 0 {
			continue
		}
		md.H3(severityHeading(sev))
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Issue", "Category", "Affected Pages", "Recommendation"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func severityHeading(sev audit.Severity) string {
	switch sev {
	case audit.SeverityCritical:
		return "Critical"
	case audit.SeverityHigh:
		return "High"
	case audit.SeverityMedium:
		return "Medium"
	case audit.SeverityLow:
		return "Low"
	default:
		return "Info"
	}
}

func (w *MarkdownWriter) writeRecommendations(md *markdown.Markdown, result audit.Result) {
	md.H2("Prioritized Action Plan")
	md.PlainText("")

	if len(result.Recommendations) == 0 {
		md.PlainText("Nothing to fix.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(result.Recommendations))
	for _, rec := range result.Recommendations {
		rows = append(rows, []string{
			strconv.Itoa(rec.Rank),
			rec.Title,
			fmt.Sprintf("%.1f", rec.PriorityScore),
			rec.Impact,
			rec.Effort,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Recommendation", "Priority", "Impact", "Effort"},
		Rows:   rows,
	})
	md.PlainText("")

	// Step-by-step details for the items that ship them.
	for _, rec := range result.Recommendations {
		if len(rec.Steps) == 0 {
			continue
		}
		md.H3(fmt.Sprintf("%d. %s", rec.Rank, rec.Title))
		md.PlainText("")
		md.PlainText(rec.Description)
		md.PlainText("")
		md.OrderedList(rec.Steps...)
		md.PlainText("")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
