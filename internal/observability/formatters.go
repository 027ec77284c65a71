// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/ozayn/signalmap/internal/db"
	"github.com/ozayn/signalmap/internal/jobs"
	"github.com/ozayn/signalmap/internal/signals"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxPointsToShow caps how many series points are listed
	maxPointsToShow = 12
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintLookupResult outputs a capture table for one profile lookup.
func (p *Printer) PrintLookupResult(res *jobs.LookupResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Profile:  %s/%s\n", res.Platform, res.Handle))
	sb.WriteString(fmt.Sprintf("URL:      %s\n", res.CanonicalURL))
	sb.WriteString(fmt.Sprintf("Source:   %s\n", res.Source))
	sb.WriteString("\n")
	sb.WriteString(resultTable(res.Results))

	p.printBox("ARCHIVE LOOKUP", sb.String())
}

// PrintJob outputs a job's status, counters and merged results.
func (p *Printer) PrintJob(job *db.Job, results []jobs.Result) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:      %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Profile:  %s/%s\n", job.Platform, job.Handle))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("Progress: %d/%d processed, %d with metrics, %d cached, %d fetched\n",
		job.Processed, job.Sampled, job.WithMetrics, job.Cached, job.Fetched))
	if job.Summary != nil {
		sb.WriteString(fmt.Sprintf("Summary:  %s\n", *job.Summary))
	}
	if job.Error != nil {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", *job.Error))
	}
	if len(results) > 0 {
		sb.WriteString("\n")
		sb.WriteString(resultTable(results))
	}

	p.printBox("ARCHAEOLOGY JOB", sb.String())
}

// PrintJobList outputs a one-line-per-job table.
func (p *Printer) PrintJobList(list []db.Job) {
	var sb strings.Builder
	if len(list) == 0 {
		sb.WriteString("No jobs.")
	}
	for _, j := range list {
		sb.WriteString(fmt.Sprintf("%s  %-9s %s/%s\n", j.ID, j.Status, j.Platform, j.Handle))
	}
	p.printBox("JOBS", strings.TrimRight(sb.String(), "\n"))
}

// PrintSeries outputs a signal series, newest points last.
func (p *Printer) PrintSeries(series *signals.Series) {
	if series == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Series:   %s (%s)\n", series.Series, series.Unit))
	sb.WriteString(fmt.Sprintf("Source:   %s\n", series.Source))
	sb.WriteString("\n")

	points := series.Points
	if len(points) > maxPointsToShow {
		sb.WriteString(fmt.Sprintf("  ... %d earlier points\n", len(points)-maxPointsToShow))
		points = points[len(points)-maxPointsToShow:]
	}
	for _, pt := range points {
		sb.WriteString(fmt.Sprintf("  %-12s %14.2f\n", pt.Date, pt.Value))
	}

	p.printBox("SIGNAL SERIES", strings.TrimRight(sb.String(), "\n"))
}

// resultTable renders captures as aligned rows. Missing metrics print as "-".
func resultTable(results []jobs.Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-12s %10s %10s %8s %11s %5s %s\n",
		"Date", "Followers", "Following", "Posts", "Subscribers", "Conf", "Src"))
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("%-12s %10s %10s %8s %11s %5.2f %s\n",
			shortDate(r.Date), count(r.Followers), count(r.Following),
			count(r.Posts), count(r.Subscribers), r.Confidence, r.Source))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func count(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func shortDate(iso string) string {
	if len(iso) > 10 {
		return iso[:10]
	}
	return iso
}
