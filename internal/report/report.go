// Package report renders experiment results: compact console tables at the
// end of a run, and a standalone Markdown report generated from a persisted
// results document.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aspectbench/internal/experiment"
	"aspectbench/internal/format"
)

// LatestResults returns the newest results document in dir, by the sortable
// timestamp embedded in the filename.
func LatestResults(dir string) (string, error) {
	var candidates []string
	for _, pattern := range []string{"benchmark_experiment_*.json", "aspect_ab_experiment_*.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", err
		}
		candidates = append(candidates, matches...)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no results documents in %s", dir)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return experimentStamp(candidates[i]) < experimentStamp(candidates[j])
	})
	return candidates[len(candidates)-1], nil
}

// experimentStamp extracts the <id> suffix so files sort by experiment
// time regardless of name prefix.
func experimentStamp(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	if i := strings.LastIndex(base, "experiment_"); i >= 0 {
		return base[i+len("experiment_"):]
	}
	return base
}

// Console writes the end-of-experiment summary to w.
func Console(w io.Writer, doc *experiment.Document) {
	fmt.Fprintf(w, "Experiment %s — %s/%s\n\n", doc.ExperimentID, doc.Provider, doc.Model)

	fmt.Fprintln(w, summaryTable(doc, format.ASCII))
	fmt.Fprintln(w)
	fmt.Fprintln(w, outputStatsTable(doc, format.ASCII))
	fmt.Fprintln(w)
	fmt.Fprintln(w, taskMatrixTable(doc, format.ASCII))

	if lines := errorLines(doc); len(lines) > 0 {
		fmt.Fprintln(w, "\nErrored runs:")
		for _, l := range lines {
			fmt.Fprintln(w, "  "+l)
		}
	}
	fmt.Fprintf(w, "\nTotal time: %s\n", format.FmtSeconds(doc.ElapsedSec))
}

// Markdown renders the full report document.
func Markdown(doc *experiment.Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Benchmark Experiment %s\n\n", doc.ExperimentID)
	fmt.Fprintf(&b, "- **Provider:** %s\n", doc.Provider)
	fmt.Fprintf(&b, "- **Model:** %s\n", doc.Model)
	fmt.Fprintf(&b, "- **Temperature:** %g\n", doc.Temperature)
	fmt.Fprintf(&b, "- **Repositories:** %s\n", strings.Join(doc.Repos, ", "))
	fmt.Fprintf(&b, "- **Modes:** %s\n", strings.Join(doc.Modes, ", "))
	fmt.Fprintf(&b, "- **Started:** %s\n", doc.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **Total time:** %s\n\n", format.FmtSeconds(doc.ElapsedSec))

	b.WriteString("## Summary\n\n")
	b.WriteString(summaryTable(doc, format.Markdown))
	b.WriteString("\n\n## Output statistics\n\n")
	b.WriteString(outputStatsTable(doc, format.Markdown))
	b.WriteString("\n\n## Per-task results\n\n")
	b.WriteString(taskMatrixTable(doc, format.Markdown))
	b.WriteString("\n")

	if regs := regressionLines(doc); len(regs) > 0 {
		b.WriteString("\n## True regressions\n\n")
		for _, l := range regs {
			b.WriteString("- " + l + "\n")
		}
	}
	if errs := errorLines(doc); len(errs) > 0 {
		b.WriteString("\n## Errored runs\n\n")
		for _, l := range errs {
			b.WriteString("- " + l + "\n")
		}
	}
	return b.String()
}

// WriteMarkdown renders doc and writes the report to path.
func WriteMarkdown(doc *experiment.Document, path string) error {
	return os.WriteFile(path, []byte(Markdown(doc)), 0o644)
}

func summaryTable(doc *experiment.Document, m format.Mode) string {
	tb := format.NewTable(m)
	tb.Header("Mode", "Tasks", "Passed", "Failed", "Errors", "Success", "Tests fixed", "True regr.")
	for _, mode := range doc.Modes {
		s := doc.Summary[mode]
		tb.Row(mode, s.Attempted, s.Passed, s.Failed, s.Errored,
			format.FmtPercent(s.Passed, s.Attempted),
			format.FmtDelta(s.TestsFixed), s.TrueRegressions)
	}
	tb.Columns(
		format.ColumnConfig{Number: 2, Align: format.AlignRight},
		format.ColumnConfig{Number: 3, Align: format.AlignRight},
		format.ColumnConfig{Number: 4, Align: format.AlignRight},
		format.ColumnConfig{Number: 5, Align: format.AlignRight},
		format.ColumnConfig{Number: 6, Align: format.AlignRight},
		format.ColumnConfig{Number: 7, Align: format.AlignRight},
		format.ColumnConfig{Number: 8, Align: format.AlignRight},
	)
	return tb.String()
}

func outputStatsTable(doc *experiment.Document, m format.Mode) string {
	tb := format.NewTable(m)
	tb.Header("Mode", "Response chars", "Code lines", "Lines applied")
	for _, mode := range doc.Modes {
		s := doc.Summary[mode]
		tb.Row(mode, format.FmtCount(s.ResponseChars), format.FmtCount(s.CodeLines),
			format.FmtCount(s.LinesAdded))
	}
	tb.Columns(
		format.ColumnConfig{Number: 2, Align: format.AlignRight},
		format.ColumnConfig{Number: 3, Align: format.AlignRight},
		format.ColumnConfig{Number: 4, Align: format.AlignRight},
	)
	return tb.String()
}

// taskMatrixTable shows one row per task with a result cell per mode:
// pass/fail mark plus the pass-count delta, or the error kind.
func taskMatrixTable(doc *experiment.Document, m format.Mode) string {
	tb := format.NewTable(m)
	header := []string{"Task", "Name"}
	header = append(header, doc.Modes...)
	tb.Header(header...)

	for _, tr := range doc.Tasks {
		row := []any{tr.TaskID, format.Truncate(tr.TaskName, 40)}
		for _, mode := range doc.Modes {
			row = append(row, runCell(tr.Runs[mode]))
		}
		tb.Row(row...)
	}
	return tb.String()
}

func runCell(r *experiment.Run) string {
	switch {
	case r == nil:
		return "-"
	case r.Error != nil:
		return "error: " + string(r.Error.Kind)
	case r.HarnessBroken:
		return "harness broken"
	default:
		return fmt.Sprintf("%s %s", format.BoolMark(r.Success), format.FmtDelta(r.TestsFixed))
	}
}

func regressionLines(doc *experiment.Document) []string {
	var lines []string
	for _, tr := range doc.Tasks {
		for _, mode := range doc.Modes {
			r := tr.Runs[mode]
			if r == nil {
				continue
			}
			for _, test := range r.TrueRegressions {
				lines = append(lines, fmt.Sprintf("%s (%s): %s", tr.TaskID, mode, test))
			}
		}
	}
	return lines
}

func errorLines(doc *experiment.Document) []string {
	var lines []string
	for _, tr := range doc.Tasks {
		for _, mode := range doc.Modes {
			r := tr.Runs[mode]
			if r == nil || r.Error == nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s (%s) at %s: %s",
				tr.TaskID, mode, r.Error.Stage, r.Error.Message))
		}
	}
	return lines
}
