package verify

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/tpusim/dma"
)

const maxListedMismatches = 16

// VerificationReport collects the lint and simulation stages of one run for
// printing.
type VerificationReport struct {
	Result         *Result
	StructIssues   []Issue
	SequenceIssues []Issue
}

// GenerateReport groups the findings of a result by stage.
func GenerateReport(r *Result) *VerificationReport {
	report := &VerificationReport{Result: r}

	for _, issue := range r.Issues {
		if issue.Type == IssueStruct {
			report.StructIssues = append(report.StructIssues, issue)
		} else {
			report.SequenceIssues = append(report.SequenceIssues, issue)
		}
	}

	return report
}

// Report is shorthand for GenerateReport(r).
func (r *Result) Report() *VerificationReport {
	return GenerateReport(r)
}

// Passed reports whether lint was clean and the output matched.
func (r *VerificationReport) Passed() bool {
	return len(r.Result.Issues) == 0 && r.Result.OK()
}

// WriteReport writes a formatted report to w.
func (r *VerificationReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)
	dash := strings.Repeat("-", 60)
	res := r.Result
	cfg := res.Config

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "TILED MATMUL VERIFICATION REPORT")
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Run:     %s\n", res.RunID)
	fmt.Fprintf(w, "Mode:    %s\n", res.Mode)
	fmt.Fprintf(w, "Array:   %dx%d, %d slots, %s output\n",
		cfg.ArraySize, cfg.ArraySize, cfg.NumSlots, cfg.OutputFormat)
	fmt.Fprintf(w, "Program: %d instructions\n", res.Program.Len())

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 1: STATIC LINT CHECKS")
	fmt.Fprintln(w, separator)

	if len(res.Issues) == 0 {
		fmt.Fprintln(w, "No lint issues found")
	}

	writeIssues(w, dash, "STRUCT", r.StructIssues)
	writeIssues(w, dash, "SEQUENCE", r.SequenceIssues)

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STAGE 2: SIMULATION")
	fmt.Fprintln(w, separator)

	switch {
	case res.SimErr != nil:
		fmt.Fprintf(w, "Simulation error: %v\n", res.SimErr)
	case len(res.Mismatches) == 0:
		fmt.Fprintln(w, "Output matches the reference")
	default:
		fmt.Fprintf(w, "%d elements differ from the reference\n", len(res.Mismatches))
		writeMismatches(w, res.Mismatches)
	}

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "STATISTICS")
	fmt.Fprintln(w, separator)
	WriteStats(w, res.Stats)

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "VERIFICATION SUMMARY")
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Lint Result: %d issues detected (%d STRUCT, %d SEQUENCE)\n",
		len(res.Issues), len(r.StructIssues), len(r.SequenceIssues))

	if r.Passed() {
		fmt.Fprintln(w, "PASSED")
	} else {
		fmt.Fprintln(w, "FAILED")
	}
}

func writeIssues(w io.Writer, dash, name string, issues []Issue) {
	if len(issues) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s ISSUES (%d):\n", name, len(issues))
	fmt.Fprintln(w, dash)

	for _, issue := range issues {
		fmt.Fprintf(w, "  [#%d %s] %s\n", issue.Index, issue.Opcode, issue.Message)
		for _, k := range slices.Sorted(maps.Keys(issue.Details)) {
			fmt.Fprintf(w, "    %s: %v\n", k, issue.Details[k])
		}
	}
}

func writeMismatches(w io.Writer, ms []Mismatch) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Row", "Col", "Got", "Want"})

	for i, m := range ms {
		if i == maxListedMismatches {
			t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("+%d more", len(ms)-i)})
			break
		}

		t.AppendRow(table.Row{m.Row, m.Col, m.Got, m.Want})
	}

	t.Render()
}

// WriteStats prints the cycle and traffic counters of a run as a table.
func WriteStats(w io.Writer, s dma.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Counter", "Value"})
	t.AppendRows([]table.Row{
		{"Total cycles", s.TotalCycles},
		{"Compute cycles", s.ComputeCycles},
		{"Stall cycles", s.StallCycles},
		{"DMA transfers", s.DMATransfers},
		{"Buffer switches", s.BufferSwitches},
		{"DRAM bytes read", s.DRAMBytesRead},
		{"DRAM bytes written", s.DRAMBytesWritten},
		{"Efficiency", fmt.Sprintf("%.1f%%", 100*s.Efficiency())},
	})
	t.Render()
}

// SaveReportToFile writes the report to a file.
func (r *VerificationReport) SaveReportToFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	r.WriteReport(f)

	return nil
}
