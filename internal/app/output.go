package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sophialabs/apicover/internal/domain/coverage"
	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/domain/trace"
	"github.com/sophialabs/apicover/internal/infrastructure/usecases"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteSummary prints the run totals, the per-contract breakdown and every
// unmatched operation with its near misses.
func WriteSummary(w io.Writer, run *usecases.Run) error {
	s := run.Summary
	fmt.Fprintf(w, "Run %s: %d operations, %d exchanges\n", run.ID, s.Total, len(run.Exchanges))
	fmt.Fprintf(w, "Coverage: %d/%d operations (%.2f%%)\n", s.Matched, s.Total, s.Percentage)

	if len(s.ByContract) > 1 {
		tw := newTable(w)
		fmt.Fprintln(tw, "\nCONTRACT\tMATCHED\tTOTAL\tCOVERAGE")
		for _, cs := range s.ByContract {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f%%\n", cs.Contract, cs.Matched, cs.Total, cs.Percentage)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	unmatched := coverage.Unmatched(run.Items)
	if len(unmatched) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nUnmatched operations (%d):\n", len(unmatched))
	for _, it := range unmatched {
		fmt.Fprintf(w, "  %s\n", usecases.Describe(it.Operation))
		for _, nm := range it.NearMisses {
			fmt.Fprintf(w, "    near miss: %s %s %q (similarity %.2f", nm.Method, nm.URL, nm.Name, nm.Similarity)
			if nm.FailedStage != "" {
				fmt.Fprintf(w, ", failed %s: %s", nm.FailedStage, nm.Reason)
			}
			fmt.Fprintln(w, ")")
		}
	}
	return nil
}

// WriteProbe prints one line per evaluated operation, matches first.
func WriteProbe(w io.Writer, ex *exchange.Exchange, results []trace.CandidateResult) error {
	fmt.Fprintf(w, "Probe %s %s\n", ex.DisplayMethod(), ex.RawURL)
	if len(results) == 0 {
		fmt.Fprintln(w, "no operations evaluated")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "OPERATION\tMATCHED\tCONFIDENCE\tSIMILARITY\tFAILED STAGE\tREASON")
	for _, cr := range results {
		fmt.Fprintf(tw, "%s\t%t\t%.2f\t%.2f\t%s\t%s\n",
			cr.Operation, cr.Matched, cr.Confidence, cr.Similarity, cr.FailedStage, cr.FailedReason)
	}
	return tw.Flush()
}
