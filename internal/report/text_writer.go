package report

import (
	"fmt"
	"io"
	"sort"
)

// TextWriter renders a Result as a plain-text statistics report plus any
// findings. A vulnerability scanner's text report typically groups
// findings by severity/file; a pass run has no files to group by, only
// counters and a flat findings list, so that grouping machinery is gone.
type TextWriter struct{}

func (w *TextWriter) Write(out io.Writer, r *Result) error {
	fmt.Fprintf(out, "nescheck report for module %q (run %s)\n", r.Module, r.RunID)
	fmt.Fprintf(out, "generated %s\n\n", r.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))

	keys := make([]string, 0, len(r.Stats))
	for k := range r.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(out, "statistics:")
	for _, k := range keys {
		fmt.Fprintf(out, "  %-24s %d\n", k, r.Stats[k])
	}

	if len(r.Findings) == 0 {
		fmt.Fprintln(out, "\nno statically-provable bugs found")
		return nil
	}
	fmt.Fprintf(out, "\n%d statically-provable bug(s):\n", len(r.Findings))
	for _, f := range r.Findings {
		fmt.Fprintf(out, "  [%s] %s:%d %s (%s confidence)\n", f.CWE, f.Function, f.Line, f.Message, f.Confidence)
	}
	return nil
}
