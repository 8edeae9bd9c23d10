// Package report renders the outcome of a pass run for a human or a
// downstream tool. The Format/Writer/Manager shape mirrors a vulnerability
// scanner's report subsystem, but what gets reported is different —
// instead of a scanner's per-file findings, a Result is one nesCheck pass
// run: its statistics plus the small set of statically-provable bugs the
// pass diagnosed as unconditional trap branches. Those still carry a CWE,
// reusing the classification scheme static analyzers use for the
// analogous C bug classes (buffer/heap overflow, use-after-free, type
// confusion).
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Format is a report output format.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// CWE IDs for the bug classes a folds-to-true bounds check can represent,
// restricted to the classes this pass can actually diagnose.
const (
	CWEOutOfBoundsWrite = "CWE-787" // write via a SEQ/DYN pointer, statically OOB
	CWEOutOfBoundsRead  = "CWE-125" // read via a SEQ/DYN pointer, statically OOB
	CWEUseAfterFree     = "CWE-416" // indexed use of a pointer with recorded size zero
)

// Finding is one statically-diagnosed, unconditional-trap bug.
type Finding struct {
	CWE        string `json:"cwe"`
	Function   string `json:"function"`
	Line       int64  `json:"line"`
	Message    string `json:"message"`
	Confidence string `json:"confidence"`
}

// Result is a full pass-run report: run identity, statistics, and findings.
type Result struct {
	RunID      string         `json:"run_id"`
	Module     string         `json:"module"`
	GeneratedAt time.Time     `json:"generated_at"`
	Stats      map[string]int `json:"stats"`
	Findings   []Finding      `json:"findings"`
}

// NewResult stamps a fresh run identifier.
func NewResult(module string, stats map[string]int, findings []Finding, now time.Time) *Result {
	return &Result{
		RunID:       uuid.NewString(),
		Module:      module,
		GeneratedAt: now,
		Stats:       stats,
		Findings:    findings,
	}
}

// Writer renders a Result.
type Writer interface {
	Write(w io.Writer, result *Result) error
}

// Manager dispatches to the writer for a configured format and handles
// output-file bookkeeping, configured through functional options.
type Manager struct {
	format    Format
	outputDir string
	timestamp bool
	filename  string
}

type Option func(*Manager)

func WithFormat(f Format) Option    { return func(m *Manager) { m.format = f } }
func WithOutputDir(d string) Option { return func(m *Manager) { m.outputDir = d } }
func WithTimestamp() Option         { return func(m *Manager) { m.timestamp = true } }
func WithFilename(n string) Option  { return func(m *Manager) { m.filename = n } }

func NewManager(opts ...Option) *Manager {
	m := &Manager{format: FormatText, outputDir: ".", filename: "nescheck-report"}
	for _, o := range opts {
		o(m)
	}
	return m
}

// ParseFormat parses a CLI-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "sarif":
		return FormatSARIF, nil
	default:
		return "", fmt.Errorf("report: unsupported format %q", s)
	}
}

func (m *Manager) writerFor(format Format) (Writer, string) {
	switch format {
	case FormatJSON:
		return &JSONWriter{Pretty: true}, ".json"
	case FormatSARIF:
		return &SARIFWriter{}, ".sarif.json"
	default:
		return &TextWriter{}, ".txt"
	}
}

// WriteTo writes result to w using the manager's configured format.
func (m *Manager) WriteTo(w io.Writer, result *Result) error {
	writer, _ := m.writerFor(m.format)
	return writer.Write(w, result)
}

// WriteFile writes result to a file under the manager's output directory,
// deriving the extension from the format and optionally stamping the
// filename with a timestamp.
func (m *Manager) WriteFile(result *Result) (string, error) {
	writer, ext := m.writerFor(m.format)
	name := m.filename
	if m.timestamp {
		name = fmt.Sprintf("%s-%s", name, time.Now().UTC().Format("20060102T150405Z"))
	}
	path := filepath.Join(m.outputDir, name+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := writer.Write(f, result); err != nil {
		return "", err
	}
	return path, nil
}
