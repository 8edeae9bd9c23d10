package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONWriter renders a Result as JSON: a tool-info envelope plus the
// result body, with an optional pretty-printing mode. There is no
// vulnerability-by-severity summary, since a pass run's findings are
// already small and typed by CWE, not severity buckets.
type JSONWriter struct {
	Pretty bool
}

type jsonReport struct {
	Tool struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"tool"`
	Result *Result `json:"result"`
}

func (w *JSONWriter) Write(out io.Writer, r *Result) error {
	rep := jsonReport{Result: r}
	rep.Tool.Name = "nescheck"
	rep.Tool.Description = "pointer classification and bounds-check instrumentation pass"

	var data []byte
	var err error
	if w.Pretty {
		data, err = json.MarshalIndent(rep, "", "  ")
	} else {
		data, err = json.Marshal(rep)
	}
	if err != nil {
		return fmt.Errorf("report: marshal json: %w", err)
	}
	_, err = out.Write(data)
	return err
}
