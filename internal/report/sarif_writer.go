package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// SARIFWriter renders a Result's findings as a minimal SARIF 2.1.0 log.
// Only the fields downstream SARIF consumers actually need for a
// "rule fired at this line" result are populated; there is no
// taxa/fix-suggestion scaffolding since a nesCheck finding is a single
// unconditional branch, not a multi-step vulnerability chain.
type SARIFWriter struct{}

type sarifLog struct {
	Schema  string      `json:"$schema"`
	Version string      `json:"version"`
	Runs    []sarifRun  `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sarifResult struct {
	RuleID  string          `json:"ruleId"`
	Level   string          `json:"level"`
	Message sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

func (w *SARIFWriter) Write(out io.Writer, r *Result) error {
	rules := map[string]bool{}
	log := sarifLog{Schema: "https://json.schemastore.org/sarif-2.1.0.json", Version: "2.1.0"}
	run := sarifRun{Tool: sarifTool{Driver: sarifDriver{Name: "nescheck"}}}

	for _, f := range r.Findings {
		if !rules[f.CWE] {
			run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{ID: f.CWE, Name: f.CWE})
			rules[f.CWE] = true
		}
		run.Results = append(run.Results, sarifResult{
			RuleID: f.CWE,
			Level:  "error",
			Message: sarifMessage{Text: f.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifact{URI: r.Module},
					Region:           sarifRegion{StartLine: int(f.Line)},
				},
			}},
		})
	}
	log.Runs = []sarifRun{run}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal sarif: %w", err)
	}
	_, err = out.Write(data)
	return err
}
