package report_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HexHive/nesCheck/internal/report"
)

func sampleResult() *report.Result {
	return report.NewResult(
		"demo.bc",
		map[string]int{"checks_added": 3, "checks_always_true": 1},
		[]report.Finding{{
			CWE: report.CWEOutOfBoundsWrite, Function: "f", Line: 42,
			Message: "bounds check on this pointer access folds to always-true",
			Confidence: "high",
		}},
		time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC),
	)
}

func TestNewResultStampsDistinctRunIDs(t *testing.T) {
	r1 := sampleResult()
	r2 := sampleResult()
	assert.NotEmpty(t, r1.RunID)
	assert.NotEqual(t, r1.RunID, r2.RunID)
}

func TestParseFormat(t *testing.T) {
	f, err := report.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, report.FormatText, f)

	f, err = report.ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, report.FormatJSON, f)

	f, err = report.ParseFormat("sarif")
	require.NoError(t, err)
	assert.Equal(t, report.FormatSARIF, f)

	_, err = report.ParseFormat("xml")
	assert.Error(t, err)
}

func TestTextWriterListsStatsAndFindings(t *testing.T) {
	var buf bytes.Buffer
	w := &report.TextWriter{}
	require.NoError(t, w.Write(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "demo.bc")
	assert.Contains(t, out, "checks_added")
	assert.Contains(t, out, "CWE-787")
	assert.Contains(t, out, "f:42")
}

func TestTextWriterNoFindings(t *testing.T) {
	var buf bytes.Buffer
	w := &report.TextWriter{}
	r := sampleResult()
	r.Findings = nil
	require.NoError(t, w.Write(&buf, r))
	assert.Contains(t, buf.String(), "no statically-provable bugs found")
}

func TestJSONWriterRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w := &report.JSONWriter{Pretty: true}
	r := sampleResult()
	require.NoError(t, w.Write(&buf, r))

	var decoded struct {
		Tool struct {
			Name string `json:"name"`
		} `json:"tool"`
		Result report.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "nescheck", decoded.Tool.Name)
	assert.Equal(t, r.RunID, decoded.Result.RunID)
	assert.Len(t, decoded.Result.Findings, 1)
}

func TestSARIFWriterDedupesRulesByCWE(t *testing.T) {
	var buf bytes.Buffer
	w := &report.SARIFWriter{}
	r := sampleResult()
	r.Findings = append(r.Findings, report.Finding{CWE: report.CWEOutOfBoundsWrite, Function: "g", Line: 7})

	require.NoError(t, w.Write(&buf, r))

	var decoded struct {
		Runs []struct {
			Tool struct {
				Driver struct {
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID string `json:"ruleId"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Runs, 1)
	assert.Len(t, decoded.Runs[0].Tool.Driver.Rules, 1, "two findings sharing a CWE produce one rule")
	assert.Len(t, decoded.Runs[0].Results, 2)
}

func TestManagerWriteFileUsesFormatExtension(t *testing.T) {
	m := report.NewManager(report.WithFormat(report.FormatJSON), report.WithOutputDir(t.TempDir()), report.WithFilename("out"))
	path, err := m.WriteFile(sampleResult())
	require.NoError(t, err)
	assert.Contains(t, path, "out.json")
}
