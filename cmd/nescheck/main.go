// Command nescheck runs the pointer-classification and bounds-check
// instrumentation pass over a JSON-encoded ir.Module and writes the
// instrumented module plus a report of what the pass did.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/HexHive/nesCheck/internal/report"
	"github.com/HexHive/nesCheck/ir"
	"github.com/HexHive/nesCheck/pass"
)

func main() {
	app := &cli.App{
		Name:  "nescheck",
		Usage: "pointer classification and bounds-check instrumentation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Required: true, Usage: "path to a JSON-encoded ir.Module"},
			&cli.StringFlag{Name: "out", Usage: "path to write the instrumented module (JSON); defaults to stdout"},
			&cli.BoolFlag{Name: "debug", Usage: "inject a printCheck() call before every inserted comparison"},
			&cli.BoolFlag{Name: "naive", Usage: "keep provably-false bounds checks instead of eliding them"},
			&cli.StringFlag{Name: "whitelist", Usage: "path to a YAML instrumentation-only whitelist"},
			&cli.StringFlag{Name: "report", Value: "text", Usage: "report format: text, json, or sarif"},
			&cli.StringFlag{Name: "report-out", Usage: "path to write the report; defaults to stderr"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "logrus level: debug, info, warn, error"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "nescheck:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(c.String("log-level")); err == nil {
		log.SetLevel(lvl)
	}

	data, err := os.ReadFile(c.String("in"))
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}
	mod, err := ir.DecodeModule(data)
	if err != nil {
		return fmt.Errorf("decoding module: %w", err)
	}

	result, err := pass.Run(mod, pass.Options{
		Naive:         c.Bool("naive"),
		Debug:         c.Bool("debug"),
		WhitelistPath: c.String("whitelist"),
		Log:           log,
	})
	if err != nil {
		return fmt.Errorf("running pass: %w", err)
	}

	if err := writeModule(result.Module, c.String("out")); err != nil {
		return err
	}
	return writeReport(result.Report, c.String("report"), c.String("report-out"))
}

func writeModule(mod *ir.Module, path string) error {
	data, err := ir.EncodeModule(mod)
	if err != nil {
		return fmt.Errorf("encoding instrumented module: %w", err)
	}
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeReport(res *report.Result, format, path string) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	mgr := report.NewManager(report.WithFormat(f))

	out := os.Stderr
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer file.Close()
		return mgr.WriteTo(file, res)
	}
	return mgr.WriteTo(out, res)
}
