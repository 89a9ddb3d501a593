package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/fwdetect/internal/config"
	"github.com/example/fwdetect/internal/detector"
	"github.com/example/fwdetect/internal/env"
	"github.com/example/fwdetect/internal/events"
	"github.com/example/fwdetect/internal/rules"
	"github.com/example/fwdetect/internal/sandbox"
)

// inputFlags names the page being inspected.
type inputFlags struct {
	snapshot string
	html     string
	globals  string
}

func newDetectCmd(a *app) *cobra.Command {
	flags := &runtimeFlagSet{}
	in := &inputFlags{}

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run the framework rules against a page snapshot or HTML document",
		Example: `  fwdetect detect --snapshot capture.yml
  fwdetect detect --html page.html --globals globals.json --format json
  curl -s https://example.test | fwdetect detect --html - --exec-scripts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := flags.toOverrides(cmd)
			if err != nil {
				return err
			}
			cfg, err := a.loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			compiled, err := rules.Build(ruleOptions(cfg))
			if err != nil {
				return err
			}

			snap, source, err := in.load(cmd.InOrStdin())
			if err != nil {
				return err
			}

			page, err := snap.Page(cmd.Context(), env.PageOptions{
				ExecScripts: cfg.ExecScripts,
				Sandbox:     sandboxConfig(cfg),
				Logger:      a.log,
			})
			if err != nil {
				return err
			}

			report, failures := detector.New(compiled, detector.WithLogger(a.log)).RunDetailed(page)

			out := cmd.OutOrStdout()
			switch cfg.Format {
			case config.FormatJSON:
				err = renderJSON(out, report)
			case config.FormatNDJSON:
				err = renderNDJSON(events.NewEmitter(out), source, len(compiled), report, failures)
			default:
				err = renderText(out, report)
			}
			if err != nil {
				return err
			}

			if cfg.SummaryFile != "" {
				return writeSummary(cfg.SummaryFile, source, len(compiled), report, failures)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in.snapshot, "snapshot", "", "Page snapshot (YAML or JSON) with html, globals and elementProperties")
	cmd.Flags().StringVar(&in.html, "html", "", "HTML document to inspect, or - for stdin")
	cmd.Flags().StringVar(&in.globals, "globals", "", "Global namespace dump (YAML or JSON) merged over the snapshot")
	bindRuntimeFlags(cmd, flags)

	return cmd
}

func (in inputFlags) load(stdin io.Reader) (env.Snapshot, string, error) {
	var (
		snap   env.Snapshot
		source string
		err    error
	)

	switch {
	case in.snapshot != "" && in.html != "":
		return snap, "", errors.New("--snapshot and --html are mutually exclusive")
	case in.snapshot != "":
		snap, err = env.LoadSnapshot(in.snapshot)
		if err != nil {
			return snap, "", err
		}
		source = in.snapshot
		if snap.URL != "" {
			source = snap.URL
		}
	case in.html == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return snap, "", fmt.Errorf("read stdin: %w", err)
		}
		snap.HTML = string(data)
		source = "stdin"
	case in.html != "":
		data, err := os.ReadFile(filepath.Clean(in.html))
		if err != nil {
			return snap, "", err
		}
		snap.HTML = string(data)
		source = in.html
	case in.globals == "":
		return snap, "", errors.New("no input provided; use --snapshot, --html, or --globals")
	}

	if in.globals != "" {
		globals, err := env.LoadGlobals(in.globals)
		if err != nil {
			return snap, "", err
		}
		if snap.Globals == nil {
			snap.Globals = map[string]any{}
		}
		for name, value := range globals {
			snap.Globals[name] = value
		}
		if source == "" {
			source = in.globals
		}
	}

	return snap, source, nil
}

func ruleOptions(cfg config.RuntimeConfig) rules.BuildOptions {
	return rules.BuildOptions{
		File:       cfg.RulesFile,
		NoDefaults: cfg.NoDefaultRules,
		Disabled:   cfg.Disable,
	}
}

func sandboxConfig(cfg config.RuntimeConfig) sandbox.Config {
	sb := sandbox.DefaultConfig()
	sb.Timeout = cfg.ScriptTimeout
	return sb
}

type detectionSummary struct {
	GeneratedAt string           `json:"generatedAt"`
	Source      string           `json:"source"`
	Rules       int              `json:"rules"`
	Detections  *detector.Report `json:"detections"`
	Errors      []ruleFailure    `json:"errors,omitempty"`
}

type ruleFailure struct {
	Rule  string `json:"rule"`
	Phase string `json:"phase"`
	Error string `json:"error"`
}

func writeSummary(path, source string, ruleCount int, report *detector.Report, failures []*detector.RuleError) error {
	summary := detectionSummary{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Source:      source,
		Rules:       ruleCount,
		Detections:  report,
	}
	for _, f := range failures {
		summary.Errors = append(summary.Errors, ruleFailure{Rule: f.Rule, Phase: string(f.Phase), Error: f.Err.Error()})
	}
	return writeJSONFile(path, summary)
}
