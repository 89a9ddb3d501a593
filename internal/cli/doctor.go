package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/example/fwdetect/internal/config"
	"github.com/example/fwdetect/internal/env"
	"github.com/example/fwdetect/internal/rules"
	"github.com/example/fwdetect/internal/sandbox"
)

type doctorCheck struct {
	Name   string
	Status string // "✓", "✗" or "⊘"
	Detail string
	Error  error
}

func newDoctorCmd(a *app) *cobra.Command {
	flags := &runtimeFlagSet{}
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration, the rule table, and the script sandbox",
		Long: `The doctor subcommand validates the fwdetect environment:
- Go runtime version
- Configuration validity
- Rule table loading and selector compilation
- JavaScript sandbox execution
- Snapshot parsing (when --snapshot is given)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := flags.toOverrides(cmd)
			if err != nil {
				return err
			}
			cfg, err := a.loader.Load(overrides)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			checks := runDoctorChecks(cmd.Context(), &cfg, snapshotPath)
			printDoctorReport(cmd, checks)

			for _, check := range checks {
				if check.Error != nil {
					return fmt.Errorf("doctor checks failed")
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "\n✓ All checks passed. Ready to detect.")
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Optional snapshot file to parse")

	return cmd
}

func runDoctorChecks(ctx context.Context, cfg *config.RuntimeConfig, snapshotPath string) []doctorCheck {
	checks := []doctorCheck{
		checkGoVersion(),
		checkConfiguration(cfg),
		checkRules(cfg),
		checkSandbox(ctx, cfg),
	}

	if snapshotPath != "" {
		checks = append(checks, checkSnapshot(snapshotPath))
	} else {
		checks = append(checks, doctorCheck{Name: "Snapshot", Status: "⊘", Detail: "Skipped (no --snapshot)"})
	}

	return checks
}

func checkGoVersion() doctorCheck {
	return doctorCheck{
		Name:   "Go Runtime",
		Status: "✓",
		Detail: fmt.Sprintf("Version %s", runtime.Version()),
	}
}

func checkConfiguration(cfg *config.RuntimeConfig) doctorCheck {
	if err := cfg.Validate(); err != nil {
		return doctorCheck{
			Name:   "Configuration",
			Status: "✗",
			Detail: "Invalid configuration",
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   "Configuration",
		Status: "✓",
		Detail: fmt.Sprintf("format=%s, execScripts=%t", cfg.Format, cfg.ExecScripts),
	}
}

func checkRules(cfg *config.RuntimeConfig) doctorCheck {
	compiled, err := rules.Build(ruleOptions(*cfg))
	if err != nil {
		return doctorCheck{
			Name:   "Rule Table",
			Status: "✗",
			Detail: "Rules failed to compile",
			Error:  err,
		}
	}

	source := "built-in"
	if cfg.RulesFile != "" {
		source = cfg.RulesFile
		if !cfg.NoDefaultRules {
			source = "built-in + " + cfg.RulesFile
		}
	}

	return doctorCheck{
		Name:   "Rule Table",
		Status: "✓",
		Detail: fmt.Sprintf("%d rules (%s)", len(compiled), source),
	}
}

func checkSandbox(ctx context.Context, cfg *config.RuntimeConfig) doctorCheck {
	sb := sandboxConfig(*cfg)
	if sb.Timeout <= 0 || sb.Timeout > config.MaxScriptTimeout {
		sb.Timeout = sandbox.DefaultConfig().Timeout
	}

	rt, err := sandbox.New(sb, nil)
	if err == nil {
		err = rt.Execute(ctx, "doctor", `window.__fwdetect = typeof document.querySelector === "function";`)
	}
	if err != nil {
		return doctorCheck{
			Name:   "Script Sandbox",
			Status: "✗",
			Detail: "goja runtime unavailable",
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   "Script Sandbox",
		Status: "✓",
		Detail: fmt.Sprintf("goja ready (timeout %s)", sb.Timeout),
	}
}

func checkSnapshot(path string) doctorCheck {
	snap, err := env.LoadSnapshot(path)
	if err != nil {
		return doctorCheck{
			Name:   "Snapshot",
			Status: "✗",
			Detail: path,
			Error:  err,
		}
	}

	if snap.Empty() {
		return doctorCheck{
			Name:   "Snapshot",
			Status: "✗",
			Detail: path,
			Error:  fmt.Errorf("snapshot has neither html nor globals"),
		}
	}

	return doctorCheck{
		Name:   "Snapshot",
		Status: "✓",
		Detail: fmt.Sprintf("%s (%d globals)", path, len(snap.Globals)),
	}
}

func printDoctorReport(cmd *cobra.Command, checks []doctorCheck) {
	fmt.Fprintln(cmd.OutOrStdout(), "Running environment diagnostics...")

	for _, check := range checks {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-30s %s\n", check.Status, check.Name+":", check.Detail)
		if check.Error != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "   Error: %v\n", check.Error)
		}
	}
}
