package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/fwdetect/internal/config"
)

// runtimeFlagSet tracks shared detect/rules flags before they are converted into config overrides.
type runtimeFlagSet struct {
	rulesFile      string
	noDefaultRules bool
	disable        string
	format         string
	execScripts    bool
	scriptTimeout  string
	summaryFile    string
}

func bindRuleFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	cmd.Flags().StringVar(&flags.rulesFile, "rules", "", "Path to a YAML rule table merged over the defaults")
	cmd.Flags().BoolVar(&flags.noDefaultRules, "no-default-rules", false, "Use only the rules from --rules")
	cmd.Flags().StringVar(&flags.disable, "disable", "", "Comma-separated rule names to skip")
}

func bindRuntimeFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	bindRuleFlags(cmd, flags)
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: text, json, or ndjson")
	cmd.Flags().BoolVar(&flags.execScripts, "exec-scripts", false, "Execute inline scripts in the JavaScript sandbox before detection")
	cmd.Flags().StringVar(&flags.scriptTimeout, "script-timeout", "", fmt.Sprintf("Per-script execution limit (max %s)", config.MaxScriptTimeout))
	cmd.Flags().StringVar(&flags.summaryFile, "summary-file", "", "Optional summary JSON output path")
}

func (f runtimeFlagSet) toOverrides(cmd *cobra.Command) (config.Overrides, error) {
	ov := config.Overrides{}
	changed := func(name string) bool {
		flag := cmd.Flags().Lookup(name)
		return flag != nil && flag.Changed
	}

	if changed("rules") {
		ov.RulesFile = f.rulesFile
	}

	if changed("no-default-rules") {
		ov.NoDefaultRules = &f.noDefaultRules
	}

	if changed("disable") {
		ov.Disable = config.ParseNames(f.disable)
	}

	if changed("format") {
		ov.Format = f.format
	}

	if changed("exec-scripts") {
		ov.ExecScripts = &f.execScripts
	}

	if changed("script-timeout") {
		timeout, err := parseTimeout(f.scriptTimeout)
		if err != nil {
			return ov, err
		}
		ov.ScriptTimeout = timeout
	}

	if changed("summary-file") {
		ov.SummaryFile = f.summaryFile
	}

	return ov, nil
}
