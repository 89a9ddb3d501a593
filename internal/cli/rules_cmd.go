package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/fwdetect/internal/rules"
)

func newRulesCmd(a *app) *cobra.Command {
	flags := &runtimeFlagSet{}
	var format string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the effective rule table",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := flags.toOverrides(cmd)
			if err != nil {
				return err
			}
			cfg, err := a.loader.Load(overrides)
			if err != nil {
				return err
			}

			defs, err := rules.Definitions(ruleOptions(cfg))
			if err != nil {
				return err
			}
			if err := rules.Validate(defs); err != nil {
				return err
			}

			switch format {
			case "yaml":
				data, err := rules.Marshal(defs)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			case "text", "":
			default:
				return fmt.Errorf("unsupported format %q (want text or yaml)", format)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTRIGGERS\tVERSION")
			for _, def := range defs {
				version := def.Version
				if version == "" {
					version = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", def.Name, describeTriggers(def), version)
			}
			return tw.Flush()
		},
	}

	bindRuleFlags(cmd, flags)
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or yaml")

	return cmd
}

func describeTriggers(def rules.Definition) string {
	var parts []string
	add := func(kind string, n int) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, n))
		}
	}
	add("globals", len(def.Globals))
	add("selectors", len(def.Selectors))
	add("scripts", len(def.Scripts))
	add("properties", len(def.Properties)+len(def.PropertyPrefixes))
	return strings.Join(parts, ",")
}
