package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/fwdetect/internal/config"
	"github.com/example/fwdetect/internal/rules"
)

const rulesTemplateName = "rules.yml"

func newInitCmd() *cobra.Command {
	var dir string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file and an editable copy of the rule table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureOutputDir(dir); err != nil {
				return err
			}

			files := []struct {
				name string
				body []byte
			}{
				{name: config.DefaultConfigPath, body: config.Template(rulesTemplateName)},
				{name: rulesTemplateName, body: rules.DefaultTable()},
			}

			for _, f := range files {
				path := filepath.Join(dir, f.name)
				if !force {
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("%s already exists; use --force to overwrite", path)
					}
				}
				if err := os.WriteFile(path, f.body, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the files into")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}
