package cli

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/fwdetect/internal/config"
)

// version is overridden at build time with -ldflags "-X".
var version = "dev"

// app carries what every sub-command shares.
type app struct {
	loader *config.Loader
	log    *logrus.Logger
}

// Execute builds the root command tree and runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{
		loader: &config.Loader{ConfigPath: config.DefaultConfigPath},
		log:    logrus.New(),
	}
	rootOpts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "fwdetect",
		Short:         "Detect frontend frameworks and libraries in a page snapshot",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("fwdetect version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultConfigPath, "Path to fwdetect.config.yml (optional)")
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "Log detector summaries and debug output")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if rootOpts.ConfigPath != "" {
			a.loader.ConfigPath = rootOpts.ConfigPath
		}
		configureLogger(a.log, cmd.ErrOrStderr(), rootOpts.Verbose)
	}

	rootCmd.AddCommand(
		newDetectCmd(a),
		newRulesCmd(a),
		newReportCmd(),
		newInitCmd(),
		newDoctorCmd(a),
	)

	return rootCmd
}

type rootOptions struct {
	ConfigPath string
	Verbose    bool
}

// configureLogger sends logs to w. Rule warnings are always shown; the
// detector's own summary line only when verbose.
func configureLogger(log *logrus.Logger, w io.Writer, verbose bool) {
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
}
