/*
Apache Score
Copyright 2022 The Apache Software Foundation

This product includes software developed at
The Apache Software Foundation (http://www.apache.org/).
*/
package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/peaceflow/peace/internal/logging"
	"github.com/peaceflow/peace/internal/version"
)

var (
	quiet   bool
	verbose int

	rootCmd = &cobra.Command{
		Use:   "peace",
		Short: "Declarative state convergence for infrastructure and application resources",
		Long: `peace turns a workspace of item definitions into a converged state: discover what is
currently there, compute what is desired, diff the two, and apply only what changed.`,
		Version:           fmt.Sprintf("%s (build: %s; sha: %s)", version.Version, version.BuildTime, version.GitSHA),
		PersistentPreRunE: setupLogging,
	}
)

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "mute any logging output")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase log verbosity and detail by specifying this flag one or more times")
}

// setupLogging installs a logging.SimpleHandler on slog.Default, scaled
// from warn (the default) down to debug by repeated -v flags, or
// silenced entirely by --quiet.
func setupLogging(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError + 100
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(&logging.SimpleHandler{Writer: os.Stderr, Level: level}))
	return nil
}

// Execute runs the root cobra command, dispatching to whichever
// subcommand the user invoked.
func Execute() error {
	return rootCmd.Execute()
}
