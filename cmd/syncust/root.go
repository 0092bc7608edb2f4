package main

import (
	"path/filepath"

	"github.com/marmos91/syncust/internal/logger"
	"github.com/marmos91/syncust/pkg/config"
	"github.com/marmos91/syncust/pkg/repository"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

// app carries the state shared by every subcommand once the persistent
// pre-run has loaded the configuration.
type app struct {
	configPath string
	logLevel   string
	repoDir    string

	cfg  *config.Config
	opts repository.Options
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "syncust",
		Short: "Content-addressed snapshots of a directory tree",
		Long: `syncust records every path of a working tree in a persistent index,
deduplicates file contents by digest into an object store, and reports
which paths are untracked or changed since they were added.

Repository data lives in .syncust/ at the repository root.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/syncust/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR")

	root.AddCommand(
		a.initCommand(),
		a.addCommand(),
		a.statusCommand(),
		a.cloneCommand(),
		a.internCommand(),
		a.watchCommand(),
		a.configCommand(),
	)
	for _, cmd := range unsupportedCommands() {
		root.AddCommand(cmd)
	}

	return root
}

// setup loads configuration and configures logging before any subcommand.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		if _, ok := logger.ParseLevel(a.logLevel); !ok {
			return errors.Errorf("unknown log level %q", a.logLevel)
		}
		cfg.Logging.Level = a.logLevel
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return err
	}

	opts, err := config.RepositoryOptions(cfg)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.opts = opts
	return nil
}

// addRepoFlag registers -C for commands that operate on an existing repository.
func (a *app) addRepoFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&a.repoDir, "repository", "C", ".", "repository root")
}

// targets anchors relative path arguments at the -C root when the flag was
// given, so "add -C /repo sub" means /repo/sub from any working directory.
func (a *app) targets(cmd *cobra.Command, args []string) []string {
	if !cmd.Flags().Changed("repository") {
		return args
	}
	out := make([]string, len(args))
	for i, p := range args {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(a.repoDir, p)
		}
	}
	return out
}
