package main

import (
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/syncust/internal/logger"
	"github.com/marmos91/syncust/pkg/config"
	"github.com/marmos91/syncust/pkg/pathclass"
	"github.com/marmos91/syncust/pkg/repository"
	"github.com/marmos91/syncust/pkg/status"
	"github.com/marmos91/syncust/pkg/watch"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *app) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			repo, err := repository.Init(cmd.Context(), root, a.opts)
			if err != nil {
				return err
			}
			return repo.Close()
		},
	}
}

func (a *app) addCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [paths...]",
		Short: "Record paths that are not tracked yet",
		Long: `Walks each path recursively and records every entry that has no
index record yet. Already tracked paths are skipped with a warning.
Without arguments the whole repository is scanned. With -C, relative
paths are taken relative to the repository root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := repository.Open(cmd.Context(), a.repoDir, a.opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			_, err = repo.Add(cmd.Context(), a.targets(cmd, args))
			return err
		},
	}
	a.addRepoFlag(cmd)
	return cmd
}

func (a *app) statusCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status [paths...]",
		Short: "Show untracked and changed paths",
		Long: `Lists paths that have no index record and tracked paths whose content
changed. Without arguments the whole repository is checked. With -C,
relative paths are taken relative to the repository root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := config.StatusFormat(a.cfg)
			if err != nil {
				return err
			}
			if output != "" {
				if format, err = status.ParseFormat(output); err != nil {
					return err
				}
			}

			repo, err := repository.Open(cmd.Context(), a.repoDir, a.opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			st, err := repo.Status(cmd.Context(), a.targets(cmd, args))
			if err != nil {
				return err
			}
			return status.Render(cmd.OutOrStdout(), st, format)
		},
	}
	a.addRepoFlag(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: text, yaml or json")
	return cmd
}

func (a *app) cloneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <source> [destination]",
		Short: "Copy a repository's index and objects into a new directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			dest := defaultDestination(source)
			if len(args) == 2 {
				dest = args[1]
			}

			repo, err := repository.Clone(cmd.Context(), source, dest, a.opts)
			if err != nil {
				return err
			}
			return repo.Close()
		},
	}
}

// defaultDestination derives a directory name from the last element of source.
func defaultDestination(source string) string {
	p := pathclass.LocalPath(source)
	if i := strings.LastIndexByte(p, ':'); i >= 0 && pathclass.Classify(source) == pathclass.SSH {
		p = p[i+1:]
	}
	return filepath.Base(filepath.Clean(p))
}

func (a *app) internCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intern",
		Short: "Move tracked file contents into the object store",
		Long: `Moves every tracked regular file whose content still matches its
record into the object store and leaves a relative symlink in its place.
Identical contents are stored once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := repository.Open(cmd.Context(), a.repoDir, a.opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			_, err = repo.Intern(cmd.Context())
			return err
		},
	}
	a.addRepoFlag(cmd)
	return cmd
}

func (a *app) watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Add new paths as they appear until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := repository.Open(cmd.Context(), a.repoDir, a.opts)
			if err != nil {
				return err
			}
			defer repo.Close()

			w, err := watch.New(repo.Root(), repo.DataDir(), repo, a.cfg.Watch.Quiet)
			if err != nil {
				return err
			}

			n, err := repo.Count(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("watching %s (%s paths tracked)", repo.Root(), humanize.Comma(int64(n)))

			return w.Run(cmd.Context())
		},
	}
	a.addRepoFlag(cmd)
	return cmd
}

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the user configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.configPath != "" {
				if err := config.InitConfigToPath(a.configPath, force); err != nil {
					return err
				}
				logger.Info("configuration written to %s", a.configPath)
				return nil
			}

			path, err := config.InitConfig(force)
			if err != nil {
				return err
			}
			logger.Info("configuration written to %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	// Writing the file must not depend on being able to load it
	initCmd.PersistentPreRunE = func(*cobra.Command, []string) error { return nil }

	cmd.AddCommand(initCmd)
	return cmd
}

// unsupportedCommands returns the commands that are part of the command
// surface but have no implementation yet. Each fails with ErrNotSupported.
func unsupportedCommands() []*cobra.Command {
	names := []struct{ use, short string }{
		{"remote", "Manage remote repositories"},
		{"sync", "Synchronize with another repository"},
		{"get", "Fetch the content of tracked paths"},
		{"drop", "Release the local content of tracked paths"},
		{"type", "Show the type of a tracked path"},
	}

	cmds := make([]*cobra.Command, 0, len(names))
	for _, n := range names {
		name := n.use
		cmds = append(cmds, &cobra.Command{
			Use:                name,
			Short:              n.short + " (not yet supported)",
			DisableFlagParsing: true,
			RunE: func(*cobra.Command, []string) error {
				return errors.Wrap(repository.ErrNotSupported, name)
			},
		})
	}
	return cmds
}
