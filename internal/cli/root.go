// Package cli wires the gallery commands onto cobra.
//
//	gallery serve                  run the background workers (default)
//	gallery migrate                create or upgrade the schema
//	gallery sweep-tags             delete tags no metadata item references
//	gallery delete-album --id 42   delete an album subtree
//	gallery tags --gallery 1       list the tags used in a gallery
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/entrypoint"
	"github.com/mrlokans/gallery/internal/logging"
)

type rootOptions struct {
	version string
	commit  string
	dbPath  string
	cfg     *config.Config
}

// NewRootCommand builds the gallery command tree. Configuration is read from
// the environment before any subcommand runs.
func NewRootCommand(version, commit string) *cobra.Command {
	opts := &rootOptions{version: version, commit: commit}

	cmd := &cobra.Command{
		Use:           "gallery",
		Short:         "Hierarchical media gallery persistence core",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.NewConfig()
			if opts.dbPath != "" {
				opts.cfg.Database.Path = opts.dbPath
			}
			return logging.InitLogging(opts.cfg.Log)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(opts.cfg, opts.version)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database path (overrides DATABASE_PATH)")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newSweepTagsCommand(opts),
		newDeleteAlbumCommand(opts),
		newTagsCommand(opts),
	)
	return cmd
}

// withApp opens the persistence core for the length of one command.
func withApp(opts *rootOptions, run func(app *entrypoint.App) error) error {
	app, err := entrypoint.NewApp(opts.cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return run(app)
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the task workers, the maintenance scheduler and the metrics listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return entrypoint.Run(opts.cfg, opts.version)
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *entrypoint.App) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Database ready at %s\n", opts.cfg.Database.Path)
				return nil
			})
		},
	}
}
