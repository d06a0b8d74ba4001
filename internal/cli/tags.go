package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/entrypoint"
)

func newSweepTagsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-tags",
		Short: "Delete tags that no metadata item references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *entrypoint.App) error {
				deleted, err := app.Gallery.DeleteUnusedTags()
				app.Audit.LogSweep("cli", deleted, err)
				if err != nil {
					return fmt.Errorf("sweep tags: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d unused tags\n", deleted)
				return nil
			})
		},
	}
}

func newTagsCommand(opts *rootOptions) *cobra.Command {
	var (
		galleryID uint
		search    string
	)

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List the tags used in a gallery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *entrypoint.App) error {
				var (
					list []entities.Tag
					err  error
				)
				if search != "" {
					list, err = app.Gallery.SearchTags(search, galleryID)
				} else {
					list, err = app.Gallery.ListTags(galleryID)
				}
				if err != nil {
					return err
				}
				for _, tag := range list {
					fmt.Fprintln(cmd.OutOrStdout(), tag.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().UintVar(&galleryID, "gallery", 0, "gallery ID")
	cmd.Flags().StringVar(&search, "search", "", "only tags containing this text")
	_ = cmd.MarkFlagRequired("gallery")
	return cmd
}
