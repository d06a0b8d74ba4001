package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/gallery/internal/entrypoint"
	"github.com/mrlokans/gallery/internal/tasks"
)

func newDeleteAlbumCommand(opts *rootOptions) *cobra.Command {
	var (
		albumID    uint
		background bool
	)

	cmd := &cobra.Command{
		Use:   "delete-album",
		Short: "Delete an album with its sub-albums, media objects and metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(app *entrypoint.App) error {
				if background {
					client, err := entrypoint.NewTaskClient(opts.cfg, app)
					if err != nil {
						return err
					}
					defer client.Close()

					ids, err := client.Add(tasks.DeleteAlbumTask{AlbumID: albumID}).Save()
					if err != nil {
						return fmt.Errorf("enqueue delete of album %d: %w", albumID, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Queued delete of album %d as task %s\n", albumID, ids[0])
					return nil
				}

				result, err := app.Gallery.DeleteAlbumByID(albumID)
				if err != nil {
					return fmt.Errorf("delete album %d: %w", albumID, err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Deleted %d albums\n", len(result.Albums))
				fmt.Fprintf(out, "Deleted %d media objects\n", result.MediaObjects)
				fmt.Fprintf(out, "Deleted %d metadata items\n", result.MetadataItems)
				fmt.Fprintf(out, "Deleted %d unused tags\n", result.TagsSwept)
				return nil
			})
		},
	}
	cmd.Flags().UintVar(&albumID, "id", 0, "album ID")
	cmd.Flags().BoolVar(&background, "background", false, "queue the delete for the task workers")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
