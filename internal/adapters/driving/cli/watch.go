package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/connectors/filesystem"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload a folder's documents and follow changes",
	Long: `Upload every .txt, .md and .pdf file under a folder, then keep watching it.
New files are uploaded and edited files replace their previous version.
Files with identical content are skipped. Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchEmbed bool
	watchOnce  bool
)

func init() {
	watchCmd.Flags().BoolVar(&watchEmbed, "embed", false, "generate embeddings for uploaded files")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "sync once and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if folderSyncService == nil {
		return errors.New("folder sync service not configured")
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", args[0], err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", args[0])
	}

	source := filesystem.New(args[0])
	defer source.Close()

	opts := driving.FolderSyncOptions{
		Embed:   watchEmbed,
		OnEvent: folderEventPrinter(cmd),
	}

	if watchOnce {
		report, err := folderSyncService.Sync(cmd.Context(), source, opts)
		if report != nil {
			cmd.Printf("Added %d, replaced %d, skipped %d, failed %d\n",
				report.Added, report.Replaced, report.Skipped, report.Failed)
		}
		return err
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", source.Root())
	if err := folderSyncService.Watch(cmd.Context(), source, opts); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

func folderEventPrinter(cmd *cobra.Command) func(domain.FolderEvent) {
	return func(e domain.FolderEvent) {
		switch e.Action {
		case domain.FolderFailed:
			cmd.PrintErrf("  failed   %s: %v\n", e.Path, e.Err)
		case domain.FolderSkipped:
			cmd.Printf("  skipped  %s\n", e.Path)
		default:
			cmd.Printf("  %-8s %s -> document %d\n", e.Action, e.Path, e.DocumentID)
		}
	}
}
