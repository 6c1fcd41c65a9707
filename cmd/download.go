package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tosho/engine"
	"tosho/utils"
)

var downloadOutput string

var downloadCmd = &cobra.Command{
	Use:   "download <source> <chapter-id>",
	Short: "Download a chapter's pages",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, ok := registry.Get(args[0])
		if !ok {
			return engine.NotFoundf("source %q is not registered", args[0])
		}

		dir, err := downloadWithProgress(cmd.Context(), src, args[1])
		if err != nil {
			if jsonOutput {
				utils.WriteJSON(nil, err)
				return nil
			}
			return err
		}

		if jsonOutput {
			utils.WriteJSON(map[string]string{"path": dir}, nil)
			return nil
		}
		color.Green("Saved to %s", dir)
		return nil
	},
}

func downloadWithProgress(ctx context.Context, src engine.Source, chapterID string) (string, error) {
	reporter, ok := src.(engine.ProgressReporter)
	if !ok || jsonOutput {
		return src.DownloadChapter(ctx, chapterID, downloadOutput)
	}
	return reporter.DownloadChapterWithProgress(ctx, chapterID, downloadOutput, func(p engine.DownloadProgress) {
		if p.Completed {
			fmt.Printf("\rDownloaded %d/%d pages\n", p.Current, p.Total)
			return
		}
		fmt.Printf("\rPage %d/%d", p.Current, p.Total)
	})
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", ".", "output directory")
	rootCmd.AddCommand(downloadCmd)
}
