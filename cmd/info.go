package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tosho/engine"
	"tosho/utils"
)

var infoCmd = &cobra.Command{
	Use:   "info <source> <manga-id>",
	Short: "Show a manga's metadata",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, ok := registry.Get(args[0])
		if !ok {
			return engine.NotFoundf("source %q is not registered", args[0])
		}
		detailer, ok := src.(engine.MangaDetailer)
		if !ok {
			return engine.Sourcef(args[0], "source does not expose manga details")
		}

		manga, err := detailer.GetManga(cmd.Context(), args[1])
		if err != nil {
			if jsonOutput {
				utils.WriteJSON(nil, err)
				return nil
			}
			return err
		}

		if jsonOutput {
			utils.WriteJSON(manga, nil)
			return nil
		}

		color.New(color.Bold).Println(manga.Title)
		if len(manga.Authors) > 0 {
			fmt.Printf("Authors: %s\n", strings.Join(manga.Authors, ", "))
		}
		if len(manga.Tags) > 0 {
			fmt.Printf("Tags:    %s\n", strings.Join(manga.Tags, ", "))
		}
		if manga.CoverURL != "" {
			fmt.Printf("Cover:   %s\n", manga.CoverURL)
		}
		if manga.Description != "" {
			fmt.Printf("\n%s\n", manga.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
