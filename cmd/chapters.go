package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tosho/engine"
	"tosho/utils"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters <source> <manga-id>",
	Short: "List the chapters of a manga",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, ok := registry.Get(args[0])
		if !ok {
			return engine.NotFoundf("source %q is not registered", args[0])
		}

		chapters, err := src.GetChapters(cmd.Context(), args[1])
		if err != nil {
			if jsonOutput {
				utils.WriteJSON(nil, err)
				return nil
			}
			return err
		}

		if jsonOutput {
			utils.WriteJSON(chapters, nil)
			return nil
		}

		if len(chapters) == 0 {
			fmt.Println("No chapters.")
			return nil
		}
		rows := make([][]string, 0, len(chapters))
		for _, c := range chapters {
			number := strconv.FormatFloat(c.Number, 'f', -1, 64)
			rows = append(rows, []string{number, c.Title, c.ID})
		}
		table := tablewriter.NewTable(os.Stdout)
		table.Header("Number", "Title", "ID")
		_ = table.Bulk(rows)
		_ = table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chaptersCmd)
}
