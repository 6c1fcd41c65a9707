package cmd

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tosho/utils"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered sources",
	Run: func(cmd *cobra.Command, args []string) {
		srcs := registry.All()

		if jsonOutput {
			type entry struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				URL  string `json:"url"`
			}
			out := make([]entry, 0, len(srcs))
			for _, s := range srcs {
				out = append(out, entry{ID: s.ID(), Name: s.Name(), URL: s.BaseURL()})
			}
			utils.WriteJSON(out, nil)
			return
		}

		rows := make([][]string, 0, len(srcs))
		for _, s := range srcs {
			rows = append(rows, []string{s.ID(), s.Name(), s.BaseURL()})
		}
		table := tablewriter.NewTable(os.Stdout)
		table.Header("ID", "Name", "URL")
		_ = table.Bulk(rows)
		_ = table.Render()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
