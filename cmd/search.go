package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"tosho/engine"
	"tosho/utils"
)

var (
	searchSource string
	searchLimit  int
	searchSort   string
	searchDedupe bool
	searchRank   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search manga across sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]
		ctx := cmd.Context()

		builder := registry.Search(query).
			Limit(searchLimit).
			SortBy(engine.ParseSortOrder(searchSort))

		var results engine.MangaList
		var err error
		if searchSource != "" {
			results, err = builder.FromSource(ctx, searchSource)
		} else {
			results, err = builder.Flatten(ctx)
		}
		if err != nil {
			if jsonOutput {
				utils.WriteJSON(nil, err)
				return nil
			}
			return err
		}

		if searchDedupe {
			results = results.DedupeByTitle()
		}
		if searchRank {
			results = results.SortByQueryRelevance(query)
		}

		if jsonOutput {
			utils.WriteJSON(results, nil)
			return nil
		}

		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		rows := make([][]string, 0, len(results))
		for _, m := range results {
			rows = append(rows, []string{m.SourceID, m.ID, m.Title, strings.Join(m.Authors, ", ")})
		}
		table := tablewriter.NewTable(os.Stdout)
		table.Header("Source", "ID", "Title", "Authors")
		_ = table.Bulk(rows)
		_ = table.Render()
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchSource, "source", "s", "", "search a single source by ID")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "maximum results per source")
	searchCmd.Flags().StringVar(&searchSort, "sort", "relevance", "sort order: relevance, updated, created, title")
	searchCmd.Flags().BoolVar(&searchDedupe, "dedupe", false, "drop duplicate titles across sources")
	searchCmd.Flags().BoolVar(&searchRank, "rank", false, "re-rank results by query relevance")
	rootCmd.AddCommand(searchCmd)
}
