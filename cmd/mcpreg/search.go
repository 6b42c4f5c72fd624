package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voxkit/mcp-server-registry-go/pkg/mcpreg"
	"github.com/voxkit/mcp-server-registry-go/pkg/toolindex"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over tool names and descriptions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of hits")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withRegistry(cmd.Context(), func(reg *mcpreg.Registry) error {
		idx, err := toolindex.New()
		if err != nil {
			return err
		}
		defer idx.Close()
		if err := idx.Sync(reg.ToolSnapshot()); err != nil {
			return err
		}

		hits, err := idx.Search(strings.Join(args, " "), searchLimit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("no matching tools")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SERVER\tTOOL\tSCORE\tDESCRIPTION")
		for _, hit := range hits {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", hit.Server, hit.Tool, hit.Score, truncate(hit.Description, 60))
		}
		return w.Flush()
	})
}
