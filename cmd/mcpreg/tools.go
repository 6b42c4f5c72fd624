package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/voxkit/mcp-server-registry-go/pkg/mcpreg"
)

var toolsCmd = &cobra.Command{
	Use:   "tools [server]",
	Short: "List tools exposed by all servers, or by one server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	return withRegistry(cmd.Context(), func(reg *mcpreg.Registry) error {
		var tools []*mcp.Tool
		if len(args) == 1 {
			cached, ok := reg.ServerTools(args[0])
			if !ok {
				return fmt.Errorf("unknown server %q", args[0])
			}
			tools = cached
		} else {
			var err error
			tools, err = reg.AllTools(cmd.Context())
			if err != nil {
				return err
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOOL\tDESCRIPTION")
		for _, tool := range tools {
			fmt.Fprintf(w, "%s\t%s\n", tool.Name, truncate(tool.Description, 80))
		}
		return w.Flush()
	})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
