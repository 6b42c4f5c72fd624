package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voxkit/mcp-server-registry-go/pkg/mcpreg"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Connect configured servers and show their status",
	RunE:  runServers,
}

func init() {
	rootCmd.AddCommand(serversCmd)
}

func runServers(cmd *cobra.Command, args []string) error {
	return withRegistry(cmd.Context(), func(reg *mcpreg.Registry) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SERVER\tTOOLS\tCOMMAND")
		cfg := reg.Config()
		for _, name := range reg.ServerNames() {
			tools, _ := reg.ServerTools(name)
			command := ""
			if cfg != nil {
				command = cfg.Servers[name].Params.Command
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", name, len(tools), command)
		}
		return w.Flush()
	})
}
