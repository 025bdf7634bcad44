package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the resolved project configuration and repository state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ws := openWorkspace()
		if _, err := ws.Repository().Index(cmd.Context()); err != nil {
			fmt.Printf("warning: %v\n", err)
		}
		data, err := json.MarshalIndent(map[string]any{
			"component": ws.ComponentType(),
			"state":     ws.State(),
		}, "", "  ")
		if err != nil {
			fatal("Failed to encode state", err)
		}
		fmt.Println(string(data))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
