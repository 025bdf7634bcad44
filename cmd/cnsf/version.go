package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cdhutch/cnsf"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cnsf",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cnsf version %s\n", cnsf.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
