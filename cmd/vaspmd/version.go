package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timewinder-dev/vaspmd/snapshot"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of vaspmd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vaspmd version %s (snapshot format %d)\n", version, snapshot.Version)
	},
}
