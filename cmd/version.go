package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the TaskSense version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tasksense %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
