// Command sendlr runs the newsletter service: the HTTP API, the
// delivery worker and database migrations.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "sendlr",
		Short: "Personalized newsletter delivery service",
	}
	root.AddCommand(serveCMD(), workerCMD(), migrateCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
