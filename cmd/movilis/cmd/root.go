package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is the release version, set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "movilis",
	Short: "Movilis issues and verifies signed course certificates",
	Long: `Movilis renders course certificates to PDF, signs them with the issuer's
personal credential and answers public verification queries by code.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
