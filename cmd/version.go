package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mydms/internal/appinfo"
)

// Version, Build and BuildDate are set via ldflags at build time.
var (
	Version   = "dev"
	Build     = ""
	BuildDate = ""
)

// versionInfo is what /api/v1/appinfo reports.
func versionInfo() appinfo.VersionInfo {
	return appinfo.VersionInfo{
		Version:     Version,
		BuildNumber: Build,
		BuildDate:   BuildDate,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of mydms",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mydms %s", Version)
		if Build != "" {
			fmt.Printf(" (build %s", Build)
			if BuildDate != "" {
				fmt.Printf(", %s", BuildDate)
			}
			fmt.Print(")")
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
