package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	// Register the bundled store drivers.
	_ "github.com/documap/documap/pkg/database/mongodb"
)

var (
	configFile string
	version    = "0.1.0"
	// Build information variables
	GitCommit = "unknown" // Git commit hash
	BuildTime = "unknown" // Build timestamp
)

// printVersionInfo displays detailed version information
func printVersionInfo() {
	fmt.Printf("documap v%s\n", version)
	fmt.Printf("Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "documap",
	Short: "Document store data mapper",
	Long: "A CLI for working with mapped document collections: fetching, inserting, " +
		"updating, deleting and counting documents through a connection profile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("version") != nil && cmd.Flags().Lookup("version").Changed {
			printVersionInfo()
			return nil
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.ExpandEnv("$HOME/.documap/config.yaml"), "Path to connection profile")

	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	setupCommands()
}

func main() {
	Execute()
}
