// Package main provides the CLI entry point for gifsizer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName    = "gifsizer"
	appVersion = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Convert videos to GIFs that fit a size limit",
	Long: `gifsizer converts videos and animations to GIFs with gifski and gifsicle,
searching quality, lossy compression and frame rate for the highest quality
result that fits under a target size.

Examples:
  gifsizer convert -i clip.mp4 -o out/ --size 2048
  gifsizer convert -i clip.mp4 -o small.gif --size 1.5M --preset small
  gifsizer convert -i videos/ -o gifs/ --size 500 --lock-quality
  gifsizer history --limit 5`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
	},
}

func init() {
	rootCmd.Version = appVersion
	rootCmd.AddCommand(newConvertCmd(), newHistoryCmd(), versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
