// Package cmd implements the go-content command line. The commands are
// thin shells: all build behavior lives in the builder, compiler, and
// project packages.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	flagConfigDir string
	flagProfile   string
	flagProject   string
)

var rootCmd = &cobra.Command{
	Use:   "go-content",
	Short: "Incremental content build pipeline for game assets",
	Long: `go-content builds game asset packages incrementally. Source files are
dispatched to external compiler processes according to the project's
pipeline definition; results, dependencies, and outputs are tracked in
per-package databases so unchanged resources are never rebuilt.`,
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config", "", "configuration directory (default ~/.go-content)")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "default", "configuration profile")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", ".", "project root directory")
}
