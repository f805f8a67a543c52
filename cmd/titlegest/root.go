package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "titlegest",
	Short: "Detect section titles in documents from font-size transitions",
	Long: `Titlegest reconstructs the text of a document page by page and detects
section titles: runs of text whose font height rises to or above a threshold,
stay there, then fall back below it.

Supported inputs: PDF, Markdown, HTML, DOCX, XLSX and plain text.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./titlegest.yaml or ~/.titlegest/titlegest.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// cliLogger logs to stderr so stdout stays clean for results.
func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
