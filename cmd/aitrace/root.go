package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/aitrace/internal/api"
	"github.com/jackzampolin/aitrace/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "aitrace",
	Short: "Detect AI-generated text and highlight AI-writing traces",
	Long: `aitrace classifies text as AI-generated or human-written using a
configurable language model, and marks heuristic traces of machine writing.

It provides:
  - Model-backed classification with a strict, always-valid result shape
  - Local trace annotation: word repetition, overlong lines,
    formal connectors and complex sentence structures
  - Multiple model providers (DashScope/Qwen, OpenAI, OpenRouter,
    Anthropic, Gemini) with hot-reloaded configuration`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.aitrace/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
