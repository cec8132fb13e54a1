package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/aitrace/internal/api"
	"github.com/jackzampolin/aitrace/internal/server/endpoints"
)

var serverURL string

var llmcallsCmd = &cobra.Command{
	Use:   "llmcalls",
	Short: "LLM call history commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	registry := api.NewRegistry()
	for _, ep := range endpoints.TopLevelCommands() {
		registry.Register(ep)
	}
	apiCmd := registry.BuildCommands(getServerURL)

	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8000", "Server URL",
	)

	// LLM calls as subcommand group
	for _, ep := range endpoints.LLMCallCommands() {
		llmcallsCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(llmcallsCmd)
	rootCmd.AddCommand(apiCmd)
}
