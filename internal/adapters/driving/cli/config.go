package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	Long:  `Prints the settings in effect, with defaults filled in, and validates them.`,
	RunE:  runConfigShow,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and reach the embedding provider",
	Long: `Validates the settings and sends a test request to the embedding provider.
Fails when the settings are invalid or the provider cannot be reached.`,
	RunE: runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Current Settings"))
	if configPath != "" {
		cmd.Println(mutedStyle.Render(configPath))
	}
	cmd.Println()

	cmd.Println(subtitleStyle.Render("[Chunking]"))
	cmd.Printf("  Size: %d\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println(subtitleStyle.Render("[Index]"))
	cmd.Printf("  Dimensions: %d\n", settings.Index.Dimensions)
	cmd.Printf("  Directory: %s\n", settings.Index.Dir)
	cmd.Println()

	cmd.Println(subtitleStyle.Render("[Search]"))
	cmd.Printf("  Top K: %d\n", settings.Search.TopK)
	cmd.Println()

	cmd.Println(subtitleStyle.Render("[Ingest]"))
	cmd.Printf("  Workers: %d\n", settings.Ingest.Workers)
	cmd.Printf("  Queue Size: %d\n", settings.Ingest.QueueSize)
	cmd.Printf("  Watch Debounce: %s\n", settings.Ingest.WatchDebounce)
	cmd.Println()

	cmd.Println(subtitleStyle.Render("[Embedding]"))
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	if settings.Embedding.RateLimit > 0 {
		cmd.Printf("  Rate Limit: %.2f/s (burst %d)\n", settings.Embedding.RateLimit, settings.Embedding.Burst)
	}
	status := successStyle.Render("configured")
	if !settings.Embedding.IsConfigured() {
		status = warningStyle.Render("not configured")
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Println(warningStyle.Render(fmt.Sprintf("Warning: %v", err)))
	} else {
		cmd.Println(successStyle.Render("Configuration is valid."))
	}
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	if err := settingsService.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	cmd.Println(successStyle.Render("Settings are valid."))

	if checkEmbedding == nil {
		cmd.Println(warningStyle.Render("Embedding check not available."))
		return nil
	}
	if err := checkEmbedding(); err != nil {
		return err
	}
	cmd.Println(successStyle.Render("Embedding provider reachable."))
	return nil
}
