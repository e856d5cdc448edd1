package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the configuration: AI providers, vector store, chunking,
retrieval and memory.

Settings are stored in the TOML config file. Environment variables
(OPENAI_API_KEY, ANTHROPIC_API_KEY, DOCQA_<SECTION>_<KEY>) and a .env
file in the working directory override it.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a setting by its dotted key, for example:

  docqa settings set retrieval.strategy hybrid
  docqa settings set chunking.size 800
  docqa settings set ingest.exclude "archive/**,*.tmp"

Run 'docqa settings keys' for the full list.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Interactively configure the embedding provider used to index and query documents.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Interactively configure the chat model that answers questions.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config file: %s\n", settingsService.ConfigPath())
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Printf("  Batch size: %d\n", settings.Embedding.BatchSize)
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Printf("  Temperature: %.2f\n", settings.LLM.Temperature)
	cmd.Println()

	cmd.Println("[Vector Store]")
	cmd.Printf("  Type: %s\n", settings.VectorStore.Type.Description())
	cmd.Printf("  Persist directory: %s\n", settings.VectorStore.PersistDirectory)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d\n", settings.Chunker.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunker.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Strategy: %s\n", settings.Retrieval.Strategy.Description())
	cmd.Printf("  K: %d\n", settings.Retrieval.K)
	if settings.Retrieval.Strategy == domain.StrategyHybrid {
		cmd.Printf("  Weights: vector %.2f, lexical %.2f\n",
			settings.Retrieval.VectorWeight, settings.Retrieval.LexicalWeight)
	}
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Data directory: %s\n", settings.Ingest.DataDir)
	if len(settings.Ingest.Include) > 0 {
		cmd.Printf("  Include: %s\n", strings.Join(settings.Ingest.Include, ", "))
	}
	if len(settings.Ingest.Exclude) > 0 {
		cmd.Printf("  Exclude: %s\n", strings.Join(settings.Ingest.Exclude, ", "))
	}
	cmd.Println()

	cmd.Println("[Memory]")
	cmd.Printf("  Window: %d turns\n", settings.Memory.Window)
	cmd.Println()

	for _, w := range settingsService.Warnings() {
		cmd.Printf("Note: %s\n", w)
	}
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docqa settings embedding' or 'docqa settings llm' to fix provider issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if strings.HasSuffix(key, "api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

// providerWizard describes one interactive provider prompt.
type providerWizard struct {
	section   string // config section, "embedding" or "llm"
	label     string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	validate  func() error
	note      string
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return runProviderWizard(cmd, bufio.NewReader(cmd.InOrStdin()), providerWizard{
		section:   "embedding",
		label:     "Embedding",
		providers: domain.AllEmbeddingProviders(),
		defaults:  domain.DefaultEmbeddingModels(),
		validate:  settingsService.ValidateEmbeddingConfig,
		note:      "Re-run 'docqa ingest' if the model changed; existing vectors are not comparable.",
	})
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return runProviderWizard(cmd, bufio.NewReader(cmd.InOrStdin()), providerWizard{
		section:   "llm",
		label:     "LLM",
		providers: domain.AllLLMProviders(),
		defaults:  domain.DefaultLLMModels(),
		validate:  settingsService.ValidateLLMConfig,
	})
}

// runProviderWizard asks for provider, model and key, stores them and pings
// the provider with the new values.
func runProviderWizard(cmd *cobra.Command, reader *bufio.Reader, w providerWizard) error {
	cmd.Printf("Select %s Provider\n", w.label)
	for i, p := range w.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := w.providers[parseChoice(readLine(reader), len(w.providers), 1)-1]

	model := w.defaults[provider]
	cmd.Printf("Enter model name [%s]: ", model)
	if in := readLine(reader); in != "" {
		model = in
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := setAll(
		[2]string{w.section + ".provider", provider.String()},
		[2]string{w.section + ".model", model},
		[2]string{w.section + ".api_key", apiKey},
	); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", w.label, err)
	}

	cmd.Print("Validating configuration... ")
	if err := w.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", strings.ToLower(w.label), err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", w.label, provider.Description(), model)
	if w.note != "" {
		cmd.Println(w.note)
	}
	return nil
}

// setAll stores the non-empty key/value pairs in order.
func setAll(pairs ...[2]string) error {
	for _, kv := range pairs {
		if kv[1] == "" {
			continue
		}
		if err := settingsService.Set(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret without echo when stdin is a terminal.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
