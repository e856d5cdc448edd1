// Package cli provides the docqa command line interface.
// It is a driving adapter: commands translate flags and arguments into
// calls on the driving ports and print the results.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// annotationStandalone marks commands that run without the core services.
const annotationStandalone = "standalone"

// Services bundles the driving ports and lifecycle hooks the commands use.
type Services struct {
	Settings  driving.SettingsService
	Ingest    driving.IngestService
	Retriever driving.RetrieverService

	// Chat is nil when no chat model is configured.
	Chat driving.ChatService

	Admin driving.IndexAdmin

	// Config is the resolved configuration the services were built from.
	Config *domain.Config

	// Save persists the index after commands that modify it.
	Save func(ctx context.Context) error

	// Close releases stores and clients.
	Close func() error
}

// Bootstrap builds the services for the given config file path.
// An empty path selects the default location.
type Bootstrap func(ctx context.Context, configPath string) (*Services, error)

var (
	version = "dev"

	configPath string
	verbose    bool

	bootstrap Bootstrap

	settingsService  driving.SettingsService
	ingestService    driving.IngestService
	retrieverService driving.RetrieverService
	chatService      driving.ChatService
	adminService     driving.IndexAdmin
	appConfig        *domain.Config
	saveIndex        func(ctx context.Context) error
	closeServices    func() error
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa indexes PDF, text, JSON, Word and CSV files into a local vector
store and answers questions about them with a chat model, citing the
passages it used.

Typical use:
  docqa ingest ./data/documents
  docqa ask "What were the third quarter results?"
  docqa chat`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.docqa/config.toml, '-' for none)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// setup loads .env, configures logging and builds the services unless
// they were injected already or the command does not need them.
func setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	logger.SetVerbose(verbose)

	if _, ok := cmd.Annotations[annotationStandalone]; ok {
		return nil
	}
	if settingsService != nil || bootstrap == nil {
		return nil
	}

	services, err := bootstrap(commandContext(cmd), configPath)
	if err != nil {
		return err
	}
	SetServices(services)
	return nil
}

// SetServices injects the services used by the commands.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	settingsService = s.Settings
	ingestService = s.Ingest
	retrieverService = s.Retriever
	chatService = s.Chat
	adminService = s.Admin
	appConfig = s.Config
	saveIndex = s.Save
	closeServices = s.Close
}

// Execute runs the root command. The bootstrap is called once, before the
// first command that needs services.
func Execute(ctx context.Context, v string, boot Bootstrap) error {
	version = v
	bootstrap = boot

	err := rootCmd.ExecuteContext(ctx)
	if closeServices != nil {
		if cerr := closeServices(); cerr != nil {
			logger.Warn("closing services: %v", cerr)
		}
	}
	return err
}

// persist saves the index if the services provide a save hook.
func persist(ctx context.Context) error {
	if saveIndex == nil {
		return nil
	}
	return saveIndex(ctx)
}

// config returns the resolved configuration, falling back to defaults.
func config() domain.Config {
	if appConfig != nil {
		return *appConfig
	}
	return domain.DefaultConfig()
}

// commandContext returns the command's context or a background context.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// errChatUnavailable is returned by commands that need a chat model.
var errChatUnavailable = fmt.Errorf("%w: run 'docqa settings' to check the LLM provider", domain.ErrLLMUnavailable)
