// Package cli provides the docsearch command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// Options are the global flags, passed to the Bootstrap function.
type Options struct {
	// ConfigPath overrides the config file location. Empty means the default.
	ConfigPath string

	// Verbose enables debug logging.
	Verbose bool
}

// Services are the driving ports the commands call.
type Services struct {
	Ingest   driving.IngestService
	Search   driving.SearchService
	Document driving.DocumentService
	Settings driving.SettingsService

	// Supports reports whether a declared type can be extracted.
	Supports func(declaredType string) bool

	// ConfigPath is the resolved config file location, shown by "config show".
	ConfigPath string

	// CheckEmbedding sends a test request to the configured embedding provider. May be nil.
	CheckEmbedding func() error

	// Close releases resources. May be nil.
	Close func() error
}

// Bootstrap builds the services once global flags are known.
type Bootstrap func(opts Options) (*Services, error)

var (
	bootstrap Bootstrap
	opts      Options

	ingestService   driving.IngestService
	searchService   driving.SearchService
	documentService driving.DocumentService
	settingsService driving.SettingsService
	supportsType    func(declaredType string) bool
	configPath      string
	checkEmbedding  func() error
	closeServices   func() error
)

var rootCmd = &cobra.Command{
	Use:   "docsearch",
	Short: "Index local documents and search them semantically",
	Long: `docsearch extracts text from local documents, splits it into overlapping
chunks, embeds each chunk and stores the vectors in a local index for
nearest-neighbour search.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "",
		"config file (default ~/.docsearch/config.toml, env DOCSEARCH_CONFIG)")
}

// SetBootstrap registers the function that builds services before a command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs already-built services.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	ingestService = s.Ingest
	searchService = s.Search
	documentService = s.Document
	settingsService = s.Settings
	supportsType = s.Supports
	configPath = s.ConfigPath
	checkEmbedding = s.CheckEmbedding
	closeServices = s.Close
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// setup applies global flags and builds services on first use.
// Commands that need no services (version, help) still run without a bootstrap.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if !needsServices(cmd) || bootstrap == nil || searchService != nil {
		return nil
	}

	s, err := bootstrap(opts)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	SetServices(s)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

func needsServices(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return false
	}
	return true
}

// errNotConfigured reports a missing service, which means the binary was
// built without a bootstrap.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
