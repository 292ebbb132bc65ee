package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Another0Noob/mangadex-progress/internal/config"
	"github.com/Another0Noob/mangadex-progress/internal/mangadexapi"
)

var (
	credentialsFile string
	configFile      string
	logLevel        string

	cfg    *config.Config
	store  *config.CredentialFile
	client *mangadexapi.Client
)

var rootCmd = &cobra.Command{
	Use:   "mangadex-progress",
	Short: "Show reading progress of your MangaDex library",
	Long: `mangadex-progress logs in to MangaDex with a personal API client and
reports how far you are in every manga of your library.

Credentials and tokens are kept in an ini file:

  [mangadex]
  username      = ...
  password      = ...
  client_id     = ...
  client_secret = ...

Values are read verbatim, so do not wrap them in quotes. MANGADEX_USERNAME,
MANGADEX_PASSWORD and the other MANGADEX_<KEY> variables override the file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&credentialsFile,
		"credentials",
		"c",
		"",
		"path to credentials ini file",
	)
	rootCmd.MarkPersistentFlagRequired("credentials")

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"path to YAML config file",
	)

	rootCmd.PersistentFlags().StringVar(
		&logLevel,
		"log-level",
		"",
		"log level (debug, info, warn, error)",
	)
}

func setup() error {
	// Logging is set up twice: once so config loading is logged with the
	// requested level, once more with the loaded format.
	boot := config.Default()
	if logLevel != "" {
		boot.Log.Level = logLevel
	}
	boot.SetupLogging(os.Stderr)

	var err error
	if cfg, err = config.Load(configFile); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	cfg.SetupLogging(os.Stderr)

	if store, err = config.LoadCredentials(credentialsFile); err != nil {
		return err
	}

	client = mangadexapi.NewClient(store, cfg.ClientOptions()...)
	return nil
}
