package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	loaded, loadErr := LoadConfig()
	if loadErr != nil {
		loaded = &Config{ServerURL: "http://localhost:8080", Output: "text", CredentialsFile: defaultCredentialsFile()}
	}
	cfg = loaded

	rootCmd := &cobra.Command{
		Use:   "soulpit",
		Short: "CLI tool for the Soul Pit tracker API",
		Long: `soulpit is a CLI tool for the Soul Pit tracker JSON API.

It covers players and characters, shared soul core lists, joining lists
by share code, and streaming a list's live events.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if loadErr != nil {
				return loadErr
			}
			if err := cfg.LoadCredentials(); err != nil {
				return err
			}

			client = NewClient(cfg.ServerURL, cfg.Token, cfg.Session)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: SOULPIT_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Bearer token (env: SOULPIT_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.Session, "session", cfg.Session, "Anonymous session token (env: SOULPIT_SESSION)")
	rootCmd.PersistentFlags().StringVar(&cfg.CredentialsFile, "credentials-file", cfg.CredentialsFile, "Credentials file path (env: SOULPIT_CREDENTIALS_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	rootCmd.AddCommand(newPlayerCmd())
	rootCmd.AddCommand(newCharacterCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newJoinCmd())
	rootCmd.AddCommand(newCoreCmd())
	rootCmd.AddCommand(newCollectionCmd())
	rootCmd.AddCommand(newHighscoresCmd())
	rootCmd.AddCommand(newCreaturesCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
