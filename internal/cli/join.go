package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <share-code>",
		Short: "Show what a share code leads to without joining",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Preview

			if err := client.Get("/api/v1/join/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newJoinCmd() *cobra.Command {
	var displayName string
	var character characterFlags

	cmd := &cobra.Command{
		Use:   "join <share-code>",
		Short: "Join a list by its share code",
		Long: `Join a list by its share code.

Without stored credentials a new anonymous player is created and its
session token is saved for later commands.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{}
			if displayName != "" {
				req["display_name"] = displayName
			}
			character.apply(req)
			var result JoinResult

			if err := client.Post("/api/v1/join/"+url.PathEscape(args[0]), req, &result); err != nil {
				return err
			}

			if result.SessionToken != "" {
				if err := cfg.SaveCredentials(Credentials{SessionToken: result.SessionToken}); err != nil {
					return fmt.Errorf("failed to save credentials: %w", err)
				}
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&displayName, "name", "", "Display name for a new anonymous player")
	character.register(cmd)

	return cmd
}
