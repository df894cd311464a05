package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newCharacterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "character",
		Aliases: []string{"char"},
		Short:   "Game character commands",
	}

	cmd.AddCommand(newCharacterListCmd())
	cmd.AddCommand(newCharacterAddCmd())
	cmd.AddCommand(newCharacterGetCmd())
	cmd.AddCommand(newCharacterRemoveCmd())
	cmd.AddCommand(newCharacterSyncCmd())

	return cmd
}

func newCharacterListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Items[Character]

			if err := client.Get("/api/v1/characters", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newCharacterAddCmd() *cobra.Command {
	var world string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a character by its in-game name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": args[0]}
			if world != "" {
				req["world"] = world
			}
			var result Character

			if err := client.Post("/api/v1/characters", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&world, "world", "", "Reject the character unless it lives on this world")

	return cmd
}

func newCharacterGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Character

			if err := client.Get("/api/v1/characters/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newCharacterRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a character that no list uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/characters/" + url.PathEscape(args[0])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Removed character %s", args[0]))
			return nil
		},
	}
}

func newCharacterSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <id>",
		Short: "Refresh a character's level and world from the game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Character

			if err := client.Post("/api/v1/characters/"+url.PathEscape(args[0])+"/sync", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
