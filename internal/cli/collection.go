package cli

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func collectionPath(characterID string, parts ...string) string {
	path := "/api/v1/characters/" + url.PathEscape(characterID)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

func newCollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"col"},
		Short:   "A character's own unlocked soul cores and suggestions",
	}

	cmd.AddCommand(newCollectionShowCmd())
	cmd.AddCommand(newCollectionChangeCmd("add", "Record a creature as unlocked by the character", "soulcores"))
	cmd.AddCommand(newCollectionRemoveCmd())
	cmd.AddCommand(newCollectionSuggestionsCmd())
	cmd.AddCommand(newCollectionChangeCmd("accept", "Accept a suggested creature", "suggestions", "accept"))
	cmd.AddCommand(newCollectionChangeCmd("dismiss", "Dismiss a suggested creature", "suggestions", "dismiss"))
	cmd.AddCommand(newCollectionPendingCmd())

	return cmd
}

func newCollectionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <character-id>",
		Short: "Show a character's collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Collection
			if err := client.Get(collectionPath(args[0], "soulcores"), &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

// newCollectionChangeCmd posts {creature_id} to a collection endpoint
func newCollectionChangeCmd(use, short string, endpoint ...string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <character-id> <creature-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Collection
			if err := client.Post(collectionPath(args[0], endpoint...), map[string]string{"creature_id": args[1]}, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newCollectionRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <character-id> <creature-id>",
		Short: "Drop a creature from a character's collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Collection
			if err := client.Do(http.MethodDelete, collectionPath(args[0], "soulcores", args[1]), nil, &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newCollectionSuggestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions <character-id>",
		Short: "List creatures suggested to one of your characters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Items[string]
			if err := client.Get(collectionPath(args[0], "suggestions"), &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newCollectionPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List open suggestions across all your characters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Items[Suggestions]
			if err := client.Get("/api/v1/players/me/suggestions", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newHighscoresCmd() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "highscores",
		Short: "Rank characters by the size of their collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Highscores
			if err := client.Get("/api/v1/highscores?page="+strconv.Itoa(page), &result); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page to show, counting from 1")

	return cmd
}
