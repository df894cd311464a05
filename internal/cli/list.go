package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Soul core list commands",
	}

	cmd.AddCommand(newListCreateCmd())
	cmd.AddCommand(newListMineCmd())
	cmd.AddCommand(newListGetCmd())
	cmd.AddCommand(newListRotateCodeCmd())
	cmd.AddCommand(newListLeaveCmd())
	cmd.AddCommand(newListKickCmd())

	return cmd
}

// characterFlags selects a character either by id or by in-game name
type characterFlags struct {
	id   string
	name string
}

func (f *characterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "character-id", "", "Use one of your registered characters")
	cmd.Flags().StringVar(&f.name, "character", "", "Register and use a character by in-game name")
	cmd.MarkFlagsMutuallyExclusive("character-id", "character")
	cmd.MarkFlagsOneRequired("character-id", "character")
}

func (f *characterFlags) apply(req map[string]string) {
	if f.id != "" {
		req["character_id"] = f.id
	}
	if f.name != "" {
		req["character_name"] = f.name
	}
}

func listPath(id string, parts ...string) string {
	path := "/api/v1/lists/" + url.PathEscape(id)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

func newListCreateCmd() *cobra.Command {
	var name, description, world string
	var character characterFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a list with one of your characters as owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": name}
			if description != "" {
				req["description"] = description
			}
			if world != "" {
				req["world"] = world
			}
			character.apply(req)
			var result List

			if err := client.Post("/api/v1/lists", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "List name (required)")
	cmd.Flags().StringVar(&description, "description", "", "List description")
	cmd.Flags().StringVar(&world, "world", "", "Restrict members to this world")
	_ = cmd.MarkFlagRequired("name")
	character.register(cmd)

	return cmd
}

func newListMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "Show the lists you belong to",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Items[ListItem]

			if err := client.Get("/api/v1/lists", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newListGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <list-id>",
		Short: "Show a list with its members and soul cores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result List

			if err := client.Get(listPath(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newListRotateCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-code <list-id>",
		Short: "Replace the list's share code, invalidating the old one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result List

			if err := client.Post(listPath(args[0], "rotate-code"), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newListLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <list-id>",
		Short: "Leave a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(listPath(args[0], "leave"), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Left list %s", args[0]))
			return nil
		},
	}
}

func newListKickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kick <list-id> <player-id>",
		Short: "Remove a member from a list you own",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(listPath(args[0], "members", args[1])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Removed %s from list %s", args[1], args[0]))
			return nil
		},
	}
}
