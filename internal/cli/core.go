package cli

import (
	"github.com/spf13/cobra"
)

func newCoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "core",
		Short: "Soul core tracking commands",
	}

	cmd.AddCommand(newCoreAddCmd())
	cmd.AddCommand(newCoreObtainCmd())
	cmd.AddCommand(newCoreUnlockCmd())
	cmd.AddCommand(newCoreSummaryCmd())

	return cmd
}

func newCoreAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <list-id> <creature-id>",
		Short: "Start tracking a creature's soul core",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"creature_id": args[1]}
			var result SoulCore

			if err := client.Post(listPath(args[0], "cores"), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newCoreObtainCmd() *cobra.Command {
	var characterID string

	cmd := &cobra.Command{
		Use:   "obtain <list-id> <creature-id>",
		Short: "Record that a member character obtained a soul core",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"character_id": characterID}
			var result SoulCore

			if err := client.Post(listPath(args[0], "cores", args[1], "obtain"), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&characterID, "character-id", "", "Member character that obtained it (required)")
	_ = cmd.MarkFlagRequired("character-id")

	return cmd
}

func newCoreUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <list-id> <creature-id>",
		Short: "Record that an obtained soul core was used in the Soul Pit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SoulCore

			if err := client.Post(listPath(args[0], "cores", args[1], "unlock"), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newCoreSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <list-id>",
		Short: "Show a list's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Summary

			if err := client.Get(listPath(args[0], "summary"), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newCreaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "creatures",
		Short: "List the creatures whose soul cores can be tracked",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Items[Creature]

			if err := client.Get("/api/v1/creatures", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
