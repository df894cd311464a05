package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Manage the player this CLI acts as",
	}

	cmd.AddCommand(
		newPlayerAnonymousCmd(),
		newPlayerRegisterCmd(),
		newPlayerLoginCmd(),
		newPlayerMeCmd(),
		newPlayerMainCharacterCmd(),
	)
	return cmd
}

// printAndSave stores creds for later invocations, then prints result
func printAndSave(creds Credentials, result any) error {
	if err := cfg.SaveCredentials(creds); err != nil {
		return fmt.Errorf("saving credentials to %s: %w", cfg.CredentialsFile, err)
	}
	NewOutput(cfg.Output).Print(result)
	return nil
}

func newPlayerAnonymousCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "anonymous",
		Short: "Start as an anonymous player and remember its session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AnonymousResult
			if err := client.Post("/api/v1/players/anonymous", map[string]string{"username": name}, &result); err != nil {
				return err
			}
			return printAndSave(Credentials{SessionToken: result.SessionToken}, result)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (the server picks one when empty)")
	return cmd
}

// accountFlags are the username and password shared by register and login
type accountFlags struct {
	user string
	pass string
}

func (f *accountFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&f.pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")
}

func (f *accountFlags) body() map[string]string {
	return map[string]string{"username": f.user, "password": f.pass}
}

// exchange posts account credentials and keeps the returned bearer token
func exchange(path string, body map[string]string) error {
	var result AuthResult
	if err := client.Post(path, body, &result); err != nil {
		return err
	}
	return printAndSave(Credentials{Token: result.Token}, result)
}

func newPlayerRegisterCmd() *cobra.Command {
	var account accountFlags

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account, converting the stored anonymous player if there is one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exchange("/api/v1/players/register", account.body())
		},
	}

	account.bind(cmd)
	return cmd
}

func newPlayerLoginCmd() *cobra.Command {
	var account accountFlags
	var merge bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := account.body()
			if merge && cfg.Session != "" {
				body["merge_session_token"] = cfg.Session
			}
			return exchange("/api/v1/players/login", body)
		},
	}

	account.bind(cmd)
	cmd.Flags().BoolVar(&merge, "merge", false, "Check the stored anonymous session against this account")
	return cmd
}

func newPlayerMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var me Player
			if err := client.Get("/api/v1/players/me", &me); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(me)
			return nil
		},
	}
}

func newPlayerMainCharacterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "main-character <character-id>",
		Short: "Choose the character used by default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var me Player
			if err := client.Put("/api/v1/players/me/main-character", map[string]string{"character_id": args[0]}, &me); err != nil {
				return err
			}
			NewOutput(cfg.Output).Print(me)
			return nil
		},
	}
}
