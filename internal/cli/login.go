package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log the gateway's session in",
		Long: "Asks a running gateway to establish its Steam session. When no cached\n" +
			"refresh token works, the serve process prompts for credentials on its own\n" +
			"terminal; this command waits for the outcome.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := loadClientConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout(cfg))
			defer cancel()

			if err := client.Login(ctx); err != nil {
				return err
			}
			fmt.Println("Logged in")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log the gateway's session off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClientConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := client.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("Logged off")
			return nil
		},
	}
}
