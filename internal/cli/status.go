package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state of a running gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClientConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			st, err := client.Status(ctx)
			if err != nil {
				return err
			}

			if !st.LoggedIn {
				fmt.Println("Not logged in")
				return nil
			}
			fmt.Printf("Logged in as %s (steamID %d)\n", st.Name, st.SteamID)
			if st.LastSentAt != nil {
				fmt.Printf("Last message sent %s\n", st.LastSentAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func newUserInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "userinfo",
		Short: "Show the logged-on account and its chat groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClientConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			info, err := client.UserInfo(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Account: %s (steamID %d)\n", info.Name, info.ID)
			if len(info.Groups) == 0 {
				fmt.Println("Groups:  (none)")
				return nil
			}
			fmt.Println("Groups:")
			for _, g := range info.Groups {
				fmt.Printf("  %s  %s\n", g.ID, g.Name)
			}
			return nil
		},
	}
}
