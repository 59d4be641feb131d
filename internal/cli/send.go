package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		groupID     string
		channelID   string
		channelName string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a chat message through the gateway",
		Long: "Sends a message to a group channel through a running gateway. When the\n" +
			"session has lapsed, the command logs back in once and retries.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")

			cfg, client, err := loadClientConfig()
			if err != nil {
				return err
			}

			if groupID == "" {
				groupID = cfg.Steam.DefaultGroupID
			}
			if channelID == "" && channelName == "" {
				channelName = cfg.Steam.DefaultChannelName
			}
			if groupID == "" || (channelID == "" && channelName == "") {
				return fmt.Errorf("no target: pass --group and --channel (or set steam.defaultGroupId and steam.defaultChannelName)")
			}

			req := sendRequest{
				GroupID:     groupID,
				ChannelID:   channelID,
				ChannelName: channelName,
				Message:     message,
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			err = client.Send(ctx, req)
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
				// The session lapsed underneath us. Log back in and
				// retry once; the login wait gets the longer budget.
				fmt.Println("Session expired, logging in again...")
				loginCtx, cancelLogin := context.WithTimeout(cmd.Context(), loginTimeout(cfg))
				defer cancelLogin()
				if err := client.Login(loginCtx); err != nil {
					return err
				}
				err = client.Send(loginCtx, req)
			}
			if err != nil {
				return err
			}

			fmt.Println("Message sent")
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "target group ID")
	cmd.Flags().StringVar(&channelID, "channel-id", "", "target channel ID")
	cmd.Flags().StringVar(&channelName, "channel", "", "target channel name")

	return cmd
}
