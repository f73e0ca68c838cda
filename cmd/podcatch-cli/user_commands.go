package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vrsandeep/podcatch/internal/auth"
	"github.com/vrsandeep/podcatch/internal/models"
	"github.com/vrsandeep/podcatch/internal/youtube"
)

func newUsersCommand(ctx *commandContext) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var admin bool
	createCmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user and print its first API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			username := strings.TrimSpace(args[0])
			if username == "" {
				return fmt.Errorf("username must not be empty")
			}
			role := models.RoleUser
			if admin {
				role = models.RoleAdmin
			}
			user, err := app.Store().CreateUser(cmd.Context(), username, role)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			key, err := auth.IssueAPIKey(cmd.Context(), app.Store(), user.ID)
			if err != nil {
				return fmt.Errorf("create api key: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s user %q (id %d)\n", user.Role, user.Username, user.ID)
			fmt.Fprintf(out, "API key: %s\n", key)
			return nil
		},
	}
	createCmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			users, err := app.Store().ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, []string{
					strconv.FormatInt(u.ID, 10),
					u.Username,
					u.Role,
					u.SyncType,
					humanize.Time(u.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Username", "Role", "Sync", "Created"}, rows,
				[]columnAlignment{alignRight}))
			return nil
		},
	}

	usersCmd.AddCommand(createCmd, listCmd)
	return usersCmd
}

func newAPIKeyCommand(ctx *commandContext) *cobra.Command {
	apikeyCmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	apikeyCmd.AddCommand(&cobra.Command{
		Use:   "create <username>",
		Short: "Issue a new API key for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			user, err := ctx.lookupUser(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			key, err := auth.IssueAPIKey(cmd.Context(), app.Store(), user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key: %s\n", key)
			return nil
		},
	})
	return apikeyCmd
}

func newSubscribeCommand(ctx *commandContext) *cobra.Command {
	var creds credentialFlags
	var name string
	var autoDownload, isYouTube bool
	var cutoffDays int

	cmd := &cobra.Command{
		Use:   "subscribe <username> <feed-url>",
		Short: "Subscribe a user to a podcast feed or YouTube channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cutoffDays < 0 {
				return fmt.Errorf("--cutoff-days must not be negative")
			}
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			user, err := ctx.lookupUser(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			sub := &models.Subscription{
				UserID:       user.ID,
				Name:         strings.TrimSpace(name),
				FeedURL:      strings.TrimSpace(args[1]),
				AutoDownload: autoDownload,
				CutoffDays:   cutoffDays,
				IsYouTube:    isYouTube,
				Credentials:  creds.credentials(),
			}
			if isYouTube {
				if _, err := youtube.ChannelID(sub.FeedURL); err != nil {
					return err
				}
			} else {
				values, err := app.Fetcher().Inspect(cmd.Context(), sub.FeedURL, sub.Credentials)
				if err != nil {
					return fmt.Errorf("read feed: %w", err)
				}
				values.Apply(sub)
			}
			if sub.Name == "" {
				sub.Name = sub.FeedURL
			}
			created, err := app.Store().CreateSubscription(cmd.Context(), sub)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subscribed %s to %q (id %d)\n", user.Username, created.Name, created.ID)
			return nil
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the feed title)")
	cmd.Flags().BoolVar(&autoDownload, "auto-download", false, "Queue downloads for new episodes")
	cmd.Flags().BoolVar(&isYouTube, "youtube", false, "Treat the URL as a YouTube channel")
	cmd.Flags().IntVar(&cutoffDays, "cutoff-days", 0, "Ignore episodes older than this many days (0 keeps all)")
	return cmd
}

