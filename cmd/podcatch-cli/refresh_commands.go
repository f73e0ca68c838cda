package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/vrsandeep/podcatch/internal/refresh"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var syncFirst bool

	cmd := &cobra.Command{
		Use:   "refresh <username>",
		Short: "Refresh every subscription of one user",
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

			stream, err := app.Refresher().StartRefresh(cmd.Context(), user.ID, refresh.Options{SyncFirst: syncFirst})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for ev := range stream.Events() {
				switch ev := ev.(type) {
				case refresh.StatusUpdate:
					fmt.Fprintf(out, "[%d/%d] %s\n", ev.Current, ev.Total, ev.Label)
				case refresh.NewEpisode:
					line := fmt.Sprintf("  + %s: %s", ev.Episode.SubscriptionName, ev.Episode.Title)
					fmt.Fprintln(out, colorize(out, text.FgGreen, line))
				case refresh.ErrorEvent:
					return errors.New(ev.Message)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&syncFirst, "sync", false, "Pull gPodder subscription changes before refreshing")
	return cmd
}

func newRefreshAllCommand(ctx *commandContext) *cobra.Command {
	var skipSync bool

	cmd := &cobra.Command{
		Use:   "refresh-all",
		Short: "Refresh every user that has subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock := flock.New(filepath.Join(filepath.Dir(cfg.Database.Path), "podcatch-refresh.lock"))
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another refresh-all is already running")
			}
			defer lock.Unlock()

			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}

			errOut := cmd.ErrOrStderr()
			fleet, err := app.Refresher().RefreshAll(cmd.Context(), func(done, total int) {
				fmt.Fprintf(errOut, "Refreshed %d of %d users\n", done, total)
			})
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Users refreshed", humanize.Comma(int64(fleet.UsersRefreshed))},
				{"Users failed", humanize.Comma(int64(fleet.UsersFailed))},
				{"Users skipped", humanize.Comma(int64(fleet.UsersSkipped))},
				{"Podcasts refreshed", humanize.Comma(int64(fleet.TotalPodcasts))},
				{"New episodes", humanize.Comma(int64(fleet.TotalNewEpisodes))},
			}
			if !skipSync {
				res, err := app.SyncHook().SyncAll(cmd.Context())
				if err != nil {
					return err
				}
				rows = append(rows,
					[]string{"Users synced", humanize.Comma(int64(res.Users - res.Failed))},
					[]string{"Subscriptions added", humanize.Comma(int64(res.Added))},
					[]string{"Subscriptions removed", humanize.Comma(int64(res.Removed))},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipSync, "skip-sync", false, "Do not pull gPodder subscription changes afterwards")
	return cmd
}
