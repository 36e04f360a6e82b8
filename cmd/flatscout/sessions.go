package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/flatscout/internal/session"
)

// NewSessionsCommand creates the sessions command group.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage stored sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, rootOpts, func(store session.Store) error {
				sessions, err := store.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list sessions: %w", err)
				}
				return printSessions(cmd.OutOrStdout(), sessions)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <user-id>",
		Short: "Print one session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, rootOpts, func(store session.Store) error {
				s, err := store.Get(cmd.Context(), userID)
				if err != nil {
					return describeLookup(userID, err)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, rootOpts, func(store session.Store) error {
				if err := store.Delete(cmd.Context(), userID); err != nil {
					return describeLookup(userID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted session %d\n", userID)
				return nil
			})
		},
	})

	return cmd
}

func withStore(cmd *cobra.Command, rootOpts *RootOptions, fn func(session.Store) error) error {
	cfg, _, err := loadConfig(rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()
	return fn(store)
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}

func describeLookup(userID int64, err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("no session for user %d", userID)
	}
	return fmt.Errorf("failed to access session %d: %w", userID, err)
}

func printSessions(out io.Writer, sessions []*session.Session) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tSTEP\tSHOWN\tNOTIFIED\tFAVOURITES\tUPDATED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%d/%d\t%d\t%d\t%s\n",
			s.UserID, s.Step, s.CurrentIndex, len(s.MatchingIDs),
			len(s.NotifiedIDs), len(s.FavoriteIDs), s.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
