package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/depsgraph"
)

func newReadyCmd() *cobra.Command {
	var policy string
	var includeDeferred bool
	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List issues eligible for work: open, unblocked, not deferred",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			issues, err := depsgraph.Ready(cmd.Context(), a.store, depsgraph.ReadyPolicy(policy), time.Now().UTC(), includeDeferred)
			if err != nil {
				return err
			}
			printIssueList(issues)
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "sort", string(depsgraph.ReadyByPriority), "ready-queue ordering: priority, oldest, or hybrid")
	cmd.Flags().BoolVar(&includeDeferred, "include-deferred", false, "include issues whose defer_until is still in the future")
	return cmd
}
