package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCloseCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close an issue, surfacing any dependent issue that becomes ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			id, err := a.store.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			closed, ready, err := a.engine.Close(cmd.Context(), id, currentActor(), reason)
			a.recordAudit("close", id, err)
			if err != nil {
				return err
			}

			printIssue(closed)
			for _, r := range ready {
				fmt.Printf("  %s now ready: %s\n", color.GreenString("→"), r.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why this issue is being closed")
	return cmd
}

func newReopenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <id>",
		Short: "Reopen a closed issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			id, err := a.store.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			reopened, err := a.engine.Reopen(cmd.Context(), id, currentActor())
			a.recordAudit("reopen", id, err)
			if err != nil {
				return err
			}
			printIssue(reopened)
			return nil
		},
	}
}
