package main

import (
	"github.com/spf13/cobra"
)

func newClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <id>",
		Short: "Claim an open or blocked issue",
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
			claimed, err := a.engine.Claim(cmd.Context(), id, currentActor())
			a.recordAudit("claim", id, err)
			if err != nil {
				return err
			}
			printIssue(claimed)
			return nil
		},
	}
}
