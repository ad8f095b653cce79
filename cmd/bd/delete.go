package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Tombstone an issue: content is cleared, the row and its id are kept",
		Args:    cobra.ExactArgs(1),
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
			err = a.engine.Delete(cmd.Context(), id, currentActor(), reason)
			a.recordAudit("delete", id, err)
			if err != nil {
				return err
			}

			if jsonFlag {
				fmt.Printf(`{"id":%q,"deleted":true}`+"\n", id)
			} else {
				fmt.Printf("%s deleted %s\n", color.RedString("✗"), id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why this issue is being deleted")
	return cmd
}
