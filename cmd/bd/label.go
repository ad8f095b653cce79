package main

import (
	"github.com/spf13/cobra"
)

func newLabelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Attach or detach labels",
	}
	cmd.AddCommand(newLabelAddCmd(), newLabelRemoveCmd())
	return cmd
}

func newLabelAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <label>",
		Short: "Attach a label to an issue",
		Args:  cobra.ExactArgs(2),
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
			err = a.engine.AddLabel(cmd.Context(), id, args[1], currentActor())
			a.recordAudit("label_add", id, err)
			return err
		},
	}
}

func newLabelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id> <label>",
		Short: "Detach a label from an issue",
		Args:  cobra.ExactArgs(2),
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
			err = a.engine.RemoveLabel(cmd.Context(), id, args[1], currentActor())
			a.recordAudit("label_remove", id, err)
			return err
		},
	}
}
