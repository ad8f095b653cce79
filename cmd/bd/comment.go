package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Append a comment to an issue",
	}
	cmd.AddCommand(newCommentAddCmd())
	return cmd
}

func newCommentAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <body>",
		Short: "Append a comment to an issue",
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
			c, err := a.engine.AddComment(cmd.Context(), id, args[1], currentActor())
			a.recordAudit("comment_add", id, err)
			if err != nil {
				return err
			}

			if jsonFlag {
				fmt.Printf(`{"id":%d,"issue_id":%q}`+"\n", c.ID, id)
			} else {
				fmt.Printf("comment #%d added to %s\n", c.ID, id)
			}
			return nil
		},
	}
}
