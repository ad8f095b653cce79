package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/types"
	"github.com/steveyegge/beads/internal/validation"
)

func newUpdateCmd() *cobra.Command {
	var (
		title       string
		description string
		priority    string
		issueType   string
		assignee    string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields on an existing issue",
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

			updated, err := a.engine.Update(cmd.Context(), id, currentActor(), func(issue *types.Issue) error {
				if cmd.Flags().Changed("title") {
					issue.Title = title
				}
				if cmd.Flags().Changed("description") {
					issue.Description = description
				}
				if cmd.Flags().Changed("priority") {
					p, err := validation.ValidatePriority(priority)
					if err != nil {
						return err
					}
					issue.Priority = p
				}
				if cmd.Flags().Changed("type") {
					it, err := validation.ParseIssueType(issueType)
					if err != nil {
						return err
					}
					issue.IssueType = it
				}
				if cmd.Flags().Changed("assignee") {
					issue.Assignee = assignee
				}
				return nil
			})
			a.recordAudit("update", id, err)
			if err != nil {
				return err
			}

			printIssue(updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	cmd.Flags().StringVar(&issueType, "type", "", "new issue type")
	cmd.Flags().StringVar(&assignee, "assignee", "", "new assignee")
	return cmd
}
