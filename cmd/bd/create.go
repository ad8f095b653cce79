package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/types"
	"github.com/steveyegge/beads/internal/validation"
)

func newCreateCmd() *cobra.Command {
	var (
		issueType   string
		priority    string
		description string
		design      string
		acceptance  string
		labels      []string
		parentID    string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			it, err := validation.ParseIssueType(issueType)
			if err != nil {
				return err
			}
			pri, err := validation.ValidatePriority(priority)
			if err != nil {
				return err
			}

			issue := &types.Issue{
				Title:              strings.TrimSpace(args[0]),
				Description:        description,
				Design:             design,
				AcceptanceCriteria: acceptance,
				IssueType:          it,
				Priority:           pri,
				Status:             types.StatusOpen,
				ParentID:           parentID,
				Labels:             labels,
			}

			created, err := a.engine.Create(cmd.Context(), issue, currentActor())
			if err != nil {
				a.recordAudit("create", "", err)
				return err
			}
			a.recordAudit("create", created.ID, nil)

			if validation.IsTestIssueTitle(created.Title) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %q looks like a test/demo title; consider --label test if it shouldn't ship in the real backlog\n",
					color.YellowString("note:"), created.Title)
			}

			printIssue(created)
			return nil
		},
	}
	cmd.Flags().StringVar(&issueType, "type", "task", "issue type (task, bug, feature, epic, chore, docs, question)")
	cmd.Flags().StringVar(&priority, "priority", "2", "priority 0 (urgent) through 4 (lowest)")
	cmd.Flags().StringVar(&description, "description", "", "issue description")
	cmd.Flags().StringVar(&design, "design", "", "design notes")
	cmd.Flags().StringVar(&acceptance, "acceptance", "", "acceptance criteria")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "attach a label (repeatable)")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent issue id")
	return cmd
}

func printIssue(issue *types.Issue) {
	if jsonFlag {
		data, _ := json.Marshal(issue)
		fmt.Println(string(data))
		return
	}
	fmt.Printf("%s %s  %s\n", color.CyanString(issue.ID), issue.Title, color.YellowString(string(issue.Status)))
}
