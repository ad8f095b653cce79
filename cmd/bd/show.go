package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Aliases: []string{"get"},
		Short:   "Show one issue in full, including labels, dependencies, and comments",
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
			issue, err := a.store.GetIssue(cmd.Context(), id)
			if err != nil {
				return err
			}

			if jsonFlag {
				data, _ := json.MarshalIndent(issue, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("%s  %s\n", color.CyanString(issue.ID), issue.Title)
			fmt.Printf("  type=%s priority=%d status=%s\n", issue.IssueType, issue.Priority, issue.Status)
			if issue.Description != "" {
				fmt.Printf("  description: %s\n", issue.Description)
			}
			if len(issue.Labels) > 0 {
				fmt.Printf("  labels: %v\n", issue.Labels)
			}
			for _, d := range issue.Dependencies {
				fmt.Printf("  %s -> %s\n", d.DepType, d.DependsOnID)
			}
			for _, c := range issue.Comments {
				fmt.Printf("  [%s] %s: %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.Author, c.Body)
			}
			return nil
		},
	}
}
