package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/query"
	"github.com/steveyegge/beads/internal/types"
)

func newListCmd() *cobra.Command {
	var (
		status    string
		all       bool
		label     []string
		labelAny  []string
		sortOrder string
		limit     int
		queryExpr string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues, optionally filtered and sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			filter := types.IssueFilter{All: all, Label: label, LabelAny: labelAny, Limit: limit}
			if status != "" {
				s := types.Status(status)
				filter.Status = &s
			}

			sortOpts := types.DefaultIssueSortOptions()
			if sortOrder != "" {
				sortOpts = types.ParseIssueSortOrder(sortOrder)
			}

			issues, err := a.store.ListIssues(cmd.Context(), filter, sortOpts)
			if err != nil {
				return err
			}

			if queryExpr != "" {
				issues, err = query.Filter(queryExpr, issues, time.Now().UTC())
				if err != nil {
					return err
				}
			}

			printIssueList(issues)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().BoolVar(&all, "all", false, "include closed issues")
	cmd.Flags().StringSliceVar(&label, "label", nil, "filter by all of these labels (AND)")
	cmd.Flags().StringSliceVar(&labelAny, "label-any", nil, "filter by any of these labels (OR)")
	cmd.Flags().StringVar(&sortOrder, "sort", "", "comma-separated field-direction pairs, e.g. updated-desc")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 = unlimited)")
	cmd.Flags().StringVar(&queryExpr, "query", "", "additional boolean query expression, e.g. 'priority<=1 and label=backend'")
	return cmd
}

func printIssueList(issues []*types.Issue) {
	if jsonFlag {
		data, _ := json.Marshal(issues)
		fmt.Println(string(data))
		return
	}
	for _, issue := range issues {
		printIssue(issue)
	}
}
