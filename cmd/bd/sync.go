package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/mirror"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Report how the store and the JSONL mirror relate to each other",
	}
	cmd.AddCommand(newSyncStatusCmd())
	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print whether the store or the mirror is ahead, without changing either",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			st, err := mirror.Sync(cmd.Context(), a.store, a.layout)
			if err != nil {
				return err
			}

			if jsonFlag {
				data, _ := json.Marshal(st)
				fmt.Println(string(data))
				return nil
			}
			fmt.Printf("state: %s\n", st.State)
			fmt.Printf("db:     %d issues (%d dirty), modified %s\n", st.DBCount, st.DirtyCount, st.DBModTime.Format("2006-01-02T15:04:05Z07:00"))
			fmt.Printf("mirror: %d issues, modified %s\n", st.MirrorCount, st.MirrorModTime.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
}
