package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/storage/sqlite"
	"github.com/steveyegge/beads/internal/workspace"
)

func newInitCmd() *cobra.Command {
	var prefix string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a new workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			layout, err := workspace.Init(dir)
			if err != nil {
				return err
			}

			store, err := sqlite.Open(cmd.Context(), layout.StorePath(), sqlite.Options{Prefix: prefix, Force: force})
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			meta := workspace.DefaultMetadata(store.Prefix(), sqlite.SchemaVersion, time.Now().UTC())
			if err := layout.WriteMetadata(meta); err != nil {
				return err
			}

			if jsonFlag {
				fmt.Printf(`{"root":%q,"prefix":%q}`+"\n", layout.Root, store.Prefix())
			} else {
				fmt.Printf("%s initialized workspace at %s (prefix %q)\n", color.GreenString("✓"), layout.Root, store.Prefix())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "issue ID prefix (default \"bd\")")
	cmd.Flags().BoolVar(&force, "force", false, "accept prefix even if it disagrees with an existing database")
	return cmd
}
