package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/lockfile"
	"github.com/steveyegge/beads/internal/mirror"
)

// withMirrorLock serializes overlapping flush/import invocations against
// the same workspace: Mirror Sync's own atomicity covers a single process,
// but two bd processes racing on the rename would otherwise both believe
// they won.
func withMirrorLock(root string, fn func() error) error {
	guard, err := lockfile.AcquireExclusive(filepath.Join(root, ".mirror.lock"))
	if err != nil {
		if lockfile.IsLocked(err) {
			return fmt.Errorf("another bd process is syncing this workspace, try again shortly")
		}
		return err
	}
	defer func() { _ = guard.Release() }()
	return fn()
}

func newFlushCmd() *cobra.Command {
	var (
		policy      string
		writeBackup bool
		path        string
	)
	cmd := &cobra.Command{
		Use:     "flush",
		Aliases: []string{"export"},
		Short:   "Export every non-ephemeral issue to the JSONL mirror",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			var result *mirror.FlushResult
			err = withMirrorLock(a.layout.Root, func() error {
				result, err = mirror.Flush(cmd.Context(), a.store, a.layout, mirror.FlushOptions{
					Path:        path,
					Policy:      mirror.ErrorPolicy(policy),
					Actor:       currentActor(),
					WriteBackup: writeBackup,
				})
				return err
			})
			a.recordAudit("flush", "", err)
			if err != nil {
				return err
			}

			if jsonFlag {
				data, _ := json.Marshal(result)
				fmt.Println(string(data))
			} else {
				fmt.Printf("%s exported %d issues to %s (digest %s)\n", color.GreenString("✓"), result.Count, result.Path, result.Digest[:12])
				if len(result.Skipped) > 0 {
					fmt.Printf("  skipped: %v\n", result.Skipped)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "policy", string(mirror.PolicyStrict), "error policy: strict, best-effort, partial, required-core")
	cmd.Flags().BoolVar(&writeBackup, "backup", false, "also write a timestamped copy to history/")
	cmd.Flags().StringVar(&path, "path", "", "override the mirror file path (defaults to issues.jsonl)")
	return cmd
}
