package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/mirror"
	"github.com/steveyegge/beads/internal/storage"
)

func newImportCmd() *cobra.Command {
	var (
		policy         string
		path           string
		prefixOverride string
		orphan         string
		force          bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Apply the JSONL mirror's contents into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			var result *mirror.ImportResult
			err = withMirrorLock(a.layout.Root, func() error {
				result, err = mirror.Import(cmd.Context(), a.store, a.layout, mirror.ImportOptions{
					Path:           path,
					Policy:         mirror.ErrorPolicy(policy),
					PrefixOverride: prefixOverride,
					Orphan:         storage.OrphanHandling(orphan),
					Force:          force,
					Actor:          currentActor(),
				})
				return err
			})
			a.recordAudit("import", "", err)
			if err != nil {
				return err
			}

			if jsonFlag {
				data, _ := json.Marshal(result)
				fmt.Println(string(data))
				return nil
			}
			fmt.Printf("%s inserted=%d updated=%d noop=%d conflicted=%d skipped=%d orphan_stubs=%d\n",
				color.GreenString("✓"), len(result.Inserted), len(result.Updated), len(result.NoOp),
				len(result.Conflicted), len(result.Skipped), len(result.OrphanStubs))
			for _, pe := range result.ParseErrors {
				fmt.Printf("  %s line %d: %s\n", color.YellowString("parse error"), pe.Line, pe.Reason)
			}
			if len(result.Conflicted) > 0 {
				fmt.Printf("  %s unresolved conflicts: %v (rerun with --force to overwrite local content)\n",
					color.YellowString("!"), result.Conflicted)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "policy", string(mirror.PolicyStrict), "error policy: strict, best-effort, partial, required-core")
	cmd.Flags().StringVar(&path, "path", "", "override the mirror file path (defaults to issues.jsonl)")
	cmd.Flags().StringVar(&prefixOverride, "prefix-override", "", "additionally accept this id prefix")
	cmd.Flags().StringVar(&orphan, "orphan", string(storage.OrphanStrict), "dangling reference policy: strict, resurrect, skip, allow")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite local content on conflict and resurrect tombstones")
	return cmd
}
