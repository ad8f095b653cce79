package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/beadserr"
	"github.com/steveyegge/beads/internal/depsgraph"
	"github.com/steveyegge/beads/internal/types"
)

func newDepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage and inspect dependencies between issues",
	}
	cmd.AddCommand(newDepAddCmd(), newDepRemoveCmd(), newDepCyclesCmd(), newDepTreeCmd())
	return cmd
}

func newDepAddCmd() *cobra.Command {
	var depType string
	cmd := &cobra.Command{
		Use:   "add <id> <depends-on-id>",
		Short: "Add a dependency edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			issueID, err := a.store.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dependsOnID, err := a.store.ResolveID(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			err = a.engine.AddDependency(cmd.Context(), issueID, dependsOnID, types.DepType(depType), currentActor())
			a.recordAudit("dep_add", issueID, err)
			return err
		},
	}
	cmd.Flags().StringVar(&depType, "type", string(types.DepBlocks), "dependency type (blocks, parent-child, discovered-from, related)")
	return cmd
}

func newDepRemoveCmd() *cobra.Command {
	var depType string
	cmd := &cobra.Command{
		Use:   "remove <id> <depends-on-id>",
		Short: "Remove a dependency edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			issueID, err := a.store.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dependsOnID, err := a.store.ResolveID(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			err = a.engine.RemoveDependency(cmd.Context(), issueID, dependsOnID, types.DepType(depType), currentActor())
			a.recordAudit("dep_remove", issueID, err)
			return err
		},
	}
	cmd.Flags().StringVar(&depType, "type", string(types.DepBlocks), "dependency type")
	return cmd
}

// newDepCyclesCmd runs the full SCC audit (spec.md §4.E's "dep cycles full
// audit": every strongly connected component of size > 1, plus self-loops).
func newDepCyclesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycles",
		Short: "Report every cycle in the blocking dependency graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			tx, err := a.store.BeginTx(cmd.Context())
			if err != nil {
				return err
			}
			defer tx.Rollback()

			sccs, err := depsgraph.FindCycles(cmd.Context(), tx)
			if err != nil {
				return err
			}

			if jsonFlag {
				data, _ := json.Marshal(sccs)
				fmt.Println(string(data))
				return nil
			}
			if len(sccs) == 0 {
				fmt.Println("no cycles found")
				return nil
			}
			for _, s := range sccs {
				fmt.Println(s.String())
			}
			return nil
		},
	}
}

// newDepTreeCmd prints the issues an id transitively depends on over the
// blocking subgraph depth-first, one issue id per line, indented by depth.
func newDepTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <id>",
		Short: "Print the transitive blocking-dependency tree rooted at id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), dbFlag)
			if err != nil {
				return err
			}
			defer a.close()

			root, err := a.store.ResolveID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printDepTree(cmd, a, root, 0, map[string]bool{})
		},
	}
}

func printDepTree(cmd *cobra.Command, a *app, id string, depth int, seen map[string]bool) error {
	if seen[id] {
		return beadserr.New(beadserr.KindDependencyCycle, "cycle revisiting %s while printing tree", id)
	}
	seen[id] = true

	for i := 0; i < depth; i++ {
		fmt.Print("  ")
	}
	fmt.Println(id)

	deps, err := a.store.GetDependencies(cmd.Context(), id, types.DirectionOutgoing)
	if err != nil {
		return err
	}
	for _, d := range deps {
		if !d.DepType.Blocking() {
			continue
		}
		if err := printDepTree(cmd, a, d.DependsOnID, depth+1, seen); err != nil {
			return err
		}
	}
	delete(seen, id)
	return nil
}
