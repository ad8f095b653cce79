// Command bd is the thin front-end over the core: it wires cobra commands
// directly onto internal/* operations and holds no business logic of its
// own. Everything it does — validation, conflict detection, dependency
// cycle rejection — is the core's; this file and its siblings only parse
// flags, open the workspace, call an operation, and render the result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/steveyegge/beads/internal/audit"
	"github.com/steveyegge/beads/internal/beadserr"
	"github.com/steveyegge/beads/internal/mutate"
	"github.com/steveyegge/beads/internal/storage/sqlite"
	"github.com/steveyegge/beads/internal/workspace"
)

var (
	dbFlag    string
	actorFlag string
	jsonFlag  bool

	// sessionID groups every operation invoked by one bd process for the
	// audit log, the way the teacher groups daemon requests by connection.
	sessionID = uuid.New().String()
)

// app bundles everything a command handler needs: the opened store, its
// mutation engine, the workspace layout, and the audit logger. Handlers
// get one of these from openApp instead of touching globals.
type app struct {
	layout *workspace.Layout
	store  *sqlite.Store
	engine *mutate.Engine
	audit  *audit.Logger
}

func (a *app) close() {
	_ = a.store.Close()
}

// openApp resolves the workspace rooted at the current directory, opens
// its store (honoring dbOverride in place of the workspace's default
// beads.db), and returns a ready-to-use app. Every command calls this
// exactly once, in its RunE, never in init().
func openApp(ctx context.Context, dbOverride string) (*app, error) {
	layout, err := workspace.New(".")
	if err != nil {
		return nil, err
	}

	path := dbOverride
	if path == "" {
		path = layout.StorePath()
	}

	meta, metaErr := layout.ReadMetadata()
	prefix := ""
	if metaErr == nil {
		prefix = meta.IssuePrefix
	}

	store, err := sqlite.Open(ctx, path, sqlite.Options{Prefix: prefix, Log: slog.Default()})
	if err != nil {
		return nil, err
	}

	return &app{
		layout: layout,
		store:  store,
		engine: mutate.New(store),
		audit:  audit.Open(layout.AuditPath()),
	}, nil
}

func currentActor() string {
	if actorFlag != "" {
		return actorFlag
	}
	if u := os.Getenv("BD_ACTOR"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// recordAudit appends a best-effort interactions.jsonl entry. A failure
// here is logged and discarded; it never turns a successful command into
// a failing one.
func (a *app) recordAudit(operation, issueID string, opErr error) {
	if err := a.audit.RecordSession(sessionID, operation, currentActor(), issueID, opErr); err != nil {
		slog.Warn("audit log append failed", "op", operation, "error", err)
	}
}

// fail prints err per spec.md §7's JSON error shape (when --json is set)
// or a plain message, then exits with the mapped exit code.
func fail(err error) {
	kind := beadserr.KindOf(err)
	if jsonFlag {
		be, ok := err.(*beadserr.Error)
		hints := []string{}
		if ok && be.RecoveryHints != nil {
			hints = be.RecoveryHints
		}
		payload, _ := json.Marshal(map[string]any{
			"error_code":     beadserr.ExitCode(kind),
			"kind":           kind,
			"message":        err.Error(),
			"recovery_hints": hints,
		})
		fmt.Fprintln(os.Stderr, string(payload))
	} else {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(beadserr.ExitCode(kind))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bd",
		Short:         "A local-first issue tracker core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbFlag, "db", "", "path to the SQLite store (defaults to the workspace's beads.db)")
	root.PersistentFlags().StringVar(&actorFlag, "actor", "", "actor identity recorded against every mutation")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "emit machine-readable JSON")

	root.AddCommand(
		newInitCmd(),
		newCreateCmd(),
		newShowCmd(),
		newUpdateCmd(),
		newClaimCmd(),
		newCloseCmd(),
		newReopenCmd(),
		newDeleteCmd(),
		newDepCmd(),
		newLabelCmd(),
		newCommentCmd(),
		newListCmd(),
		newReadyCmd(),
		newFlushCmd(),
		newImportCmd(),
		newSyncCmd(),
	)
	return root
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	root := newRootCmd()
	root.SetContext(ctx)
	if err := root.Execute(); err != nil {
		fail(err)
	}
}
