package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"airgrid/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// setupCLI points the globals at a fresh workspace.
func setupCLI(t *testing.T) string {
	t.Helper()
	logger = zap.NewNop()
	workspace = t.TempDir()
	timeout = time.Minute
	t.Cleanup(func() { workspace = "" })
	return workspace
}

type seeded struct {
	workspace types.Workspace
	base      types.Base
	table     types.Table
}

// seedTable creates a workspace, base and table and selects them.
func seedTable(t *testing.T) seeded {
	t.Helper()
	sess, err := openSession()
	if err != nil {
		t.Fatalf("openSession failed: %v", err)
	}
	defer sess.Close()

	ctx := context.Background()
	var out seeded
	if out.workspace, err = sess.store.CreateWorkspace(ctx, "Personal"); err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if out.base, err = sess.store.CreateBase(ctx, out.workspace.ID, "CRM"); err != nil {
		t.Fatalf("create base: %v", err)
	}
	if out.table, err = sess.store.CreateTable(ctx, out.base.ID, "People"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	sess.nav.SetWorkspace(out.workspace.ID)
	sess.nav.SetBase(out.base.ID, out.base.Name)
	sess.nav.SetTable(out.table.ID)
	if err := sess.nav.Save(); err != nil {
		t.Fatalf("save navigation: %v", err)
	}
	return out
}

// flagged builds a bare command carrying string flags.
func flagged(flags map[string]string) *cobra.Command {
	cmd := &cobra.Command{}
	for name, value := range flags {
		cmd.Flags().String(name, value, "")
	}
	return cmd
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		_, _ = io.Copy(&buf, rErr)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr
	return <-done
}
