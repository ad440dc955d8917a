// Package main implements workspace, base and table management commands.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// WORKSPACES
// =============================================================================

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Manage workspaces",
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceCreate,
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	RunE:  runWorkspaceList,
}

var workspaceRenameCmd = &cobra.Command{
	Use:   "rename <workspace-id> <name>",
	Short: "Rename a workspace",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkspaceRename,
}

var workspaceDeleteCmd = &cobra.Command{
	Use:   "delete <workspace-id>",
	Short: "Delete a workspace and everything in it",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceDelete,
}

// =============================================================================
// BASES
// =============================================================================

var baseCmd = &cobra.Command{
	Use:   "base",
	Short: "Manage bases",
}

var baseCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a base in a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runBaseCreate,
}

var baseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bases of a workspace",
	RunE:  runBaseList,
}

var baseRenameCmd = &cobra.Command{
	Use:   "rename <base-id> <name>",
	Short: "Rename a base",
	Args:  cobra.ExactArgs(2),
	RunE:  runBaseRename,
}

var baseMoveCmd = &cobra.Command{
	Use:   "move <base-id> <workspace-id>",
	Short: "Move a base to another workspace",
	Args:  cobra.ExactArgs(2),
	RunE:  runBaseMove,
}

var baseOpenCmd = &cobra.Command{
	Use:   "open <base-id>",
	Short: "Open a base and select it",
	Args:  cobra.ExactArgs(1),
	RunE:  runBaseOpen,
}

var baseDeleteCmd = &cobra.Command{
	Use:   "delete <base-id>",
	Short: "Delete a base and its tables",
	Args:  cobra.ExactArgs(1),
	RunE:  runBaseDelete,
}

// =============================================================================
// TABLES
// =============================================================================

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage tables",
}

var tableCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a table in a base",
	Args:  cobra.ExactArgs(1),
	RunE:  runTableCreate,
}

var tableListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tables of a base",
	RunE:  runTableList,
}

var tableRenameCmd = &cobra.Command{
	Use:   "rename <table-id> <name>",
	Short: "Rename a table",
	Args:  cobra.ExactArgs(2),
	RunE:  runTableRename,
}

var tableDeleteCmd = &cobra.Command{
	Use:   "delete <table-id>",
	Short: "Delete a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runTableDelete,
}

var tableShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a table as a grid",
	RunE:  runTableShow,
}

func init() {
	workspaceCmd.AddCommand(workspaceCreateCmd, workspaceListCmd, workspaceRenameCmd, workspaceDeleteCmd)

	baseCreateCmd.Flags().String("workspace-id", "", "Workspace of the new base (default: selected)")
	baseListCmd.Flags().String("workspace-id", "", "Workspace to list (default: selected)")
	baseCmd.AddCommand(baseCreateCmd, baseListCmd, baseRenameCmd, baseMoveCmd, baseOpenCmd, baseDeleteCmd)

	tableCreateCmd.Flags().String("base", "", "Base of the new table (default: selected)")
	tableListCmd.Flags().String("base", "", "Base to list (default: selected)")
	tableShowCmd.Flags().String("table", "", "Table to show (default: selected)")
	tableShowCmd.Flags().String("view", "", "View to show (default: selected or first)")
	tableShowCmd.Flags().Bool("plain", false, "Print raw markdown instead of rendering it")
	tableCmd.AddCommand(tableCreateCmd, tableListCmd, tableRenameCmd, tableDeleteCmd, tableShowCmd)
}

func printDivider() {
	fmt.Println(strings.Repeat("─", 50))
}

func runWorkspaceCreate(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	w, err := sess.store.CreateWorkspace(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	logger.Info("workspace created", zap.String("id", w.ID), zap.String("name", w.Name))
	fmt.Printf("Created workspace %q (%s)\n", w.Name, w.ID)
	return nil
}

func runWorkspaceList(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	list, err := sess.store.ListWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workspaces: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No workspaces found.")
		fmt.Println("\nUse: airgrid workspace create <name>")
		return nil
	}

	current := sess.nav.Get().WorkspaceID
	fmt.Println("Workspaces")
	printDivider()
	for _, w := range list {
		marker := " "
		if w.ID == current {
			marker = "*"
		}
		fmt.Printf("%s %-24s %s\n", marker, w.Name, w.ID)
	}
	printDivider()
	fmt.Printf("Total: %d workspaces\n", len(list))
	return nil
}

func runWorkspaceRename(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	w, err := sess.store.RenameWorkspace(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to rename workspace: %w", err)
	}
	fmt.Printf("Renamed workspace %s to %q\n", w.ID, w.Name)
	return nil
}

func runWorkspaceDelete(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	w, err := sess.store.DeleteWorkspace(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if sess.nav.Get().WorkspaceID == w.ID {
		sess.nav.SetWorkspace("")
		if err := sess.nav.Save(); err != nil {
			return err
		}
	}
	logger.Info("workspace deleted", zap.String("id", w.ID))
	fmt.Printf("Deleted workspace %q\n", w.Name)
	return nil
}

func (s *session) workspaceFlag(cmd *cobra.Command) (string, error) {
	id, _ := cmd.Flags().GetString("workspace-id")
	if id == "" {
		id = s.nav.Get().WorkspaceID
	}
	if id == "" {
		return "", fmt.Errorf("no workspace selected (use --workspace-id or \"airgrid use --workspace-id\")")
	}
	return id, nil
}

func runBaseCreate(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	wsID, err := sess.workspaceFlag(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	b, err := sess.store.CreateBase(ctx, wsID, args[0])
	if err != nil {
		return fmt.Errorf("failed to create base: %w", err)
	}
	logger.Info("base created", zap.String("id", b.ID), zap.String("workspace", wsID))
	fmt.Printf("Created base %q (%s)\n", b.Name, b.ID)
	return nil
}

func runBaseList(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	wsID, err := sess.workspaceFlag(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	list, err := sess.store.ListBases(ctx, wsID)
	if err != nil {
		return fmt.Errorf("failed to list bases: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No bases found.")
		return nil
	}

	current := sess.nav.Get().BaseID
	fmt.Println("Bases")
	printDivider()
	for _, b := range list {
		marker := " "
		if b.ID == current {
			marker = "*"
		}
		opened := "never"
		if !b.LastOpenAt.IsZero() {
			opened = b.LastOpenAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%s %-24s %s  (opened %s)\n", marker, b.Name, b.ID, opened)
	}
	printDivider()
	fmt.Printf("Total: %d bases\n", len(list))
	return nil
}

func runBaseRename(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	b, err := sess.store.RenameBase(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to rename base: %w", err)
	}
	if sess.nav.Get().BaseID == b.ID {
		sess.nav.SetBase(b.ID, b.Name)
		if err := sess.nav.Save(); err != nil {
			return err
		}
	}
	fmt.Printf("Renamed base %s to %q\n", b.ID, b.Name)
	return nil
}

func runBaseMove(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	b, err := sess.store.MoveBase(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to move base: %w", err)
	}
	fmt.Printf("Moved base %q to workspace %s\n", b.Name, b.WorkspaceID)
	return nil
}

func runBaseOpen(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	b, err := sess.store.OpenBase(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to open base: %w", err)
	}
	sess.nav.SetWorkspace(b.WorkspaceID)
	sess.nav.SetBase(b.ID, b.Name)
	if err := sess.nav.Save(); err != nil {
		return err
	}
	fmt.Printf("Opened base %q\n", b.Name)
	return nil
}

func runBaseDelete(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	b, err := sess.store.DeleteBase(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to delete base: %w", err)
	}
	if sess.nav.Get().BaseID == b.ID {
		sess.nav.SetBase("", "")
		if err := sess.nav.Save(); err != nil {
			return err
		}
	}
	logger.Info("base deleted", zap.String("id", b.ID))
	fmt.Printf("Deleted base %q\n", b.Name)
	return nil
}

func runTableCreate(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	baseID, err := sess.baseFlag(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	t, err := sess.store.CreateTable(ctx, baseID, args[0])
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	logger.Info("table created", zap.String("id", t.ID), zap.String("base", baseID))
	fmt.Printf("Created table %q (%s)\n", t.Name, t.ID)
	return nil
}

func runTableList(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	baseID, err := sess.baseFlag(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	list, err := sess.store.ListTables(ctx, baseID)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No tables found.")
		return nil
	}

	current := sess.nav.Get().TableID
	fmt.Println("Tables")
	printDivider()
	for _, t := range list {
		marker := " "
		if t.ID == current {
			marker = "*"
		}
		fmt.Printf("%s %-24s %s\n", marker, t.Name, t.ID)
	}
	printDivider()
	fmt.Printf("Total: %d tables\n", len(list))
	return nil
}

func runTableRename(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	t, err := sess.store.RenameTable(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to rename table: %w", err)
	}
	fmt.Printf("Renamed table %s to %q\n", t.ID, t.Name)
	return nil
}

func runTableDelete(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	t, err := sess.store.DeleteTable(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	if sess.nav.Get().TableID == t.ID {
		sess.nav.SetTable("")
		if err := sess.nav.Save(); err != nil {
			return err
		}
	}
	logger.Info("table deleted", zap.String("id", t.ID))
	fmt.Printf("Deleted table %q\n", t.Name)
	return nil
}
