// Package main implements navigation, spreadsheet exchange and config
// commands.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"airgrid/internal/config"
	"airgrid/internal/sheets"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var useCmd = &cobra.Command{
	Use:   "use",
	Short: "Select the workspace, base, table and view to work on",
	Long: `Stores the selection in .airgrid/navigation.json. Commands that take
--table, --base or --view fall back to it, and the grid opens it on start.

Example:
  airgrid use --base <base-id> --table <table-id>`,
	RunE: runUse,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the current selection",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current selection and storage",
	RunE:  runStatus,
}

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Export a table to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import a sheet of an XLSX workbook as a new table",
	Long: `The first row names the columns. A column becomes Number when every
non-empty value below its header parses as a number, Text otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage .airgrid/config.yaml",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	RunE:  runConfigInit,
}

func init() {
	useCmd.Flags().String("workspace-id", "", "Workspace id")
	useCmd.Flags().String("base", "", "Base id")
	useCmd.Flags().String("table", "", "Table id")
	useCmd.Flags().String("view", "", "View id")

	exportCmd.Flags().String("table", "", "Table to export (default: selected)")

	importCmd.Flags().String("base", "", "Base for the new table (default: selected)")
	importCmd.Flags().String("sheet", "", "Sheet to read (default: first)")
	importCmd.Flags().String("name", "", "Name of the new table (default: sheet name)")
	importCmd.Flags().Int("concurrency", 8, "Parallel cell writes per row")

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config")
	configCmd.AddCommand(configInitCmd)
}

func runUse(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	wsID, _ := cmd.Flags().GetString("workspace-id")
	baseID, _ := cmd.Flags().GetString("base")
	tableID, _ := cmd.Flags().GetString("table")
	viewID, _ := cmd.Flags().GetString("view")

	if wsID != "" {
		sess.nav.SetWorkspace(wsID)
	}
	if baseID != "" {
		b, err := sess.store.OpenBase(ctx, baseID)
		if err != nil {
			return fmt.Errorf("failed to open base: %w", err)
		}
		sess.nav.SetWorkspace(b.WorkspaceID)
		sess.nav.SetBase(b.ID, b.Name)
	}
	if tableID != "" {
		t, err := sess.store.GetTable(ctx, tableID)
		if err != nil {
			return fmt.Errorf("failed to find table: %w", err)
		}
		if nav := sess.nav.Get(); nav.BaseID != t.BaseID {
			b, err := sess.store.OpenBase(ctx, t.BaseID)
			if err != nil {
				return fmt.Errorf("failed to open base: %w", err)
			}
			sess.nav.SetWorkspace(b.WorkspaceID)
			sess.nav.SetBase(b.ID, b.Name)
		}
		sess.nav.SetTable(t.ID)
	}
	if viewID != "" {
		if sess.nav.Get().TableID == "" {
			return fmt.Errorf("select a table before a view")
		}
		sess.nav.SetView(viewID)
	}

	if err := sess.nav.Save(); err != nil {
		return err
	}
	printNavigation(sess)
	return nil
}

func printNavigation(sess *session) {
	nav := sess.nav.Get()
	orNone := func(s string) string {
		if s == "" {
			return "(none)"
		}
		return s
	}
	fmt.Println("Navigation")
	printDivider()
	fmt.Printf("  Workspace: %s\n", orNone(nav.WorkspaceID))
	fmt.Printf("  Base:      %s\n", nav.BaseLabel())
	fmt.Printf("  Table:     %s\n", orNone(nav.TableID))
	fmt.Printf("  View:      %s\n", orNone(nav.ViewID))
	printDivider()
}

func runLogout(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.nav.Clear(); err != nil {
		return err
	}
	logger.Info("navigation cleared", zap.String("workspace", sess.ws))
	fmt.Println("Selection cleared.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	printNavigation(sess)
	fmt.Printf("  Storage:   %s (%s)\n", sess.cfg.ResolveStoragePath(sess.ws), sess.cfg.Storage.Driver)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	tableID, err := sess.tableFlag(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := sheets.Export(ctx, sess.store, tableID, args[0]); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	logger.Info("table exported", zap.String("table", tableID), zap.String("path", args[0]))
	fmt.Printf("Exported table %s to %s\n", tableID, args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
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

	opts := sheets.ImportOptions{}
	opts.Sheet, _ = cmd.Flags().GetString("sheet")
	opts.TableName, _ = cmd.Flags().GetString("name")
	opts.Concurrency, _ = cmd.Flags().GetInt("concurrency")

	res, err := sheets.Import(ctx, sess.store, baseID, args[0], opts)
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}
	logger.Info("table imported",
		zap.String("table", res.Table.ID),
		zap.Int("rows", res.Rows),
		zap.Int("cells", res.Cells))

	fmt.Printf("Imported %q (%s)\n", res.Table.Name, res.Table.ID)
	printDivider()
	for _, c := range res.Columns {
		fmt.Printf("  %-20s %s\n", c.Name, c.Type)
	}
	printDivider()
	fmt.Printf("Rows: %d  Cells: %d\n", res.Rows, res.Cells)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	path := config.DefaultConfigPath(ws)
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	rel, err := filepath.Rel(ws, path)
	if err != nil {
		rel = path
	}
	fmt.Printf("Wrote %s\n", rel)
	return nil
}
