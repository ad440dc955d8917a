// Package main implements column, row and cell commands. Every mutation runs
// through the grid engine so the CLI and the TUI share validation and
// rollback.
package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"airgrid/internal/grid"
	"airgrid/internal/types"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var columnCmd = &cobra.Command{
	Use:     "column",
	Aliases: []string{"col"},
	Short:   "Manage the columns of a table",
}

var columnAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a column; existing rows get an empty cell",
	Args:  cobra.ExactArgs(1),
	RunE:  runColumnAdd,
}

var columnListCmd = &cobra.Command{
	Use:   "list",
	Short: "List columns in display order",
	RunE:  runColumnList,
}

var columnRenameCmd = &cobra.Command{
	Use:   "rename <column> <name>",
	Short: "Rename a column (by name or id)",
	Args:  cobra.ExactArgs(2),
	RunE:  runColumnRename,
}

var columnDeleteCmd = &cobra.Command{
	Use:   "delete <column>",
	Short: "Delete a column and its cells",
	Args:  cobra.ExactArgs(1),
	RunE:  runColumnDelete,
}

var rowCmd = &cobra.Command{
	Use:   "row",
	Short: "Manage the rows of a table",
}

var rowAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a row with an empty cell per column",
	RunE:  runRowAdd,
}

var rowDeleteCmd = &cobra.Command{
	Use:   "delete <row>",
	Short: "Delete a row (1-based number or id)",
	Args:  cobra.ExactArgs(1),
	RunE:  runRowDelete,
}

var cellCmd = &cobra.Command{
	Use:   "cell",
	Short: "Edit cell values",
}

var cellSetCmd = &cobra.Command{
	Use:   "set <row> <column> <value>",
	Short: "Set a cell value",
	Long: `Sets the cell at <row> (1-based number or id) and <column> (name or id).

Number columns accept decimal numbers with an optional exponent (42, -2.5,
1e3), the same input the grid accepts; an empty value clears the cell.

Example:
  airgrid cell set 1 Age 42`,
	Args: cobra.ExactArgs(3),
	RunE: runCellSet,
}

func init() {
	for _, c := range []*cobra.Command{columnAddCmd, columnListCmd, columnRenameCmd, columnDeleteCmd, rowAddCmd, rowDeleteCmd, cellSetCmd} {
		c.Flags().String("table", "", "Table to edit (default: selected)")
	}
	columnAddCmd.Flags().String("type", "text", "Column type: text or number")

	columnCmd.AddCommand(columnAddCmd, columnListCmd, columnRenameCmd, columnDeleteCmd)
	rowCmd.AddCommand(rowAddCmd, rowDeleteCmd)
	cellCmd.AddCommand(cellSetCmd)
}

// loadEngine opens the grid engine for the --table of cmd.
func (s *session) loadEngine(ctx context.Context, cmd *cobra.Command) (*grid.Engine, error) {
	tableID, err := s.tableFlag(cmd)
	if err != nil {
		return nil, err
	}
	opts := grid.OptionsFromConfig(s.cfg.Grid)
	if viewID, _ := cmd.Flags().GetString("view"); viewID != "" {
		opts.ViewID = viewID
	} else if nav := s.nav.Get(); nav.TableID == tableID {
		opts.ViewID = nav.ViewID
	}

	eng := grid.New(s.store, tableID, opts)
	if err := eng.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load table %s: %w", tableID, err)
	}
	return eng, nil
}

// findColumn resolves a column argument given as name or id.
func findColumn(p *grid.Projection, arg string) (int, error) {
	if c, ok := p.ColumnByName(arg); ok {
		return c, nil
	}
	for i, col := range p.Columns() {
		if col.ID == arg {
			return i, nil
		}
	}
	return -1, fmt.Errorf("no column %q", arg)
}

// findRow resolves a row argument given as 1-based number or id.
func findRow(p *grid.Projection, arg string) (int, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > p.RowCount() {
			return -1, fmt.Errorf("row %d out of range (1-%d)", n, p.RowCount())
		}
		return n - 1, nil
	}
	for i, row := range p.Rows() {
		if row.ID == arg {
			return i, nil
		}
	}
	return -1, fmt.Errorf("no row %q", arg)
}

// describeError turns engine errors into CLI messages.
func describeError(action string, err error) error {
	var dup *grid.DuplicateNameError
	var invalid *grid.ValidationError
	var persist *grid.PersistenceError
	switch {
	case errors.As(err, &dup), errors.As(err, &invalid):
		return err
	case errors.As(err, &persist):
		return fmt.Errorf("failed to %s (change rolled back): %w", action, persist.Err)
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}

func runColumnAdd(cmd *cobra.Command, args []string) error {
	typeFlag, _ := cmd.Flags().GetString("type")
	typ, err := types.ParseColumnType(typeFlag)
	if err != nil {
		return err
	}

	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	eng, err := sess.loadEngine(ctx, cmd)
	if err != nil {
		return err
	}
	op, err := eng.AddColumn(args[0], typ)
	if err != nil {
		return describeError("add column", err)
	}
	if err := eng.Do(ctx, op); err != nil {
		return describeError("add column", err)
	}

	p := eng.Projection()
	col := p.Column(p.ColumnCount() - 1)
	logger.Info("column added", zap.String("id", col.ID), zap.String("type", string(col.Type)))
	fmt.Printf("Added %s column %q (%s), %d rows filled\n", col.Type, col.Name, col.ID, p.RowCount())
	return nil
}

func runColumnList(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	eng, err := sess.loadEngine(ctx, cmd)
	if err != nil {
		return err
	}
	cols := eng.Projection().Columns()
	if len(cols) == 0 {
		fmt.Println("No columns.")
		fmt.Println("\nUse: airgrid column add <name> --type text|number")
		return nil
	}

	fmt.Println("Columns")
	printDivider()
	for i, c := range cols {
		fmt.Printf("  %d. %-20s %-6s %s\n", i+1, c.Name, c.Type, c.ID)
	}
	printDivider()
	return nil
}

func runColumnRename(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	eng, err := sess.loadEngine(ctx, cmd)
	if err != nil {
		return err
	}
	c, err := findColumn(eng.Projection(), args[0])
	if err != nil {
		return err
	}
	old := eng.Projection().Column(c).Name
	op, err := eng.RenameColumn(c, args[1])
	if err != nil {
		return describeError("rename column", err)
	}
	if err := eng.Do(ctx, op); err != nil {
		return describeError("rename column", err)
	}
	fmt.Printf("Renamed column %q to %q\n", old, strings.TrimSpace(args[1]))
	return nil
}

func runColumnDelete(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	eng, err := sess.loadEngine(ctx, cmd)
	if err != nil {
		return err
	}
	c, err := findColumn(eng.Projection(), args[0])
	if err != nil {
		return err
	}
	name := eng.Projection().Column(c).Name
	op, err := eng.DeleteColumn(c)
	if err != nil {
		return describeError("delete column", err)
	}
	if err := eng.Do(ctx, op); err != nil {
		return describeError("delete column", err)
	}
	fmt.Printf("Deleted column %q\n", name)
	return nil
}

func runRowAdd(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	eng, err := sess.loadEngine(ctx, cmd)
	if err != nil {
		return err
	}
	if err := eng.Do(ctx, eng.AddRow()); err != nil {
		return describeError("add row", err)
	}

	p := eng.Projection()
	row := p.Row(p.RowCount() - 1)
	logger.Info("row added", zap.String("id", row.ID), zap.Int("cells", p.ColumnCount()))
	fmt.Printf("Added row %d (%s)\n", p.RowCount(), row.ID)
	return nil
}

func runRowDelete(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	eng, err := sess.loadEngine(ctx, cmd)
	if err != nil {
		return err
	}
	r, err := findRow(eng.Projection(), args[0])
	if err != nil {
		return err
	}
	op, err := eng.DeleteRow(r)
	if err != nil {
		return describeError("delete row", err)
	}
	if err := eng.Do(ctx, op); err != nil {
		return describeError("delete row", err)
	}
	fmt.Printf("Deleted row %d\n", r+1)
	return nil
}

func runCellSet(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	eng, err := sess.loadEngine(ctx, cmd)
	if err != nil {
		return err
	}
	p := eng.Projection()
	r, err := findRow(p, args[0])
	if err != nil {
		return err
	}
	c, err := findColumn(p, args[1])
	if err != nil {
		return err
	}

	op, err := eng.SetCell(r, c, args[2])
	if err != nil {
		return describeError("set cell", err)
	}
	if op == nil {
		fmt.Println("Value unchanged.")
		return nil
	}
	if err := eng.Do(ctx, op); err != nil {
		return describeError("set cell", err)
	}
	fmt.Printf("%s[%d] = %s\n", p.Column(c).Name, r+1, eng.Projection().Display(r, c))
	return nil
}

// =============================================================================
// TABLE SHOW
// =============================================================================

func runTableShow(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	eng, err := sess.loadEngine(ctx, cmd)
	if err != nil {
		return err
	}
	table, err := sess.store.GetTable(ctx, eng.TableID())
	if err != nil {
		return fmt.Errorf("failed to read table: %w", err)
	}

	md := renderMarkdown(table.Name, eng.Projection(), sess.cfg.Grid.VisibleRows)
	if plain, _ := cmd.Flags().GetBool("plain"); plain {
		fmt.Print(md)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		fmt.Print(md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Print(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

// renderMarkdown writes the projection as a markdown table. limit caps the
// number of rows printed; zero prints all.
func renderMarkdown(title string, p *grid.Projection, limit int) string {
	var sb strings.Builder
	sb.WriteString("# " + title + "\n\n")

	if p.View.ID != "" {
		sb.WriteString(fmt.Sprintf("View: **%s**", p.View.Name))
		if n := len(p.Filters); n > 0 {
			sb.WriteString(fmt.Sprintf(", %d filter(s)", n))
		}
		if n := len(p.Sorts); n > 0 {
			sb.WriteString(fmt.Sprintf(", %d sort(s)", n))
		}
		sb.WriteString("\n\n")
	}

	if p.ColumnCount() == 0 {
		sb.WriteString("_No columns._\n")
		return sb.String()
	}

	sb.WriteString("| # |")
	for _, c := range p.Columns() {
		sb.WriteString(" " + escapeMarkdown(c.Name) + " |")
	}
	sb.WriteString("\n|---:|")
	for _, c := range p.Columns() {
		if c.Type == types.ColumnNumber {
			sb.WriteString("---:|")
		} else {
			sb.WriteString("---|")
		}
	}
	sb.WriteString("\n")

	rows := p.RowCount()
	if limit > 0 && rows > limit {
		rows = limit
	}
	for r := 0; r < rows; r++ {
		sb.WriteString(fmt.Sprintf("| %d |", r+1))
		for c := 0; c < p.ColumnCount(); c++ {
			sb.WriteString(" " + escapeMarkdown(p.Display(r, c)) + " |")
		}
		sb.WriteString("\n")
	}
	if rows < p.RowCount() {
		sb.WriteString(fmt.Sprintf("\n_%d more rows not shown._\n", p.RowCount()-rows))
	}
	return sb.String()
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
