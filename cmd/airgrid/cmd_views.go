// Package main implements view, filter and sort commands. Filters and sorts
// are stored with their view and shown by "table show"; the grid does not
// apply them.
package main

import (
	"context"
	"fmt"
	"strings"

	"airgrid/internal/types"

	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Manage the views of a table",
}

var viewCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a view",
	Args:  cobra.ExactArgs(1),
	RunE:  runViewCreate,
}

var viewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List views",
	RunE:  runViewList,
}

var viewRenameCmd = &cobra.Command{
	Use:   "rename <view-id> <name>",
	Short: "Rename a view",
	Args:  cobra.ExactArgs(2),
	RunE:  runViewRename,
}

var viewDeleteCmd = &cobra.Command{
	Use:   "delete <view-id>",
	Short: "Delete a view with its filters and sorts",
	Args:  cobra.ExactArgs(1),
	RunE:  runViewDelete,
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Manage the filters of a view",
}

var filterAddCmd = &cobra.Command{
	Use:   "add <column> <operator> [value]",
	Short: "Add a filter (e.g. Age gt 30)",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runFilterAdd,
}

var filterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List filters",
	RunE:  runFilterList,
}

var filterDeleteCmd = &cobra.Command{
	Use:   "delete <filter-id>",
	Short: "Delete a filter",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilterDelete,
}

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Manage the sorts of a view",
}

var sortAddCmd = &cobra.Command{
	Use:   "add <column> [asc|desc]",
	Short: "Add a sort",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSortAdd,
}

var sortListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sorts",
	RunE:  runSortList,
}

var sortDeleteCmd = &cobra.Command{
	Use:   "delete <sort-id>",
	Short: "Delete a sort",
	Args:  cobra.ExactArgs(1),
	RunE:  runSortDelete,
}

func init() {
	for _, c := range []*cobra.Command{viewCreateCmd, viewListCmd} {
		c.Flags().String("table", "", "Table (default: selected)")
	}
	for _, c := range []*cobra.Command{filterAddCmd, filterListCmd, sortAddCmd, sortListCmd} {
		c.Flags().String("table", "", "Table (default: selected)")
		c.Flags().String("view", "", "View (default: selected or first)")
	}

	viewCmd.AddCommand(viewCreateCmd, viewListCmd, viewRenameCmd, viewDeleteCmd)
	filterCmd.AddCommand(filterAddCmd, filterListCmd, filterDeleteCmd)
	sortCmd.AddCommand(sortAddCmd, sortListCmd, sortDeleteCmd)
}

// columnID resolves a column name (ignoring case) or id against the table.
func (s *session) columnID(ctx context.Context, tableID, arg string) (types.Column, error) {
	cols, err := s.store.ListColumns(ctx, tableID)
	if err != nil {
		return types.Column{}, err
	}
	for _, c := range cols {
		if c.ID == arg || strings.EqualFold(c.Name, arg) {
			return c, nil
		}
	}
	return types.Column{}, fmt.Errorf("no column %q", arg)
}

// columnNames maps column ids to names for listings.
func (s *session) columnNames(ctx context.Context, tableID string) map[string]string {
	names := make(map[string]string)
	cols, err := s.store.ListColumns(ctx, tableID)
	if err != nil {
		return names
	}
	for _, c := range cols {
		names[c.ID] = c.Name
	}
	return names
}

func runViewCreate(cmd *cobra.Command, args []string) error {
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

	v, err := sess.store.CreateView(ctx, tableID, args[0])
	if err != nil {
		return fmt.Errorf("failed to create view: %w", err)
	}
	fmt.Printf("Created view %q (%s)\n", v.Name, v.ID)
	return nil
}

func runViewList(cmd *cobra.Command, args []string) error {
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

	views, err := sess.store.ListViews(ctx, tableID)
	if err != nil {
		return fmt.Errorf("failed to list views: %w", err)
	}
	current := sess.nav.Get().ViewID
	fmt.Println("Views")
	printDivider()
	for _, v := range views {
		marker := " "
		if v.ID == current {
			marker = "*"
		}
		fmt.Printf("%s %-24s %s\n", marker, v.Name, v.ID)
	}
	printDivider()
	return nil
}

func runViewRename(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	v, err := sess.store.RenameView(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to rename view: %w", err)
	}
	fmt.Printf("Renamed view %s to %q\n", v.ID, v.Name)
	return nil
}

func runViewDelete(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	v, err := sess.store.DeleteView(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to delete view: %w", err)
	}
	if sess.nav.Get().ViewID == v.ID {
		sess.nav.SetView("")
		if err := sess.nav.Save(); err != nil {
			return err
		}
	}
	fmt.Printf("Deleted view %q\n", v.Name)
	return nil
}

func runFilterAdd(cmd *cobra.Command, args []string) error {
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

	viewID, err := sess.viewFlag(ctx, cmd, tableID)
	if err != nil {
		return err
	}
	col, err := sess.columnID(ctx, tableID, args[0])
	if err != nil {
		return err
	}
	value := ""
	if len(args) == 3 {
		value = args[2]
	}

	f, err := sess.store.CreateFilter(ctx, viewID, col.ID, args[1], value)
	if err != nil {
		return fmt.Errorf("failed to add filter: %w", err)
	}
	fmt.Printf("Added filter %s %s %q (%s)\n", col.Name, f.Operator, f.Value, f.ID)
	return nil
}

func runFilterList(cmd *cobra.Command, args []string) error {
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

	viewID, err := sess.viewFlag(ctx, cmd, tableID)
	if err != nil {
		return err
	}
	filters, err := sess.store.ListFilters(ctx, viewID)
	if err != nil {
		return fmt.Errorf("failed to list filters: %w", err)
	}
	if len(filters) == 0 {
		fmt.Println("No filters.")
		return nil
	}
	names := sess.columnNames(ctx, tableID)
	fmt.Println("Filters")
	printDivider()
	for _, f := range filters {
		fmt.Printf("  %-16s %-8s %-16q %s\n", names[f.ColumnID], f.Operator, f.Value, f.ID)
	}
	printDivider()
	return nil
}

func runFilterDelete(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	f, err := sess.store.DeleteFilter(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to delete filter: %w", err)
	}
	fmt.Printf("Deleted filter %s\n", f.ID)
	return nil
}

func runSortAdd(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 2 {
		dir = args[1]
	}
	direction, err := types.ParseSortDirection(dir)
	if err != nil {
		return err
	}

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

	viewID, err := sess.viewFlag(ctx, cmd, tableID)
	if err != nil {
		return err
	}
	col, err := sess.columnID(ctx, tableID, args[0])
	if err != nil {
		return err
	}
	srt, err := sess.store.CreateSort(ctx, viewID, col.ID, direction)
	if err != nil {
		return fmt.Errorf("failed to add sort: %w", err)
	}
	fmt.Printf("Added sort %s %s (%s)\n", col.Name, srt.Direction, srt.ID)
	return nil
}

func runSortList(cmd *cobra.Command, args []string) error {
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

	viewID, err := sess.viewFlag(ctx, cmd, tableID)
	if err != nil {
		return err
	}
	sorts, err := sess.store.ListSorts(ctx, viewID)
	if err != nil {
		return fmt.Errorf("failed to list sorts: %w", err)
	}
	if len(sorts) == 0 {
		fmt.Println("No sorts.")
		return nil
	}
	names := sess.columnNames(ctx, tableID)
	fmt.Println("Sorts")
	printDivider()
	for _, srt := range sorts {
		fmt.Printf("  %-16s %-5s %s\n", names[srt.ColumnID], srt.Direction, srt.ID)
	}
	printDivider()
	return nil
}

func runSortDelete(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	ctx, cancel := commandContext()
	defer cancel()

	srt, err := sess.store.DeleteSort(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to delete sort: %w", err)
	}
	fmt.Printf("Deleted sort %s\n", srt.ID)
	return nil
}
