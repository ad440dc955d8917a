// Package types defines the entity records shared by the store, the grid engine
// and the user interfaces.
//
// The hierarchy is Workspace -> Base -> Table -> {Column, Row, View}, with Cells
// joining a Row and a Column and Filters/Sorts hanging off a View.
package types

import (
	"fmt"
	"strings"
	"time"
)

const (
	// PositionStep is the gap left between ordinal positions so rows and columns
	// can be reordered later without renumbering their neighbours.
	PositionStep = 1000

	// DefaultColumnWidth is the display width given to new columns.
	DefaultColumnWidth = 200

	// DefaultViewName is the view created alongside every new table.
	DefaultViewName = "Grid view"
)

// ColumnType is the declared type of a column. Cell values are always stored as
// text and interpreted according to this type.
type ColumnType string

const (
	ColumnText   ColumnType = "text"
	ColumnNumber ColumnType = "number"
)

// ParseColumnType accepts the user-facing spellings of a column type.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "":
		return ColumnText, nil
	case "number", "integer", "num":
		return ColumnNumber, nil
	default:
		return "", fmt.Errorf("unknown column type %q (valid: text, number)", s)
	}
}

// String returns the label shown in headers and listings.
func (t ColumnType) String() string {
	switch t {
	case ColumnNumber:
		return "Number"
	default:
		return "Text"
	}
}

// Workspace is an organizational grouping of bases.
type Workspace struct {
	ID        string    `json:"id" msgpack:"id"`
	Name      string    `json:"name" msgpack:"name"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// Base is a collection of tables, analogous to a database.
type Base struct {
	ID          string    `json:"id" msgpack:"id"`
	WorkspaceID string    `json:"workspace_id" msgpack:"workspace_id"`
	Name        string    `json:"name" msgpack:"name"`
	LastOpenAt  time.Time `json:"last_open_at" msgpack:"last_open_at"`
	CreatedAt   time.Time `json:"created_at" msgpack:"created_at"`
}

// Table owns columns, rows and views.
type Table struct {
	ID        string    `json:"id" msgpack:"id"`
	BaseID    string    `json:"base_id" msgpack:"base_id"`
	Name      string    `json:"name" msgpack:"name"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// Column is a typed field of a table. Names are unique per table, compared
// case-insensitively.
type Column struct {
	ID       string     `json:"id" msgpack:"id"`
	TableID  string     `json:"table_id" msgpack:"table_id"`
	Name     string     `json:"name" msgpack:"name"`
	Type     ColumnType `json:"type" msgpack:"type"`
	Width    int        `json:"width" msgpack:"width"`
	Position int        `json:"position" msgpack:"position"`
}

// Row is a record of a table. Its values live in Cells.
type Row struct {
	ID       string `json:"id" msgpack:"id"`
	TableID  string `json:"table_id" msgpack:"table_id"`
	Position int    `json:"position" msgpack:"position"`
}

// Cell holds the value at a (Row, Column) coordinate. At most one Cell exists
// per pair; a missing Cell reads as the column type's empty value.
type Cell struct {
	ID       string `json:"id" msgpack:"id"`
	RowID    string `json:"row_id" msgpack:"row_id"`
	ColumnID string `json:"column_id" msgpack:"column_id"`
	Value    string `json:"value" msgpack:"value"`
}

// View is a named lens onto a table.
type View struct {
	ID      string `json:"id" msgpack:"id"`
	TableID string `json:"table_id" msgpack:"table_id"`
	Name    string `json:"name" msgpack:"name"`
}

// Filter is stored view metadata. Filters are not evaluated against the grid.
type Filter struct {
	ID       string `json:"id" msgpack:"id"`
	ViewID   string `json:"view_id" msgpack:"view_id"`
	ColumnID string `json:"column_id" msgpack:"column_id"`
	Operator string `json:"operator" msgpack:"operator"`
	Value    string `json:"value" msgpack:"value"`
}

// SortDirection orders a Sort.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection accepts asc/desc (case-insensitive). Empty means asc.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return SortAsc, nil
	case "desc", "descending":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q (valid: asc, desc)", s)
	}
}

// Sort is stored view metadata. Sorts are not evaluated against the grid.
type Sort struct {
	ID        string        `json:"id" msgpack:"id"`
	ViewID    string        `json:"view_id" msgpack:"view_id"`
	ColumnID  string        `json:"column_id" msgpack:"column_id"`
	Direction SortDirection `json:"direction" msgpack:"direction"`
}
