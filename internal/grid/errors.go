package grid

import (
	"errors"
	"fmt"
)

// ErrNotEditable is returned when editing is requested on a cell whose row or
// column has not been persisted yet.
var ErrNotEditable = errors.New("cell is not editable until its row and column are saved")

// DuplicateNameError reports a column name that collides, ignoring case, with
// an existing column of the same table. Nothing is mutated when it is returned.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a column with the name %q already exists", e.Name)
}

// ValidationError reports input the target column cannot hold. It blocks a
// commit but never the typing that led to it.
type ValidationError struct {
	Column string
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Column == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Column, e.Reason)
}

// PersistenceError wraps a failed store call. The optimistic change that
// issued it has already been rolled back when the caller sees it.
type PersistenceError struct {
	Op  OpKind
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
