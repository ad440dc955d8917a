package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"airgrid/internal/types"
)

// ErrInjected is the default failure returned by a Recorder fault.
var ErrInjected = errors.New("injected store failure")

// Recorder wraps a Store, counting calls per operation and injecting
// failures or pauses on chosen calls. Tests use it to drive the grid
// engine's rollback paths.
//
//	rec := store.NewRecorder(s)
//	rec.FailOn("CreateCell", 2, nil) // second CreateCell fails
//	rec.FailOn("UpdateCell", 0, nil) // every UpdateCell fails
type Recorder struct {
	Store

	mu     sync.Mutex
	calls  map[string]int
	faults map[string][]fault
	holds  map[string]chan struct{}
}

type fault struct {
	nth int // 1-based call number; 0 matches every call
	err error
}

// NewRecorder wraps s.
func NewRecorder(s Store) *Recorder {
	return &Recorder{
		Store:  s,
		calls:  make(map[string]int),
		faults: make(map[string][]fault),
		holds:  make(map[string]chan struct{}),
	}
}

// FailOn makes the nth call (1-based, counted from now on the running total)
// of op fail with err. nth == 0 fails every call. A nil err means ErrInjected.
func (r *Recorder) FailOn(op string, nth int, err error) {
	if err == nil {
		err = ErrInjected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if nth > 0 {
		nth += r.calls[op]
	}
	r.faults[op] = append(r.faults[op], fault{nth: nth, err: err})
}

// Hold blocks every subsequent call of op until the returned release func
// runs or the call's context ends.
func (r *Recorder) Hold(op string) (release func()) {
	ch := make(chan struct{})
	r.mu.Lock()
	r.holds[op] = ch
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if r.holds[op] == ch {
				delete(r.holds, op)
			}
			r.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many times op was invoked, including failed calls.
func (r *Recorder) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// Counts returns a copy of all call counts.
func (r *Recorder) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.calls))
	for k, v := range r.calls {
		out[k] = v
	}
	return out
}

// Ops lists the operations invoked so far, sorted.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for k := range r.calls {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Reset clears counts, faults and holds.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = make(map[string]int)
	r.faults = make(map[string][]fault)
	for _, ch := range r.holds {
		close(ch)
	}
	r.holds = make(map[string]chan struct{})
}

func (r *Recorder) before(ctx context.Context, op string) error {
	r.mu.Lock()
	r.calls[op]++
	n := r.calls[op]
	var injected error
	for _, f := range r.faults[op] {
		if f.nth == 0 || f.nth == n {
			injected = f.err
			break
		}
	}
	hold := r.holds[op]
	r.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if injected != nil {
		return fmt.Errorf("%s call %d: %w", op, n, injected)
	}
	return nil
}

// Every Store method counts the call and applies any fault before delegating.

func (r *Recorder) CreateWorkspace(ctx context.Context, name string) (types.Workspace, error) {
	if err := r.before(ctx, "CreateWorkspace"); err != nil {
		return types.Workspace{}, err
	}
	return r.Store.CreateWorkspace(ctx, name)
}

func (r *Recorder) ListWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	if err := r.before(ctx, "ListWorkspaces"); err != nil {
		return nil, err
	}
	return r.Store.ListWorkspaces(ctx)
}

func (r *Recorder) RenameWorkspace(ctx context.Context, id, name string) (types.Workspace, error) {
	if err := r.before(ctx, "RenameWorkspace"); err != nil {
		return types.Workspace{}, err
	}
	return r.Store.RenameWorkspace(ctx, id, name)
}

func (r *Recorder) DeleteWorkspace(ctx context.Context, id string) (types.Workspace, error) {
	if err := r.before(ctx, "DeleteWorkspace"); err != nil {
		return types.Workspace{}, err
	}
	return r.Store.DeleteWorkspace(ctx, id)
}

func (r *Recorder) CreateBase(ctx context.Context, workspaceID, name string) (types.Base, error) {
	if err := r.before(ctx, "CreateBase"); err != nil {
		return types.Base{}, err
	}
	return r.Store.CreateBase(ctx, workspaceID, name)
}

func (r *Recorder) ListBases(ctx context.Context, workspaceID string) ([]types.Base, error) {
	if err := r.before(ctx, "ListBases"); err != nil {
		return nil, err
	}
	return r.Store.ListBases(ctx, workspaceID)
}

func (r *Recorder) RenameBase(ctx context.Context, id, name string) (types.Base, error) {
	if err := r.before(ctx, "RenameBase"); err != nil {
		return types.Base{}, err
	}
	return r.Store.RenameBase(ctx, id, name)
}

func (r *Recorder) MoveBase(ctx context.Context, id, workspaceID string) (types.Base, error) {
	if err := r.before(ctx, "MoveBase"); err != nil {
		return types.Base{}, err
	}
	return r.Store.MoveBase(ctx, id, workspaceID)
}

func (r *Recorder) OpenBase(ctx context.Context, id string) (types.Base, error) {
	if err := r.before(ctx, "OpenBase"); err != nil {
		return types.Base{}, err
	}
	return r.Store.OpenBase(ctx, id)
}

func (r *Recorder) DeleteBase(ctx context.Context, id string) (types.Base, error) {
	if err := r.before(ctx, "DeleteBase"); err != nil {
		return types.Base{}, err
	}
	return r.Store.DeleteBase(ctx, id)
}

func (r *Recorder) CreateTable(ctx context.Context, baseID, name string) (types.Table, error) {
	if err := r.before(ctx, "CreateTable"); err != nil {
		return types.Table{}, err
	}
	return r.Store.CreateTable(ctx, baseID, name)
}

func (r *Recorder) GetTable(ctx context.Context, id string) (types.Table, error) {
	if err := r.before(ctx, "GetTable"); err != nil {
		return types.Table{}, err
	}
	return r.Store.GetTable(ctx, id)
}

func (r *Recorder) ListTables(ctx context.Context, baseID string) ([]types.Table, error) {
	if err := r.before(ctx, "ListTables"); err != nil {
		return nil, err
	}
	return r.Store.ListTables(ctx, baseID)
}

func (r *Recorder) RenameTable(ctx context.Context, id, name string) (types.Table, error) {
	if err := r.before(ctx, "RenameTable"); err != nil {
		return types.Table{}, err
	}
	return r.Store.RenameTable(ctx, id, name)
}

func (r *Recorder) DeleteTable(ctx context.Context, id string) (types.Table, error) {
	if err := r.before(ctx, "DeleteTable"); err != nil {
		return types.Table{}, err
	}
	return r.Store.DeleteTable(ctx, id)
}

func (r *Recorder) ListColumns(ctx context.Context, tableID string) ([]types.Column, error) {
	if err := r.before(ctx, "ListColumns"); err != nil {
		return nil, err
	}
	return r.Store.ListColumns(ctx, tableID)
}

func (r *Recorder) CreateColumn(ctx context.Context, tableID, name string, typ types.ColumnType, position int) (types.Column, error) {
	if err := r.before(ctx, "CreateColumn"); err != nil {
		return types.Column{}, err
	}
	return r.Store.CreateColumn(ctx, tableID, name, typ, position)
}

func (r *Recorder) RenameColumn(ctx context.Context, id, name string) (types.Column, error) {
	if err := r.before(ctx, "RenameColumn"); err != nil {
		return types.Column{}, err
	}
	return r.Store.RenameColumn(ctx, id, name)
}

func (r *Recorder) DeleteColumn(ctx context.Context, id string) (types.Column, error) {
	if err := r.before(ctx, "DeleteColumn"); err != nil {
		return types.Column{}, err
	}
	return r.Store.DeleteColumn(ctx, id)
}

func (r *Recorder) ListRows(ctx context.Context, tableID string) ([]types.Row, error) {
	if err := r.before(ctx, "ListRows"); err != nil {
		return nil, err
	}
	return r.Store.ListRows(ctx, tableID)
}

func (r *Recorder) CreateRow(ctx context.Context, tableID string, position int) (types.Row, error) {
	if err := r.before(ctx, "CreateRow"); err != nil {
		return types.Row{}, err
	}
	return r.Store.CreateRow(ctx, tableID, position)
}

func (r *Recorder) DeleteRow(ctx context.Context, id string) (types.Row, error) {
	if err := r.before(ctx, "DeleteRow"); err != nil {
		return types.Row{}, err
	}
	return r.Store.DeleteRow(ctx, id)
}

func (r *Recorder) ListCellsForTable(ctx context.Context, tableID string) ([]types.Cell, error) {
	if err := r.before(ctx, "ListCellsForTable"); err != nil {
		return nil, err
	}
	return r.Store.ListCellsForTable(ctx, tableID)
}

func (r *Recorder) ListCellsForRow(ctx context.Context, rowID string) ([]types.Cell, error) {
	if err := r.before(ctx, "ListCellsForRow"); err != nil {
		return nil, err
	}
	return r.Store.ListCellsForRow(ctx, rowID)
}

func (r *Recorder) CreateCell(ctx context.Context, rowID, columnID, value string) (types.Cell, error) {
	if err := r.before(ctx, "CreateCell"); err != nil {
		return types.Cell{}, err
	}
	return r.Store.CreateCell(ctx, rowID, columnID, value)
}

func (r *Recorder) UpdateCell(ctx context.Context, id, value string) (types.Cell, error) {
	if err := r.before(ctx, "UpdateCell"); err != nil {
		return types.Cell{}, err
	}
	return r.Store.UpdateCell(ctx, id, value)
}

func (r *Recorder) DeleteCell(ctx context.Context, id string) (types.Cell, error) {
	if err := r.before(ctx, "DeleteCell"); err != nil {
		return types.Cell{}, err
	}
	return r.Store.DeleteCell(ctx, id)
}

func (r *Recorder) ListViews(ctx context.Context, tableID string) ([]types.View, error) {
	if err := r.before(ctx, "ListViews"); err != nil {
		return nil, err
	}
	return r.Store.ListViews(ctx, tableID)
}

func (r *Recorder) CreateView(ctx context.Context, tableID, name string) (types.View, error) {
	if err := r.before(ctx, "CreateView"); err != nil {
		return types.View{}, err
	}
	return r.Store.CreateView(ctx, tableID, name)
}

func (r *Recorder) RenameView(ctx context.Context, id, name string) (types.View, error) {
	if err := r.before(ctx, "RenameView"); err != nil {
		return types.View{}, err
	}
	return r.Store.RenameView(ctx, id, name)
}

func (r *Recorder) DeleteView(ctx context.Context, id string) (types.View, error) {
	if err := r.before(ctx, "DeleteView"); err != nil {
		return types.View{}, err
	}
	return r.Store.DeleteView(ctx, id)
}

func (r *Recorder) ListFilters(ctx context.Context, viewID string) ([]types.Filter, error) {
	if err := r.before(ctx, "ListFilters"); err != nil {
		return nil, err
	}
	return r.Store.ListFilters(ctx, viewID)
}

func (r *Recorder) CreateFilter(ctx context.Context, viewID, columnID, operator, value string) (types.Filter, error) {
	if err := r.before(ctx, "CreateFilter"); err != nil {
		return types.Filter{}, err
	}
	return r.Store.CreateFilter(ctx, viewID, columnID, operator, value)
}

func (r *Recorder) DeleteFilter(ctx context.Context, id string) (types.Filter, error) {
	if err := r.before(ctx, "DeleteFilter"); err != nil {
		return types.Filter{}, err
	}
	return r.Store.DeleteFilter(ctx, id)
}

func (r *Recorder) ListSorts(ctx context.Context, viewID string) ([]types.Sort, error) {
	if err := r.before(ctx, "ListSorts"); err != nil {
		return nil, err
	}
	return r.Store.ListSorts(ctx, viewID)
}

func (r *Recorder) CreateSort(ctx context.Context, viewID, columnID string, dir types.SortDirection) (types.Sort, error) {
	if err := r.before(ctx, "CreateSort"); err != nil {
		return types.Sort{}, err
	}
	return r.Store.CreateSort(ctx, viewID, columnID, dir)
}

func (r *Recorder) DeleteSort(ctx context.Context, id string) (types.Sort, error) {
	if err := r.before(ctx, "DeleteSort"); err != nil {
		return types.Sort{}, err
	}
	return r.Store.DeleteSort(ctx, id)
}
