package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"airgrid/internal/config"
	"airgrid/internal/store"
	"airgrid/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(driver, path string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = driver
	cfg.Storage.Path = path
	return cfg
}

func newRecorder(t *testing.T) (*store.Recorder, types.Table) {
	t.Helper()
	s, err := store.NewLocalStore("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	rec := store.NewRecorder(s)
	return rec, seedTable(t, rec)
}

func TestRecorder_CountsCalls(t *testing.T) {
	rec, tbl := newRecorder(t)
	ctx := context.Background()

	_, err := rec.ListColumns(ctx, tbl.ID)
	require.NoError(t, err)
	_, err = rec.ListColumns(ctx, tbl.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.Calls("ListColumns"))
	assert.Equal(t, 1, rec.Calls("CreateTable"))
	assert.Equal(t, 0, rec.Calls("UpdateCell"))
	assert.Contains(t, rec.Ops(), "CreateWorkspace")

	rec.Reset()
	assert.Empty(t, rec.Counts())
}

func TestRecorder_FailOnNthCall(t *testing.T) {
	rec, tbl := newRecorder(t)
	ctx := context.Background()

	rec.FailOn("CreateRow", 2, nil)

	_, err := rec.CreateRow(ctx, tbl.ID, 0)
	require.NoError(t, err)
	_, err = rec.CreateRow(ctx, tbl.ID, 1000)
	require.ErrorIs(t, err, store.ErrInjected)
	_, err = rec.CreateRow(ctx, tbl.ID, 2000)
	require.NoError(t, err)

	rows, err := rec.ListRows(ctx, tbl.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "the failed call must not reach the store")
	assert.Equal(t, 3, rec.Calls("CreateRow"))
}

func TestRecorder_FailEveryCallWithCustomError(t *testing.T) {
	rec, tbl := newRecorder(t)
	ctx := context.Background()
	boom := errors.New("disk full")

	rec.FailOn("CreateColumn", 0, boom)
	for i := 0; i < 3; i++ {
		_, err := rec.CreateColumn(ctx, tbl.ID, "X", types.ColumnText, 1000)
		require.ErrorIs(t, err, boom)
	}
}

func TestRecorder_HoldBlocksUntilRelease(t *testing.T) {
	rec, tbl := newRecorder(t)
	ctx := context.Background()

	release := rec.Hold("CreateRow")
	done := make(chan error, 1)
	go func() {
		_, err := rec.CreateRow(ctx, tbl.ID, 0)
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("held call returned before release")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("held call never returned")
	}
}

func TestRecorder_HoldHonoursContext(t *testing.T) {
	rec, tbl := newRecorder(t)
	release := rec.Hold("CreateRow")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rec.CreateRow(ctx, tbl.ID, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
