package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no roots provided")
}

func TestWatcherEmitsNewFiles(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evCh, errCh, err := StartWatcher(ctx, WatchConfig{
		Roots:    []string{dir},
		Debounce: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	path := filepath.Join(dir, "intake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	select {
	case got := <-evCh:
		assert.Equal(t, path, got)
	case werr := <-errCh:
		t.Fatalf("watcher error: %v", werr)
	case <-time.After(3 * time.Second):
		t.Fatal("no event before timeout")
	}
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evCh, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain"), 0o644))

	select {
	case got := <-evCh:
		t.Fatalf("unexpected event for %q", got)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherInitialScan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "existing.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evCh, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
	})
	require.NoError(t, err)

	// initial-scan paths are buffered before StartWatcher returns
	select {
	case got := <-evCh:
		assert.Equal(t, path, got)
	case <-time.After(time.Second):
		t.Fatal("initial scan emitted nothing")
	}
}
