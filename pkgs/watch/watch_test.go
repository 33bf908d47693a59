package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

func expectRun(t *testing.T, runs <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-runs:
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s run", what)
	}
}

func TestWatchRerunsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LICENSE")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(context.Context) error {
			runs <- struct{}{}
			return errors.New("runs keep going after a failure")
		}, Options{Debounce: 10 * time.Millisecond})
	}()

	expectRun(t, runs, "initial")

	// Give the watcher time to register before the first change.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	expectRun(t, runs, "first change")

	require.NoError(t, os.WriteFile(path, []byte("v3"), 0o644))
	expectRun(t, runs, "second change")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LICENSE")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan struct{}, 10)
	go func() {
		_ = Watch(ctx, path, func(context.Context) error {
			runs <- struct{}{}
			return nil
		}, Options{Debounce: 10 * time.Millisecond})
	}()

	expectRun(t, runs, "initial")
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "verdict.txt"), []byte("x"), 0o644))

	select {
	case <-runs:
		t.Fatal("write to another file triggered a run")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchRerunsOnDependencyWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LICENSE")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	evidenceDir := filepath.Join(dir, "evidence")
	require.NoError(t, os.Mkdir(evidenceDir, 0o755))
	evidence := filepath.Join(evidenceDir, "facts.lspl")
	require.NoError(t, os.WriteFile(evidence, []byte("v1"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan struct{}, 10)
	go func() {
		_ = Watch(ctx, path, func(context.Context) error {
			runs <- struct{}{}
			return nil
		}, Options{
			Debounce:     10 * time.Millisecond,
			Dependencies: func() []string { return []string{evidence} },
		})
	}()

	expectRun(t, runs, "initial")
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(evidence, []byte("v2"), 0o644))
	expectRun(t, runs, "dependency change")
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing", "LICENSE"),
		func(context.Context) error { return nil }, Options{})
	assert.Error(t, err)
}
