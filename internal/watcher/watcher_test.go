package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startWatcher(t *testing.T, path string, changes chan<- string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	w := New(path, func(_ context.Context, p string) { changes <- p }, zaptest.NewLogger(t)).
		WithDebounce(50 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	select {
	case <-w.Ready():
	case err := <-done:
		t.Fatalf("watch failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never became ready")
	}
}

func TestWatchDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classes: []\n"), 0644))

	changes := make(chan string, 10)
	startWatcher(t, path, changes)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("classes: []\n"), 0644))
	}

	select {
	case got := <-changes:
		want, _ := filepath.Abs(path)
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case <-changes:
		t.Fatal("burst of writes should be reported once")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classes: []\n"), 0644))

	changes := make(chan string, 10)
	startWatcher(t, path, changes)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644))

	select {
	case p := <-changes:
		t.Fatalf("unexpected change for %s", p)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent", "schema.yaml"), func(context.Context, string) {}, nil)
	err := w.Watch(context.Background())
	assert.Error(t, err)
}
