package watch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/revdiff/internal/watch"
	"github.com/Sumatoshi-tech/revdiff/pkg/textdiff"
)

const eventTimeout = 5 * time.Second

func startWatcher(t *testing.T, paths []string, opts watch.Options) (<-chan watch.Event, <-chan error) {
	t.Helper()

	w, err := watch.New(paths, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan watch.Event, 16)
	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx, func(e watch.Event) error {
			events <- e

			return nil
		})
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})

	return events, done
}

func TestNew_NoFiles(t *testing.T) {
	t.Parallel()

	_, err := watch.New(nil, watch.Options{})
	require.ErrorIs(t, err, watch.ErrNoFiles)
}

func TestNew_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := watch.New([]string{filepath.Join(t.TempDir(), "absent.txt")}, watch.Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_ReportsRevision(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o600))

	events, _ := startWatcher(t, []string{path}, watch.Options{
		Debounce: 20 * time.Millisecond,
		Diff:     []textdiff.Option{textdiff.WithThreshold(1)},
	})

	require.NoError(t, os.WriteFile(path, []byte("first\nsecond\n"), 0o600))

	select {
	case e := <-events:
		abs, err := filepath.Abs(path)
		require.NoError(t, err)

		assert.Equal(t, abs, e.Path)
		assert.Equal(t, 1, e.Result.LinesAdded)
		assert.True(t, e.Result.IsSignificant)
		assert.Equal(t, "first\nsecond\n", e.Result.AfterContent)
	case <-time.After(eventTimeout):
		t.Fatal("no event received")
	}
}

func TestRun_SnapshotAdvances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o600))

	events, _ := startWatcher(t, []string{path}, watch.Options{Debounce: 20 * time.Millisecond})

	next := func() watch.Event {
		select {
		case e := <-events:
			return e
		case <-time.After(eventTimeout):
			t.Fatal("no event received")

			return watch.Event{}
		}
	}

	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o600))
	assert.Equal(t, 1, next().Result.LinesAdded)

	require.NoError(t, os.WriteFile(path, []byte("b\n"), 0o600))

	second := next()
	assert.Equal(t, 0, second.Result.LinesAdded)
	assert.Equal(t, 1, second.Result.LinesRemoved)
}

func TestRun_IgnoresUntrackedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tracked := filepath.Join(dir, "tracked.txt")
	require.NoError(t, os.WriteFile(tracked, []byte("x\n"), 0o600))

	events, _ := startWatcher(t, []string{tracked}, watch.Options{Debounce: 20 * time.Millisecond})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("noise\n"), 0o600))
	require.NoError(t, os.WriteFile(tracked, []byte("x\ny\n"), 0o600))

	select {
	case e := <-events:
		assert.Equal(t, "tracked.txt", filepath.Base(e.Path))
	case <-time.After(eventTimeout):
		t.Fatal("no event received")
	}
}

var errStop = errors.New("stop")

func TestRun_EmitErrorStops(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o600))

	w, err := watch.New([]string{path}, watch.Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Close() })

	done := make(chan error, 1)

	go func() {
		done <- w.Run(context.Background(), func(watch.Event) error { return errStop })
	}()

	require.NoError(t, os.WriteFile(path, []byte("changed\n"), 0o600))

	select {
	case err := <-done:
		require.ErrorIs(t, err, errStop)
	case <-time.After(eventTimeout):
		t.Fatal("Run did not stop")
	}
}
