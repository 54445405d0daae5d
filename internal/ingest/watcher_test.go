package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func nextPath(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed before %s", want)
			}
			if p == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestWatch_EmitsExistingAndNewFiles(t *testing.T) {
	root := writeTree(t, map[string][]byte{"old.png": pngBytes(t)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond}, discardLogger())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	nextPath(t, events, filepath.Join(root, "old.png"))

	fresh := filepath.Join(root, "new.pdf")
	if err := os.WriteFile(fresh, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	nextPath(t, events, fresh)

	cancel()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel not closed after cancel")
		}
	}
}

func TestWatch_RequiresRoots(t *testing.T) {
	if _, _, err := Watch(context.Background(), WatchConfig{}, discardLogger()); err == nil {
		t.Fatal("expected error without roots")
	}
}
