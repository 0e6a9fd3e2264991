package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestWatcherBatches(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.stl")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{model, other} {
		if err := os.WriteFile(p, []byte("solid"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := New(50*time.Millisecond, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(model); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(changed []string) { batches <- changed })
	}()

	if err := os.WriteFile(other, []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(model, []byte("solid edited"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	want, _ := filepath.Abs(model)
	select {
	case changed := <-batches:
		if len(changed) != 1 || changed[0] != want {
			t.Errorf("Expected batch [%s], got %v", want, changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for change")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatchMissingDir(t *testing.T) {
	w, err := New(time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(filepath.Join(t.TempDir(), "missing", "model.stl")); err == nil {
		t.Error("Expected error for missing directory")
	}
}
