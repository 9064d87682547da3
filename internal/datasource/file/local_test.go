package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src := NewLocal(path)
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "a,b\n1,2\n" {
		t.Fatalf("body=%q", body)
	}
}

func TestOpenMissingFile(t *testing.T) {
	src := NewLocal(filepath.Join(t.TempDir(), "absent.csv"))
	_, err := src.Open(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist in chain, got %v", err)
	}
}

func TestOpenCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewLocal("anything")
	if _, err := src.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
