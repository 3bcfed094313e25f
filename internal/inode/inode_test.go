package inode

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOfPathFollowsRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte("first\n"), 0644); err != nil {
		t.Fatal(err)
	}

	before, err := OfPath(path)
	if err != nil {
		t.Fatalf("OfPath() error = %v", err)
	}

	rotated := path + ".1"
	if err := os.Rename(path, rotated); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("second\n"), 0644); err != nil {
		t.Fatal(err)
	}

	moved, err := OfPath(rotated)
	if err != nil {
		t.Fatalf("OfPath() error = %v", err)
	}
	if moved != before {
		t.Errorf("renamed file inode = %d, want %d", moved, before)
	}

	fresh, err := OfPath(path)
	if err != nil {
		t.Fatalf("OfPath() error = %v", err)
	}
	if fresh == before {
		t.Errorf("new file reused inode %d", fresh)
	}
}

func TestOfMatchesOfPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	byHandle, err := Of(f)
	if err != nil {
		t.Fatalf("Of() error = %v", err)
	}
	byPath, err := OfPath(path)
	if err != nil {
		t.Fatalf("OfPath() error = %v", err)
	}
	if byHandle != byPath {
		t.Errorf("Of() = %d, OfPath() = %d", byHandle, byPath)
	}
}

func TestOfPathMissing(t *testing.T) {
	_, err := OfPath(filepath.Join(t.TempDir(), "missing.log"))
	if !os.IsNotExist(err) {
		t.Errorf("OfPath() error = %v, want not-exist", err)
	}
}
