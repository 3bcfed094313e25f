package offset

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/SteelMorgan/filetrack/pkg/rotation"
	"github.com/SteelMorgan/filetrack/pkg/tracked"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"
)

func newStore(t *testing.T) *BoltDBStore {
	t.Helper()
	store, err := NewBoltDBStore(filepath.Join(t.TempDir(), "positions.db"))
	if err != nil {
		t.Fatalf("NewBoltDBStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltDBStore(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	if _, found, err := store.Get(ctx, "/var/log/app.log"); err != nil || found {
		t.Fatalf("Get() on empty store = found %v, err %v", found, err)
	}

	positions := map[string]rotation.Position{
		"/var/log/app.log":  {Inode: 1001, Offset: 42},
		"/var/log/mail.log": {Inode: 1<<63 + 5, Offset: 1 << 40},
	}
	for path, pos := range positions {
		if err := store.Set(ctx, path, pos); err != nil {
			t.Fatalf("Set(%s) error = %v", path, err)
		}
	}

	for path, want := range positions {
		got, found, err := store.Get(ctx, path)
		if err != nil || !found {
			t.Fatalf("Get(%s) = found %v, err %v", path, found, err)
		}
		if got != want {
			t.Errorf("Get(%s) = %v, want %v", path, got, want)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(positions) {
		t.Errorf("List() = %d entries, want %d", len(all), len(positions))
	}

	if err := store.Delete(ctx, "/var/log/app.log"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := store.Get(ctx, "/var/log/app.log"); found {
		t.Error("Get() found a deleted position")
	}
}

func TestBoltDBStoreMalformedValue(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte("bad.log"), []byte{1, 2, 3})
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := store.Get(ctx, "bad.log"); !errors.Is(err, tracked.ErrCorruptRegistry) {
		t.Errorf("Get() error = %v, want ErrCorruptRegistry", err)
	}

	_, _, err = store.Registry("bad.log").Load()
	var regErr *tracked.RegistryError
	if !errors.As(err, &regErr) {
		t.Errorf("Registry().Load() error = %v, want *tracked.RegistryError", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := all["bad.log"]; ok {
		t.Error("List() returned a malformed position")
	}
}

func TestBoltDBStoreAsRegistry(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	logPath := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(logPath, []byte("one\ntwo\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := tracked.DoWithRegistry(logPath, store.Registry(logPath), func(r *tracked.Reader) error {
		_, err := r.ReadLine()
		return err
	}, tracked.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("DoWithRegistry() error = %v", err)
	}

	pos, found, err := store.Get(ctx, logPath)
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if pos.Offset != 4 {
		t.Errorf("stored offset = %d, want 4", pos.Offset)
	}

	r, err := tracked.OpenWithRegistry(logPath, store.Registry(logPath), tracked.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	rest, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(rest) != "two\n" {
		t.Errorf("rest = %q, want %q", rest, "two\n")
	}
}
