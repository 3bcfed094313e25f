package tracked

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SteelMorgan/filetrack/pkg/rotation"
)

func TestDecodePosition(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    rotation.Position
		wantErr bool
	}{
		{
			name: "valid",
			data: "inode: 1234567\noffset: 42\n",
			want: rotation.Position{Inode: 1234567, Offset: 42},
		},
		{
			name: "zero values",
			data: "inode: 0\noffset: 0\n",
			want: rotation.Position{},
		},
		{
			name: "keys in any order",
			data: "offset: 7\ninode: 9\n",
			want: rotation.Position{Inode: 9, Offset: 7},
		},
		{
			name: "max uint64",
			data: "inode: 18446744073709551615\noffset: 1\n",
			want: rotation.Position{Inode: 18446744073709551615, Offset: 1},
		},
		{name: "empty file", data: "", wantErr: true},
		{name: "missing offset", data: "inode: 12\n", wantErr: true},
		{name: "missing inode", data: "offset: 12\n", wantErr: true},
		{name: "truncated key", data: "inode: 12\noff", wantErr: true},
		{name: "negative offset", data: "inode: 12\noffset: -1\n", wantErr: true},
		{name: "not a number", data: "inode: twelve\noffset: 1\n", wantErr: true},
		{name: "unknown key", data: "inode: 1\noffset: 1\nsize: 3\n", wantErr: true},
		{name: "plain text", data: "not a registry", wantErr: true},
		{name: "binary garbage", data: "\x00\x01\x02\xff\xfe", wantErr: true},
		{name: "second document", data: "inode: 12\noffset: 42\n---\nnot: [valid", wantErr: true},
		{name: "garbage after end marker", data: "inode: 12\noffset: 42\n...\n#$%garbage", wantErr: true},
		{name: "leading document marker", data: "---\ninode: 12\noffset: 42\n", wantErr: true},
		{name: "trailing text after flow mapping", data: "{inode: 1, offset: 2} trailing", wantErr: true},
		{name: "hex number", data: "inode: 0x10\noffset: 1\n", wantErr: true},
		{name: "float number", data: "inode: 16\noffset: 1e3\n", wantErr: true},
		{name: "quoted number", data: "inode: \"16\"\noffset: 1\n", wantErr: true},
		{name: "signed number", data: "inode: +16\noffset: 1\n", wantErr: true},
		{name: "overflow", data: "inode: 18446744073709551616\noffset: 1\n", wantErr: true},
		{name: "null value", data: "inode: ~\noffset: 1\n", wantErr: true},
		{name: "nested value", data: "inode: {a: 1}\noffset: 1\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePosition([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodePosition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrCorruptRegistry) {
					t.Errorf("DecodePosition() error = %v, want ErrCorruptRegistry", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("DecodePosition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodePosition(t *testing.T) {
	data, err := EncodePosition(rotation.Position{Inode: 12, Offset: 34})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "inode: 12\noffset: 34\n" {
		t.Errorf("EncodePosition() = %q", data)
	}
}

func TestFileRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry")
	reg := NewFileRegistry(path)

	_, found, err := reg.Load()
	if err != nil || found {
		t.Fatalf("Load() on missing file = found %v, err %v", found, err)
	}

	want := rotation.Position{Inode: 77, Offset: 1024}
	if err := reg.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := reg.Save(rotation.Position{Inode: 77, Offset: 5}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := reg.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, found, err := reg.Load()
	if err != nil || !found {
		t.Fatalf("Load() = found %v, err %v", found, err)
	}
	if got != want {
		t.Errorf("Load() = %v, want %v", got, want)
	}

	if err := reg.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := reg.Remove(); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}
}

func TestFileRegistryCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry")
	if err := os.WriteFile(path, []byte("inode: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := NewFileRegistry(path).Load()
	var regErr *RegistryError
	if !errors.As(err, &regErr) {
		t.Fatalf("Load() error = %v, want *RegistryError", err)
	}
	if regErr.Path != path {
		t.Errorf("RegistryError.Path = %q, want %q", regErr.Path, path)
	}
	if !errors.Is(err, ErrCorruptRegistry) {
		t.Errorf("Load() error = %v, want ErrCorruptRegistry", err)
	}
}
