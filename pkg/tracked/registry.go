package tracked

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/SteelMorgan/filetrack/pkg/rotation"
	"gopkg.in/yaml.v3"
)

// Registry stores the last position of a tracked reader
type Registry interface {
	// Load returns the stored position. found is false when nothing has
	// been stored yet.
	Load() (pos rotation.Position, found bool, err error)

	// Save replaces the stored position.
	Save(pos rotation.Position) error
}

// FileRegistry keeps a position in a small YAML file:
//
//	inode: 1234567
//	offset: 42
type FileRegistry struct {
	path string
}

// NewFileRegistry returns a registry backed by the file at path. The file
// is created on the first Save.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{path: path}
}

// Path returns the registry file path
func (r *FileRegistry) Path() string {
	return r.path
}

// Load reads the registry file. A missing file is not an error; a file that
// exists but does not hold a valid position is.
func (r *FileRegistry) Load() (rotation.Position, bool, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return rotation.Position{}, false, nil
	}
	if err != nil {
		return rotation.Position{}, false, fmt.Errorf("failed to read registry: %w", err)
	}

	pos, err := DecodePosition(data)
	if err != nil {
		return rotation.Position{}, false, &RegistryError{Path: r.path, Err: err}
	}
	return pos, true, nil
}

// Save overwrites the registry file with pos
func (r *FileRegistry) Save(pos rotation.Position) error {
	data, err := EncodePosition(pos)
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}

// Remove deletes the registry file. A missing file is not an error
func (r *FileRegistry) Remove() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove registry: %w", err)
	}
	return nil
}

// record mirrors the registry layout
type record struct {
	Inode  uint64 `yaml:"inode"`
	Offset uint64 `yaml:"offset"`
}

// rawRecord is what DecodePosition reads. Nodes tell a missing key from
// zero and keep the literal text of each value.
type rawRecord struct {
	Inode  *yaml.Node `yaml:"inode"`
	Offset *yaml.Node `yaml:"offset"`
}

// EncodePosition renders pos in the registry file format
func EncodePosition(pos rotation.Position) ([]byte, error) {
	data, err := yaml.Marshal(record{Inode: pos.Inode, Offset: pos.Offset})
	if err != nil {
		return nil, fmt.Errorf("failed to encode position: %w", err)
	}
	return data, nil
}

// DecodePosition parses the registry file format: a single mapping with
// exactly the keys inode and offset, each a plain decimal number. Anything
// else, trailing documents included, is ErrCorruptRegistry.
func DecodePosition(data []byte) (rotation.Position, error) {
	if hasDocumentMarker(data) {
		return rotation.Position{}, fmt.Errorf("%w: more than one document", ErrCorruptRegistry)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var rec rawRecord
	if err := dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return rotation.Position{}, fmt.Errorf("%w: empty file", ErrCorruptRegistry)
		}
		return rotation.Position{}, fmt.Errorf("%w: %v", ErrCorruptRegistry, err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return rotation.Position{}, fmt.Errorf("%w: trailing data", ErrCorruptRegistry)
	}

	inode, err := decimal("inode", rec.Inode)
	if err != nil {
		return rotation.Position{}, err
	}
	offset, err := decimal("offset", rec.Offset)
	if err != nil {
		return rotation.Position{}, err
	}

	return rotation.Position{Inode: inode, Offset: offset}, nil
}

// decimal accepts only what EncodePosition writes: unquoted ASCII digits
func decimal(key string, n *yaml.Node) (uint64, error) {
	if n == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrCorruptRegistry, key)
	}
	if n.Kind != yaml.ScalarNode || n.Style != 0 || n.Value == "" {
		return 0, fmt.Errorf("%w: %s is not a number", ErrCorruptRegistry, key)
	}
	for _, c := range n.Value {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %s %q is not a decimal number", ErrCorruptRegistry, key, n.Value)
		}
	}

	v, err := strconv.ParseUint(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q out of range", ErrCorruptRegistry, key, n.Value)
	}
	return v, nil
}

// hasDocumentMarker reports a "---" or "..." line, which would let a
// decoder stop early and skip the rest of the file.
func hasDocumentMarker(data []byte) bool {
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimRight(line, "\r")
		for _, marker := range [][]byte{[]byte("---"), []byte("...")} {
			if bytes.Equal(line, marker) ||
				(bytes.HasPrefix(line, marker) && len(line) > 3 && (line[3] == ' ' || line[3] == '\t')) {
				return true
			}
		}
	}
	return false
}
