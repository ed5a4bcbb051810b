// Package index reads and writes the staging index: the change list recorded
// by observe and consumed by track.
package index

import (
	"bytes"
	"os"
	"strings"

	"gyat/internal/content"
	"gyat/internal/errors"
	"gyat/internal/hash"
)

// Entry is one staged change. Hash is the observed content for New and Mod,
// and the last committed content for Del.
type Entry struct {
	Writable bool
	Hash     hash.Hash
	Path     string
	Kind     content.ChangeKind
}

// Encode renders entries as "<perm>\t<hash>\t<path>\t<kind>" lines, perm
// being 0 for read-only files and 1 otherwise. Paths are written with
// content.EncodeName so tabs and newlines in them stay inside the field.
func Encode(entries []Entry) []byte {
	var b bytes.Buffer
	for _, e := range entries {
		if e.Writable {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
		b.WriteByte('\t')
		b.WriteString(e.Hash.String())
		b.WriteByte('\t')
		b.WriteString(content.EncodeName(e.Path))
		b.WriteByte('\t')
		b.WriteString(string(e.Kind))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Parse decodes index content; path only labels errors.
func Parse(path string, data []byte) ([]Entry, error) {
	var entries []Entry
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 4 {
			return nil, errors.FormatError(path, "line %d: expected 4 fields, got %d", i+1, len(parts))
		}

		var e Entry
		switch parts[0] {
		case "0":
		case "1":
			e.Writable = true
		default:
			return nil, errors.FormatError(path, "line %d: invalid permission %q", i+1, parts[0])
		}

		h, err := hash.FromHex(parts[1])
		if err != nil {
			return nil, &errors.Error{Type: errors.ErrorTypeFormat, Path: path, Message: "invalid hash", Err: err}
		}
		e.Hash = h

		p, err := content.DecodeName(parts[2])
		if err != nil {
			return nil, errors.FormatError(path, "line %d: malformed path %s", i+1, parts[2])
		}
		if p == "" {
			return nil, errors.FormatError(path, "line %d: empty path", i+1)
		}
		e.Path = p

		kind, err := content.ParseChangeKind(parts[3])
		if err != nil {
			return nil, errors.FormatError(path, "line %d: invalid change %q", i+1, parts[3])
		}
		e.Kind = kind

		entries = append(entries, e)
	}
	return entries, nil
}

// Read loads the index at path. A missing file is an empty index.
func Read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.IO(path, err)
	}
	return Parse(path, data)
}

// Write replaces the index at path with entries.
func Write(path string, entries []Entry) error {
	if err := os.WriteFile(path, Encode(entries), 0o644); err != nil {
		return errors.IO(path, err)
	}
	return nil
}

func Clear(path string) error {
	return Write(path, nil)
}

// Changes lists the entries as commit change records.
func Changes(entries []Entry) []content.Change {
	changes := make([]content.Change, 0, len(entries))
	for _, e := range entries {
		changes = append(changes, content.Change{Kind: e.Kind, Path: e.Path})
	}
	return changes
}
