package content

import (
	"sort"
	"strings"

	"gyat/internal/errors"
	"gyat/internal/hash"
)

// EncodeTree renders entries as "<kind>\t<hash>\t<name>" lines, sorted by name
// so equal child sets always encode, and therefore hash, identically. Names
// go through EncodeName.
func EncodeTree(entries []Entry) []byte {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for _, e := range sorted {
		b.WriteString(string(e.Kind))
		b.WriteByte('\t')
		b.WriteString(e.Hash.String())
		b.WriteByte('\t')
		b.WriteString(EncodeName(e.Name))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// ParseTree decodes a tree object; path is used only in error messages.
func ParseTree(path string, data []byte) ([]Entry, error) {
	var entries []Entry
	for i, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			return nil, errors.FormatError(path, "line %d: expected 3 fields, got %d", i+1, len(parts))
		}
		kind, err := ParseKind(parts[0])
		if err != nil {
			return nil, errors.FormatError(path, "line %d: invalid kind %q", i+1, parts[0])
		}
		h, err := hash.FromHex(parts[1])
		if err != nil {
			return nil, &errors.Error{Type: errors.ErrorTypeFormat, Path: path, Message: "invalid child hash", Err: err}
		}
		name, err := DecodeName(parts[2])
		if err != nil {
			return nil, errors.FormatError(path, "line %d: malformed name %s", i+1, parts[2])
		}
		if name == "" {
			return nil, errors.FormatError(path, "line %d: empty name", i+1)
		}
		entries = append(entries, Entry{Kind: kind, Hash: h, Name: name})
	}
	return entries, nil
}
