package content

import (
	"strconv"
	"strings"
	"time"

	"gyat/internal/errors"
	"gyat/internal/hash"
)

// DateLayout is how commit timestamps are written, in local time.
const DateLayout = "Mon Jan 02 15:04:05 2006"

const noParent = "0"

// EncodeCommit renders the commit record. The message is Go-quoted so that
// newlines or field-like prefixes inside it cannot break the line format.
func EncodeCommit(c *Commit) []byte {
	var b strings.Builder

	parent := noParent
	if c.HasParent() {
		parent = c.Parent.String()
	}
	b.WriteString("Parent: " + parent + "\n")
	b.WriteString("Tree: " + c.Tree.String() + "\n")
	b.WriteString("Message: " + strconv.Quote(c.Message) + "\n")
	b.WriteString("Date: " + c.Date.Local().Format(DateLayout) + "\n")
	b.WriteString("Changes:\n")
	for _, ch := range c.Changes {
		b.WriteString(string(ch.Kind) + "\t" + EncodeName(ch.Path) + "\n")
	}
	return []byte(b.String())
}

// ParseCommit decodes a commit record. A parent field too short to be a hash
// means the commit has no parent. Unquoted messages are accepted as written.
func ParseCommit(path string, data []byte) (*Commit, error) {
	lines := strings.Split(string(data), "\n")
	field := func(i int, name string) (string, error) {
		if i >= len(lines) {
			return "", errors.FormatError(path, "missing %s field", name)
		}
		v, ok := strings.CutPrefix(lines[i], name+":")
		if !ok {
			return "", errors.FormatError(path, "line %d: expected %s field", i+1, name)
		}
		return strings.TrimSpace(v), nil
	}

	c := &Commit{}

	parent, err := field(0, "Parent")
	if err != nil {
		return nil, err
	}
	if len(parent) >= hash.HexSize {
		if c.Parent, err = hash.FromHex(parent); err != nil {
			return nil, &errors.Error{Type: errors.ErrorTypeFormat, Path: path, Message: "invalid parent", Err: err}
		}
	}

	tree, err := field(1, "Tree")
	if err != nil {
		return nil, err
	}
	if c.Tree, err = hash.FromHex(tree); err != nil {
		return nil, &errors.Error{Type: errors.ErrorTypeFormat, Path: path, Message: "invalid tree", Err: err}
	}

	// Missing trailing fields are tolerated; only Parent and Tree are required.
	if msg, err := field(2, "Message"); err == nil {
		if unquoted, err := strconv.Unquote(msg); err == nil {
			msg = unquoted
		}
		c.Message = msg
	}

	if date, err := field(3, "Date"); err == nil && date != "" {
		t, err := time.ParseInLocation(DateLayout, date, time.Local)
		if err != nil {
			return nil, &errors.Error{Type: errors.ErrorTypeFormat, Path: path, Message: "invalid date", Err: err}
		}
		c.Date = t
	}

	if len(lines) > 5 && lines[4] == "Changes:" {
		for i, line := range lines[5:] {
			if line == "" {
				continue
			}
			kind, p, ok := strings.Cut(line, "\t")
			if !ok {
				return nil, errors.FormatError(path, "line %d: malformed change", i+6)
			}
			ck, err := ParseChangeKind(kind)
			if err != nil {
				return nil, errors.FormatError(path, "line %d: invalid change %q", i+6, kind)
			}
			if p, err = DecodeName(p); err != nil {
				return nil, errors.FormatError(path, "line %d: malformed path", i+6)
			}
			c.Changes = append(c.Changes, Change{Kind: ck, Path: p})
		}
	}

	return c, nil
}
