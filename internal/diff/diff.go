// internal/diff/diff.go
package diff

import (
	"bytes"
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// binaryProbe is how many leading bytes are checked for NUL.
const binaryProbe = 8000

// DiffResult is the unified diff of one file between two versions.
type DiffResult struct {
	Path    string
	Unified string
	Binary  bool
	Stats   struct {
		Additions int
		Deletions int
		Changes   int
	}
}

// Empty reports whether the two versions were identical.
func (r *DiffResult) Empty() bool {
	return !r.Binary && r.Unified == ""
}

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{
		contextLines: contextLines,
	}
}

// Diff compares old and new content of path. A nil side is shown as
// /dev/null, so additions and deletions read like git's.
func (e *Engine) Diff(path string, oldContent, newContent []byte) (*DiffResult, error) {
	result := &DiffResult{Path: path}

	fromFile, toFile := "a/"+path, "b/"+path
	if oldContent == nil {
		fromFile = "/dev/null"
	}
	if newContent == nil {
		toFile = "/dev/null"
	}

	if bytes.Equal(oldContent, newContent) && (oldContent == nil) == (newContent == nil) {
		return result, nil
	}

	if isBinary(oldContent) || isBinary(newContent) {
		result.Binary = true
		result.Unified = fmt.Sprintf("Binary files %s and %s differ\n", fromFile, toFile)
		return result, nil
	}

	a := splitLinesKeepNL(string(oldContent))
	b := splitLinesKeepNL(string(newContent))

	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'r':
			result.Stats.Deletions += op.I2 - op.I1
			result.Stats.Additions += op.J2 - op.J1
		case 'd':
			result.Stats.Deletions += op.I2 - op.I1
		case 'i':
			result.Stats.Additions += op.J2 - op.J1
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  e.contextLines,
	})
	if err != nil {
		return nil, fmt.Errorf("diffing %s: %w", path, err)
	}
	result.Unified = unified
	return result, nil
}

// splitLinesKeepNL splits into lines that each end in a newline; a missing
// final newline is supplied so hunks stay line-aligned.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}

func isBinary(data []byte) bool {
	if len(data) > binaryProbe {
		data = data[:binaryProbe]
	}
	return bytes.IndexByte(data, 0) >= 0
}
