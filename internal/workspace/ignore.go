package workspace

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gyat/internal/errors"
)

const builtinIgnore = `^\.gyat(/|$)`

// Matcher decides whether a repository-relative path is excluded. Patterns
// are regular expressions matched anywhere in the slash-separated path.
type Matcher struct {
	re *regexp.Regexp
}

func NewMatcher(patterns []string) (*Matcher, error) {
	alts := []string{builtinIgnore}
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, &errors.Error{Type: errors.ErrorTypeFormat, Path: IgnoreFile, Message: "invalid pattern " + p, Err: err}
		}
		alts = append(alts, "(?:"+p+")")
	}
	return &Matcher{re: regexp.MustCompile(strings.Join(alts, "|"))}, nil
}

// LoadIgnore reads .gyatignore at root: one pattern per line, blank lines
// and lines starting with # skipped.
func LoadIgnore(root string) (*Matcher, error) {
	path := filepath.Join(root, IgnoreFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewMatcher(nil)
		}
		return nil, errors.IO(path, err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.IO(path, err)
	}
	return NewMatcher(patterns)
}

func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	return m.re.MatchString(rel)
}
