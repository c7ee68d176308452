// Package patterns compiles and holds the regular-expression library
// keyed by pattern name, built once at startup and immutable
// thereafter.
package patterns

import (
	"fmt"
	"regexp"
)

// Set is the compiled regex library, keyed by pattern name.
type Set struct {
	byName map[string]*regexp.Regexp
}

// Compile builds a Set from the raw name->regex strings in config. A
// bad regex is a configuration error and is fatal at startup, so
// Compile returns on the first failure rather than skipping it.
func Compile(raw map[string]string) (*Set, error) {
	byName := make(map[string]*regexp.Regexp, len(raw))
	for name, expr := range raw {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", name, err)
		}
		byName[name] = re
	}
	return &Set{byName: byName}, nil
}

// MatchString reports whether the named pattern matches line. The
// second return is false if name is not in the set. Go's RE2 engine
// cannot fail at match time the way the original backtracking engine
// could, but the call is still guarded by the caller's recover so a
// misbehaving pattern never takes down a file's read loop.
func (s *Set) MatchString(name, line string) (matched bool, ok bool) {
	re, ok := s.byName[name]
	if !ok {
		return false, false
	}
	return re.MatchString(line), true
}

// Names returns the pattern names present in the set.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	return names
}
