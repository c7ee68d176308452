// Package binding holds the immutable file-to-patterns map: which
// compiled patterns apply to which monitored files.
package binding

// Binding maps a monitored path to the pattern names bound to it.
type Binding struct {
	byPath map[string][]string
}

// New builds a Binding from the file_patterns configuration section.
func New(raw map[string][]string) *Binding {
	byPath := make(map[string][]string, len(raw))
	for path, names := range raw {
		copied := make([]string, len(names))
		copy(copied, names)
		byPath[path] = copied
	}
	return &Binding{byPath: byPath}
}

// PatternsFor returns the pattern names bound to path, or nil if the
// path has no bindings.
func (b *Binding) PatternsFor(path string) []string {
	return b.byPath[path]
}

// Paths returns every monitored path in the binding.
func (b *Binding) Paths() []string {
	paths := make([]string, 0, len(b.byPath))
	for path := range b.byPath {
		paths = append(paths, path)
	}
	return paths
}
