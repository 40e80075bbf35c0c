// Package assets is the runtime side of webembed: generated registries build
// a *Registry, and request handlers resolve paths against it.
package assets

// File is one embedded resource.
type File struct {
	Path        string
	ContentType string
	Data        string
	Size        int
	Checksum    string
}

// Bytes returns a copy of the payload.
func (f File) Bytes() []byte {
	return []byte(f.Data)
}

// Registry is an ordered, read-only table of embedded files. It is never
// mutated after NewRegistry returns, so it can be shared between goroutines.
type Registry struct {
	files []File
}

// NewRegistry builds a registry keeping files in the given order.
func NewRegistry(files ...File) *Registry {
	table := make([]File, len(files))
	copy(table, files)
	return &Registry{files: table}
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.files)
}

// Files returns a copy of the table in registry order.
func (r *Registry) Files() []File {
	out := make([]File, len(r.files))
	copy(out, r.files)
	return out
}

// Lookup scans the table in order and returns the first file whose path is
// exactly equal to path. An empty path never matches.
func (r *Registry) Lookup(path string) (File, bool) {
	if path == "" {
		return File{}, false
	}
	for i := range r.files {
		if r.files[i].Path == path {
			return r.files[i], true
		}
	}
	return File{}, false
}
