// Package emit writes generated source for embedded resources: one
// self-contained artifact per file plus a registry artifact.
package emit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arhuman/webembed/internal/resource"
)

const (
	// GeneratedPrefix starts the name of every generated artifact.
	GeneratedPrefix = "embedded_"
	// RegistrySymbol is reserved for the registry artifact.
	RegistrySymbol = "files_registry"
	// RegistryBaseName is the registry artifact name without extension.
	RegistryBaseName = GeneratedPrefix + RegistrySymbol
	// GoFileSuffix ends every per-file Go artifact name so that go/build
	// never reads a trailing GOOS, GOARCH or test token from the symbol.
	GoFileSuffix = "_gen"
)

// ErrNoAssets is returned when a registry would be empty.
var ErrNoAssets = errors.New("no embeddable files found")

// DuplicatePathError reports two descriptors with the same served path.
type DuplicatePathError struct {
	Path string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("duplicate served path in registry: %s", e.Path)
}

// Emitter renders descriptors into generated artifacts.
type Emitter interface {
	// Name returns the target name.
	Name() string
	// EmitResource writes the artifact for d and returns its file name.
	EmitResource(d resource.Descriptor) (string, error)
	// EmitRegistry writes the registry artifacts and returns their file names.
	EmitRegistry(ds []resource.Descriptor) ([]string, error)
}

// Options configure an emitter.
type Options struct {
	Dir           string // Directory receiving the artifacts.
	Package       string // Go package name of generated files.
	RuntimeImport string // Import path of the runtime assets package.
	RowWidth      int    // Bytes per row in rendered payloads.
}

// ArtifactName returns the per-file artifact name for a symbol.
func ArtifactName(symbol, ext string) string {
	return GeneratedPrefix + symbol + ext
}

// CleanGenerated creates dir if needed and deletes every regular file in it
// whose name starts with GeneratedPrefix. It returns the removed names.
func CleanGenerated(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create generated folder %s: %w", dir, err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, GeneratedPrefix+"*"))
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if err := os.Remove(m); err != nil {
			return removed, fmt.Errorf("failed to remove stale artifact %s: %w", m, err)
		}
		removed = append(removed, filepath.Base(m))
	}
	return removed, nil
}

// validateRegistry enforces a non-empty table with unique served paths.
func validateRegistry(ds []resource.Descriptor) error {
	if len(ds) == 0 {
		return ErrNoAssets
	}
	seen := make(map[string]struct{}, len(ds))
	for _, d := range ds {
		if _, dup := seen[d.ServedPath]; dup {
			return &DuplicatePathError{Path: d.ServedPath}
		}
		seen[d.ServedPath] = struct{}{}
	}
	return nil
}

func writeArtifact(dir, name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// cQuote quotes s as a C string literal.
func cQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}
