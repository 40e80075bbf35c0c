// Package expand materializes the deployable asset tree: text assets get the
// version placeholder substituted, everything else is copied verbatim.
package expand

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"

	"github.com/arhuman/webembed/internal/logging"
	"github.com/arhuman/webembed/internal/util"
)

const (
	// DefaultPlaceholder is replaced by the version in text assets.
	DefaultPlaceholder = "{{APP_VERSION}}"
	// DefaultVersion is used when no version file can be read.
	DefaultVersion = "dev"
)

// DefaultTextExtensions lists the extensions treated as text.
var DefaultTextExtensions = []string{".html", ".css", ".js", ".json", ".txt", ".svg"}

// ErrSourceMissing is returned when the source root does not exist.
var ErrSourceMissing = errors.New("source folder not found")

// Result summarizes one expansion.
type Result struct {
	Converted int
	Version   string
}

// Expander rewrites a source tree into an output tree.
type Expander struct {
	logger      *zap.Logger
	placeholder string
	textExts    map[string]struct{}
}

// New creates an expander. An empty placeholder or extension list selects
// the defaults.
func New(logger *zap.Logger, placeholder string, textExts []string) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	if len(textExts) == 0 {
		textExts = DefaultTextExtensions
	}

	exts := make(map[string]struct{}, len(textExts))
	for _, ext := range util.NormalizeExtensions(textExts) {
		exts[ext] = struct{}{}
	}

	return &Expander{
		logger:      logger,
		placeholder: placeholder,
		textExts:    exts,
	}
}

// IsText reports whether name is handled as a text asset.
func (e *Expander) IsText(name string) bool {
	_, ok := e.textExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ReadVersion returns the first non-blank line of the version file, trimmed,
// or DefaultVersion when it is missing, unreadable or blank.
func ReadVersion(path string) string {
	if path == "" {
		return DefaultVersion
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultVersion
	}
	line, _, _ := strings.Cut(strings.TrimSpace(decodeText(data)), "\n")
	if v := strings.TrimSpace(line); v != "" {
		return v
	}
	return DefaultVersion
}

// Expand clears out and rebuilds it from src. The source root is checked
// before anything under out is touched.
func (e *Expander) Expand(ctx context.Context, src, out, version string) (Result, error) {
	logger, start := logging.FuncLogger(e.logger, "Expand")
	defer logging.FuncExit(logger, start)

	result := Result{Version: version}

	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		return result, fmt.Errorf("failed to stat source folder %s: %w", src, err)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("source %s is not a directory", src)
	}

	if err := checkDisjoint(src, out); err != nil {
		return result, err
	}

	if err := resetDir(out); err != nil {
		return result, err
	}

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		fi, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(out, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}

		mode := "copy"
		if e.IsText(path) {
			mode = "text"
			err = e.expandText(path, target, version, fi.Mode().Perm())
		} else {
			err = copyFile(path, target, fi)
		}
		if err != nil {
			return err
		}

		result.Converted++
		logger.Info("Expanded asset",
			zap.String("path", filepath.ToSlash(rel)),
			zap.String("mode", mode))
		return nil
	})
	if err != nil {
		return result, err
	}

	logger.Info("Expansion complete",
		zap.Int("converted", result.Converted),
		zap.String("version", version))
	return result, nil
}

func (e *Expander) expandText(src, dst, version string, perm fs.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	text := strings.ReplaceAll(decodeText(data), e.placeholder, version)
	if err := os.WriteFile(dst, []byte(text), perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

// decodeText decodes UTF-8, replacing invalid sequences with U+FFFD.
func decodeText(data []byte) string {
	decoded, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(decoded)
}

func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	// Best effort, like a metadata-preserving copy.
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear output folder %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder %s: %w", dir, err)
	}
	return nil
}

// checkDisjoint refuses an output root that equals or contains the source root.
func checkDisjoint(src, out string) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(absOut, absSrc)
	if err != nil {
		return nil
	}
	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return fmt.Errorf("output folder %s would overwrite source folder %s", out, src)
	}
	return nil
}
