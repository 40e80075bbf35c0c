// Package pipeline drives one build: expand the source tree, encode every
// eligible asset, and emit the per-file artifacts and the registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arhuman/webembed/internal/config"
	"github.com/arhuman/webembed/internal/emit"
	"github.com/arhuman/webembed/internal/expand"
	"github.com/arhuman/webembed/internal/logging"
	"github.com/arhuman/webembed/internal/resource"
	"github.com/arhuman/webembed/internal/symbol"
	"github.com/arhuman/webembed/internal/util"
	"github.com/arhuman/webembed/pkg/assets"
)

// Result describes a successful run.
type Result struct {
	RunID     string
	Version   string
	Expanded  int
	Embedded  []resource.Descriptor
	Artifacts []string
}

// TotalSize returns the summed size of the embedded files.
func (r Result) TotalSize() int64 {
	var total int64
	for _, d := range r.Embedded {
		total += int64(d.Size)
	}
	return total
}

// Registry builds the runtime registry the generated code describes.
func (r Result) Registry() *assets.Registry {
	files := make([]assets.File, len(r.Embedded))
	for i, d := range r.Embedded {
		files[i] = assets.File{
			Path:        d.ServedPath,
			ContentType: d.ContentType,
			Data:        string(d.Data),
			Size:        d.Size,
			Checksum:    d.Checksum,
		}
	}
	return assets.NewRegistry(files...)
}

// Driver runs the pipeline for one configuration.
type Driver struct {
	cfg      *config.PipelineConfig
	logger   *zap.Logger
	expander *expand.Expander
	encoder  *resource.Encoder
	emitter  emit.Emitter
	exclude  map[string]struct{}
}

// NewDriver wires the pipeline stages for cfg.
func NewDriver(cfg *config.PipelineConfig, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	emitter, err := emit.New(cfg.Target, emit.Options{
		Dir:           cfg.GeneratedDir,
		Package:       cfg.Package,
		RuntimeImport: cfg.RuntimeImport,
		RowWidth:      cfg.RowWidth,
	})
	if err != nil {
		return nil, &ConfigError{Field: "target", Err: err}
	}

	exclude := make(map[string]struct{}, len(cfg.Exclude))
	for _, ext := range util.NormalizeExtensions(cfg.Exclude) {
		exclude[ext] = struct{}{}
	}

	return &Driver{
		cfg:      cfg,
		logger:   logger,
		expander: expand.New(logger, cfg.Placeholder, cfg.TextExtensions),
		encoder:  resource.NewEncoder(cfg.ContentTypes),
		emitter:  emitter,
		exclude:  exclude,
	}, nil
}

// Run executes the pipeline. Nothing is touched when the source root is missing.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	result := Result{RunID: uuid.NewString()}
	logger := d.logger.With(zap.String("run_id", result.RunID))
	logger, start := logging.FuncLogger(logger, "Run")
	defer logging.FuncExit(logger, start)

	info, err := os.Stat(d.cfg.SourceDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, &ConfigError{Field: "source", Err: fmt.Errorf("%w: %s", expand.ErrSourceMissing, d.cfg.SourceDir)}
		}
		return result, fmt.Errorf("failed to stat source folder: %w", err)
	}
	if !info.IsDir() {
		return result, &ConfigError{Field: "source", Err: fmt.Errorf("%s is not a directory", d.cfg.SourceDir)}
	}

	removed, err := emit.CleanGenerated(d.cfg.GeneratedDir)
	if err != nil {
		return result, err
	}
	if len(removed) > 0 {
		logger.Debug("Removed stale artifacts", zap.Strings("files", removed))
	}

	result.Version = expand.ReadVersion(d.cfg.VersionFile)
	expanded, err := d.expander.Expand(ctx, d.cfg.SourceDir, d.cfg.AssetDir, result.Version)
	if err != nil {
		if errors.Is(err, expand.ErrSourceMissing) {
			return result, &ConfigError{Field: "source", Err: err}
		}
		return result, fmt.Errorf("expansion failed: %w", err)
	}
	result.Expanded = expanded.Converted
	logger.Info("Expanded source folder",
		zap.String("source", d.cfg.SourceDir),
		zap.String("assets", d.cfg.AssetDir),
		zap.String("version", result.Version),
		zap.Int("files", expanded.Converted))

	files, err := d.collect()
	if err != nil {
		return result, err
	}

	owners := make(map[string]string, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		sym := symbol.Sanitize(rel)
		if sym == emit.RegistrySymbol {
			return result, &CollisionError{Symbol: sym, First: emit.RegistryBaseName, Second: rel}
		}
		if first, taken := owners[sym]; taken {
			return result, &CollisionError{Symbol: sym, First: first, Second: rel}
		}
		owners[sym] = rel

		desc, err := d.encoder.Encode(d.cfg.AssetDir, rel)
		if err != nil {
			return result, err
		}

		name, err := d.emitter.EmitResource(desc)
		if err != nil {
			return result, fmt.Errorf("failed to generate %s: %w", rel, err)
		}

		result.Embedded = append(result.Embedded, desc)
		result.Artifacts = append(result.Artifacts, name)
		logger.Info("Embedded asset",
			zap.String("path", desc.ServedPath),
			zap.String("symbol", desc.Symbol),
			zap.String("content_type", desc.ContentType),
			zap.Int("size", desc.Size),
			zap.String("artifact", name))
	}

	if len(result.Embedded) == 0 {
		return result, &EmptyInputError{Dir: d.cfg.AssetDir, Err: emit.ErrNoAssets}
	}

	names, err := d.emitter.EmitRegistry(result.Embedded)
	if err != nil {
		return result, fmt.Errorf("failed to generate registry: %w", err)
	}
	result.Artifacts = append(result.Artifacts, names...)

	logger.Info("Embedding complete",
		zap.String("target", d.emitter.Name()),
		zap.String("files", util.Plural(len(result.Embedded), "file")),
		zap.String("total_size", util.FormatSize(result.TotalSize())),
		zap.String("generated", d.cfg.GeneratedDir))

	return result, nil
}

// collect lists the embeddable files of the asset folder as slash separated
// relative paths, in lexical order.
func (d *Driver) collect() ([]string, error) {
	var files []string
	err := filepath.WalkDir(d.cfg.AssetDir, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == d.cfg.AssetDir {
			return nil
		}

		if strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(d.cfg.AssetDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if _, skip := d.exclude[strings.ToLower(path.Ext(rel))]; skip {
			d.logger.Debug("Skipping excluded file", zap.String("path", rel))
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset folder %s: %w", d.cfg.AssetDir, err)
	}
	return files, nil
}
