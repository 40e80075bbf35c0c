package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/arhuman/webembed/internal/emit"
	"github.com/arhuman/webembed/internal/expand"
	"github.com/arhuman/webembed/internal/resource"
	"github.com/arhuman/webembed/internal/util"
)

// Environment variable names.
const (
	EnvProjectDir     = "WEBEMBED_PROJECT_DIR"
	EnvSourceDir      = "WEBEMBED_SOURCE_DIR"
	EnvAssetDir       = "WEBEMBED_ASSET_DIR"
	EnvGeneratedDir   = "WEBEMBED_GENERATED_DIR"
	EnvVersionFile    = "WEBEMBED_VERSION_FILE"
	EnvPlaceholder    = "WEBEMBED_PLACEHOLDER"
	EnvTarget         = "WEBEMBED_TARGET"
	EnvPackage        = "WEBEMBED_PACKAGE"
	EnvRuntimeImport  = "WEBEMBED_RUNTIME_IMPORT"
	EnvRowWidth       = "WEBEMBED_ROW_WIDTH"
	EnvExclude        = "WEBEMBED_EXCLUDE_EXTENSIONS"
	EnvTextExtensions = "WEBEMBED_TEXT_EXTENSIONS"
	EnvConfigFile     = "WEBEMBED_CONFIG"
	EnvLogFile        = "WEBEMBED_LOG_FILE"
	EnvServeAddr      = "WEBEMBED_SERVE_ADDR"
	EnvDebug          = "DEBUG"
)

// DefaultConfigFile is read when present; it is optional.
const DefaultConfigFile = "webembed.yaml"

// Row width bounds for rendered payloads.
const (
	MinRowWidth = 1
	MaxRowWidth = 64
)

// DefaultExcludeExtensions are never embedded.
var DefaultExcludeExtensions = []string{".md", ".bin"}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for %s=%s: %s", e.Field, e.Value, e.Message)
}

// ConfigLoader provides unified configuration loading with priority handling:
// environment, then .env file, then the YAML pipeline file, then defaults.
type ConfigLoader struct {
	envVars      map[string]string
	fileVars     map[string]string
	contentTypes map[string]string
	logger       *zap.Logger
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{
		envVars:      make(map[string]string),
		fileVars:     make(map[string]string),
		contentTypes: make(map[string]string),
		logger:       zap.NewNop(),
	}
}

// WithLogger sets the logger for the config loader
func (cl *ConfigLoader) WithLogger(logger *zap.Logger) *ConfigLoader {
	if logger != nil {
		cl.logger = logger
	}
	return cl
}

// LoadEnvFile loads variables from a .env file. A missing file is not an error.
func (cl *ConfigLoader) LoadEnvFile(filename string) error {
	vars, err := godotenv.Read(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cl.logger.Debug("Environment file not found", zap.String("file", filename))
			return nil
		}
		return fmt.Errorf("error reading env file %s: %w", filename, err)
	}

	for k, v := range vars {
		cl.envVars[k] = v
	}

	cl.logger.Debug("Loaded environment file",
		zap.String("file", filename),
		zap.Int("variables", len(vars)))
	return nil
}

// FileConfig is the layout of the YAML pipeline file.
type FileConfig struct {
	ProjectDir     string            `yaml:"project_dir"`
	Source         string            `yaml:"source"`
	Assets         string            `yaml:"assets"`
	Out            string            `yaml:"out"`
	VersionFile    string            `yaml:"version_file"`
	Placeholder    string            `yaml:"placeholder"`
	Target         string            `yaml:"target"`
	Package        string            `yaml:"package"`
	RuntimeImport  string            `yaml:"runtime_import"`
	RowWidth       int               `yaml:"row_width"`
	Exclude        []string          `yaml:"exclude"`
	TextExtensions []string          `yaml:"text_extensions"`
	ContentTypes   map[string]string `yaml:"content_types"`
	LogFile        string            `yaml:"log_file"`
	Serve          string            `yaml:"serve"`
	Debug          *bool             `yaml:"debug"`
}

// LoadFile loads the YAML pipeline file. A missing file is only an error
// when required is set.
func (cl *ConfigLoader) LoadFile(filename string, required bool) error {
	f, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			cl.logger.Debug("Pipeline file not found", zap.String("file", filename))
			return nil
		}
		return fmt.Errorf("failed to open config file %s: %w", filename, err)
	}
	defer f.Close()

	var fc FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	set := func(key, value string) {
		if value != "" {
			cl.fileVars[key] = value
		}
	}
	set(EnvProjectDir, fc.ProjectDir)
	set(EnvSourceDir, fc.Source)
	set(EnvAssetDir, fc.Assets)
	set(EnvGeneratedDir, fc.Out)
	set(EnvVersionFile, fc.VersionFile)
	set(EnvPlaceholder, fc.Placeholder)
	set(EnvTarget, fc.Target)
	set(EnvPackage, fc.Package)
	set(EnvRuntimeImport, fc.RuntimeImport)
	set(EnvExclude, strings.Join(fc.Exclude, ","))
	set(EnvTextExtensions, strings.Join(fc.TextExtensions, ","))
	set(EnvLogFile, fc.LogFile)
	set(EnvServeAddr, fc.Serve)
	if fc.RowWidth != 0 {
		set(EnvRowWidth, strconv.Itoa(fc.RowWidth))
	}
	if fc.Debug != nil {
		set(EnvDebug, strconv.FormatBool(*fc.Debug))
	}
	for ext, ct := range fc.ContentTypes {
		cl.contentTypes[ext] = ct
	}

	cl.logger.Debug("Loaded pipeline file",
		zap.String("file", filename),
		zap.Int("settings", len(cl.fileVars)),
		zap.Int("content_types", len(cl.contentTypes)))
	return nil
}

// GetString gets string value with priority: env → .env → pipeline file → default
func (cl *ConfigLoader) GetString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, exists := cl.envVars[key]; exists && value != "" {
		return value
	}
	if value, exists := cl.fileVars[key]; exists {
		return value
	}
	return defaultValue
}

// GetInt gets int value with validation
func (cl *ConfigLoader) GetInt(key string, defaultValue int) (int, error) {
	value := cl.GetString(key, "")
	if value == "" {
		return defaultValue, nil
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return 0, ValidationError{
			Field:   key,
			Value:   value,
			Message: "must be a valid integer",
		}
	}

	return intVal, nil
}

// GetIntInRange gets int value with range validation
func (cl *ConfigLoader) GetIntInRange(key string, defaultValue, min, max int) (int, error) {
	value, err := cl.GetInt(key, defaultValue)
	if err != nil {
		return 0, err
	}

	if value < min || value > max {
		return 0, ValidationError{
			Field:   key,
			Value:   strconv.Itoa(value),
			Message: fmt.Sprintf("must be between %d and %d", min, max),
		}
	}

	return value, nil
}

// GetBool gets bool value with validation
func (cl *ConfigLoader) GetBool(key string, defaultValue bool) (bool, error) {
	value := cl.GetString(key, "")
	if value == "" {
		return defaultValue, nil
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return false, ValidationError{
			Field:   key,
			Value:   value,
			Message: "must be true/false or 1/0",
		}
	}

	return boolVal, nil
}

// GetList gets a comma separated list
func (cl *ConfigLoader) GetList(key string, defaultValue []string) []string {
	if items := util.SplitList(cl.GetString(key, "")); len(items) > 0 {
		return items
	}
	return defaultValue
}

// ContentTypes returns the extra content types read from the pipeline file.
func (cl *ConfigLoader) ContentTypes() map[string]string {
	out := make(map[string]string, len(cl.contentTypes))
	for k, v := range cl.contentTypes {
		out[k] = v
	}
	return out
}

// ValidateRequired ensures a required field is not empty
func (cl *ConfigLoader) ValidateRequired(key, value string) error {
	if value == "" {
		return ValidationError{
			Field:   key,
			Value:   value,
			Message: "is required and cannot be empty",
		}
	}
	return nil
}

// ValidateTarget ensures an emitter exists for the target name
func (cl *ConfigLoader) ValidateTarget(key, value string) error {
	for _, name := range emit.TargetNames() {
		if strings.EqualFold(name, value) {
			return nil
		}
	}
	return ValidationError{
		Field:   key,
		Value:   value,
		Message: "must be one of " + strings.Join(emit.TargetNames(), ", "),
	}
}

// ValidateDisjoint ensures dir is neither equal to nor an ancestor of protected
func (cl *ConfigLoader) ValidateDisjoint(key, dir, protected string) error {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(protected))
	if err != nil {
		return nil
	}
	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return ValidationError{
			Field:   key,
			Value:   dir,
			Message: fmt.Sprintf("must not contain %s, it is cleared on every run", protected),
		}
	}
	return nil
}

// PipelineConfig holds configuration for one pipeline run
type PipelineConfig struct {
	ProjectDir     string
	SourceDir      string
	AssetDir       string
	GeneratedDir   string
	VersionFile    string
	Placeholder    string
	Target         string
	Package        string
	RuntimeImport  string
	RowWidth       int
	Exclude        []string
	TextExtensions []string
	ContentTypes   map[string]string
	ConfigFile     string
	LogFile        string
	ServeAddr      string
	Debug          bool
}

// DefaultPipelineConfig returns the default configuration
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		ProjectDir:     ".",
		SourceDir:      "websrc",
		AssetDir:       "data",
		GeneratedDir:   filepath.Join("src", "generated"),
		VersionFile:    "version.txt",
		Placeholder:    expand.DefaultPlaceholder,
		Target:         emit.TargetGo,
		Package:        emit.DefaultPackage,
		RuntimeImport:  emit.DefaultRuntimeImport,
		RowWidth:       resource.DefaultRowWidth,
		Exclude:        DefaultExcludeExtensions,
		TextExtensions: expand.DefaultTextExtensions,
		ContentTypes:   map[string]string{},
		ConfigFile:     DefaultConfigFile,
		Debug:          false,
	}
}

// NewFlagSet returns the command line flags bound to an empty value set.
func NewFlagSet(name string) (*flag.FlagSet, *FlagValues) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	v := &FlagValues{}
	fs.StringVar(&v.ProjectDir, "root", "", "Project directory relative paths are resolved against")
	fs.StringVar(&v.SourceDir, "source", "", "Source asset directory")
	fs.StringVar(&v.AssetDir, "assets", "", "Expanded asset directory (cleared on every run)")
	fs.StringVar(&v.GeneratedDir, "out", "", "Directory receiving generated artifacts")
	fs.StringVar(&v.VersionFile, "version-file", "", "File holding the version token")
	fs.StringVar(&v.Placeholder, "placeholder", "", "Placeholder replaced by the version in text assets")
	fs.StringVar(&v.Target, "target", "", "Output target ("+strings.Join(emit.TargetNames(), ", ")+")")
	fs.StringVar(&v.Package, "package", "", "Go package name of generated files")
	fs.StringVar(&v.RuntimeImport, "runtime-import", "", "Import path of the runtime assets package")
	fs.IntVar(&v.RowWidth, "row-width", 0, "Bytes per row in generated arrays")
	fs.StringVar(&v.Exclude, "exclude", "", "Comma separated extensions never embedded")
	fs.StringVar(&v.TextExtensions, "text-extensions", "", "Comma separated extensions treated as text")
	fs.StringVar(&v.ConfigFile, "config", "", "YAML pipeline file")
	fs.StringVar(&v.LogFile, "log-file", "", "Also write JSON logs to this rotated file")
	fs.StringVar(&v.ServeAddr, "serve", "", "Serve the generated registry on this address after the run")
	fs.BoolVar(&v.Debug, "debug", false, "Enable debug mode")
	return fs, v
}

// FlagValues receives parsed command line flags
type FlagValues struct {
	ProjectDir, SourceDir, AssetDir, GeneratedDir string
	VersionFile, Placeholder, Target, Package     string
	RuntimeImport, Exclude, TextExtensions        string
	ConfigFile, LogFile, ServeAddr                string
	RowWidth                                      int
	Debug                                         bool
}

// LoadPipelineConfig loads configuration with validation. Command line flags
// have the highest priority.
func LoadPipelineConfig(args []string, logger *zap.Logger) (*PipelineConfig, error) {
	fs, flags := NewFlagSet("webembed")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	config := DefaultPipelineConfig()

	// .env lives in the project directory, which only a flag or the real
	// environment can select.
	envProjectDir := config.ProjectDir
	if set["root"] {
		envProjectDir = flags.ProjectDir
	} else if dir := os.Getenv(EnvProjectDir); dir != "" {
		envProjectDir = dir
	}

	loader := NewConfigLoader().WithLogger(logger)
	if err := loader.LoadEnvFile(resolve(envProjectDir, ".env")); err != nil {
		return nil, fmt.Errorf("failed to load environment file: %w", err)
	}

	var errs error

	pick := func(name, flagValue, key, defaultValue string) string {
		if set[name] {
			return flagValue
		}
		return loader.GetString(key, defaultValue)
	}

	config.ConfigFile = pick("config", flags.ConfigFile, EnvConfigFile, config.ConfigFile)
	explicitConfig := set["config"] || loader.GetString(EnvConfigFile, "") != ""

	// The pipeline file is resolved against the project directory known so far.
	projectDir := pick("root", flags.ProjectDir, EnvProjectDir, config.ProjectDir)
	if err := loader.LoadFile(resolve(projectDir, config.ConfigFile), explicitConfig); err != nil {
		return nil, err
	}

	config.ProjectDir = pick("root", flags.ProjectDir, EnvProjectDir, config.ProjectDir)
	config.SourceDir = pick("source", flags.SourceDir, EnvSourceDir, config.SourceDir)
	config.AssetDir = pick("assets", flags.AssetDir, EnvAssetDir, config.AssetDir)
	config.GeneratedDir = pick("out", flags.GeneratedDir, EnvGeneratedDir, config.GeneratedDir)
	config.VersionFile = pick("version-file", flags.VersionFile, EnvVersionFile, config.VersionFile)
	config.Placeholder = pick("placeholder", flags.Placeholder, EnvPlaceholder, config.Placeholder)
	config.Target = strings.ToLower(pick("target", flags.Target, EnvTarget, config.Target))
	config.Package = pick("package", flags.Package, EnvPackage, config.Package)
	config.RuntimeImport = pick("runtime-import", flags.RuntimeImport, EnvRuntimeImport, config.RuntimeImport)
	config.LogFile = pick("log-file", flags.LogFile, EnvLogFile, config.LogFile)
	config.ServeAddr = pick("serve", flags.ServeAddr, EnvServeAddr, config.ServeAddr)

	if set["exclude"] {
		config.Exclude = util.SplitList(flags.Exclude)
	} else {
		config.Exclude = loader.GetList(EnvExclude, config.Exclude)
	}
	config.Exclude = util.NormalizeExtensions(config.Exclude)

	if set["text-extensions"] {
		config.TextExtensions = util.SplitList(flags.TextExtensions)
	} else {
		config.TextExtensions = loader.GetList(EnvTextExtensions, config.TextExtensions)
	}
	config.TextExtensions = util.NormalizeExtensions(config.TextExtensions)
	config.ContentTypes = loader.ContentTypes()

	if set["row-width"] {
		if flags.RowWidth < MinRowWidth || flags.RowWidth > MaxRowWidth {
			errs = multierr.Append(errs, ValidationError{
				Field:   "row-width",
				Value:   strconv.Itoa(flags.RowWidth),
				Message: fmt.Sprintf("must be between %d and %d", MinRowWidth, MaxRowWidth),
			})
		} else {
			config.RowWidth = flags.RowWidth
		}
	} else if width, err := loader.GetIntInRange(EnvRowWidth, config.RowWidth, MinRowWidth, MaxRowWidth); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		config.RowWidth = width
	}

	if set["debug"] {
		config.Debug = flags.Debug
	} else if debug, err := loader.GetBool(EnvDebug, config.Debug); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		config.Debug = debug
	}

	errs = multierr.Append(errs, loader.ValidateRequired("source", config.SourceDir))
	errs = multierr.Append(errs, loader.ValidateRequired("assets", config.AssetDir))
	errs = multierr.Append(errs, loader.ValidateRequired("out", config.GeneratedDir))
	errs = multierr.Append(errs, loader.ValidateRequired("placeholder", config.Placeholder))
	errs = multierr.Append(errs, loader.ValidateTarget("target", config.Target))

	config.SourceDir = resolve(config.ProjectDir, config.SourceDir)
	config.AssetDir = resolve(config.ProjectDir, config.AssetDir)
	config.GeneratedDir = resolve(config.ProjectDir, config.GeneratedDir)
	config.VersionFile = resolve(config.ProjectDir, config.VersionFile)
	config.ConfigFile = resolve(config.ProjectDir, config.ConfigFile)
	if config.LogFile != "" {
		config.LogFile = resolve(config.ProjectDir, config.LogFile)
	}

	errs = multierr.Append(errs, loader.ValidateDisjoint("assets", config.AssetDir, config.SourceDir))
	errs = multierr.Append(errs, loader.ValidateDisjoint("assets", config.AssetDir, config.GeneratedDir))

	if errs != nil {
		var errMsg strings.Builder
		errMsg.WriteString("Configuration validation failed:\n")
		for _, err := range multierr.Errors(errs) {
			errMsg.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
		}
		return nil, fmt.Errorf("%s", errMsg.String())
	}

	return config, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// LogConfig logs the configuration
func (c *PipelineConfig) LogConfig(logger *zap.Logger) {
	logger.Info("Configuration loaded",
		zap.String("project_dir", c.ProjectDir),
		zap.String("source_dir", c.SourceDir),
		zap.String("asset_dir", c.AssetDir),
		zap.String("generated_dir", c.GeneratedDir),
		zap.String("version_file", c.VersionFile),
		zap.String("placeholder", c.Placeholder),
		zap.String("target", c.Target),
		zap.String("package", c.Package),
		zap.Int("row_width", c.RowWidth),
		zap.Strings("exclude", c.Exclude),
		zap.Strings("text_extensions", c.TextExtensions),
		zap.Int("extra_content_types", len(c.ContentTypes)),
		zap.String("log_file", c.LogFile),
		zap.Bool("debug", c.Debug))
}
