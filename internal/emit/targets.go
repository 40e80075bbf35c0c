package emit

import (
	"fmt"
	"sort"
	"strings"
)

// Definition describes an output target.
type Definition struct {
	Name        string
	Description string
	Extensions  []string
	factory     func(Options) (Emitter, error)
}

var targets = map[string]Definition{}

func register(def Definition) {
	targets[def.Name] = def
}

func init() {
	register(Definition{
		Name:        TargetGo,
		Description: "Go source files backed by the pkg/assets runtime",
		Extensions:  []string{".go"},
		factory:     func(o Options) (Emitter, error) { return NewGoEmitter(o) },
	})
	register(Definition{
		Name:        TargetArduino,
		Description: "Arduino C++ headers with PROGMEM arrays and a findEmbeddedFile() lookup",
		Extensions:  []string{".h", ".cpp"},
		factory:     func(o Options) (Emitter, error) { return NewArduinoEmitter(o), nil },
	})
}

// New returns the emitter registered under name.
func New(name string, opts Options) (Emitter, error) {
	def, ok := targets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown target %q (available: %s)", name, strings.Join(TargetNames(), ", "))
	}
	return def.factory(opts)
}

// Targets returns every registered target sorted by name.
func Targets() []Definition {
	out := make([]Definition, 0, len(targets))
	for _, def := range targets {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TargetNames returns the sorted target names.
func TargetNames() []string {
	defs := Targets()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// FormatHelp lists the available targets.
func FormatHelp() string {
	var help strings.Builder
	help.WriteString("Available targets:\n")
	for _, def := range Targets() {
		help.WriteString(fmt.Sprintf("  %-10s - %s (%s)\n", def.Name, def.Description, strings.Join(def.Extensions, ", ")))
	}
	return help.String()
}
