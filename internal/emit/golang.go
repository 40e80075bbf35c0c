package emit

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strconv"
	"strings"
	"text/template"

	"github.com/arhuman/webembed/internal/resource"
)

// TargetGo emits Go source.
const TargetGo = "go"

// DefaultPackage is the package name of generated Go files.
const DefaultPackage = "generated"

// DefaultRuntimeImport is the import path of the runtime registry package.
const DefaultRuntimeImport = "github.com/arhuman/webembed/pkg/assets"

var goFuncs = template.FuncMap{"quote": strconv.Quote}

var goResourceTmpl = template.Must(template.New("resource").Funcs(goFuncs).Parse(`// Code generated by webembed from {{.RelPath}}. DO NOT EDIT.

package {{.Package}}

const embedded_{{.Symbol}}_data = {{.Payload}}

const (
	embedded_{{.Symbol}}_size = {{.Size}}
	embedded_{{.Symbol}}_path = {{quote .ServedPath}}
	embedded_{{.Symbol}}_content_type = {{quote .ContentType}}
	embedded_{{.Symbol}}_checksum = {{quote .Checksum}}
)
`))

var goRegistryTmpl = template.Must(template.New("registry").Funcs(goFuncs).Parse(`// Code generated by webembed. DO NOT EDIT.

package {{.Package}}

import assets {{quote .RuntimeImport}}

// EmbeddedFilesCount is the number of files in the registry.
const EmbeddedFilesCount = {{len .Files}}

// NewRegistry returns the embedded files in discovery order.
func NewRegistry() *assets.Registry {
	return assets.NewRegistry(
{{- range .Files}}
		assets.File{
			Path: embedded_{{.Symbol}}_path,
			ContentType: embedded_{{.Symbol}}_content_type,
			Data: embedded_{{.Symbol}}_data,
			Size: embedded_{{.Symbol}}_size,
			Checksum: embedded_{{.Symbol}}_checksum,
		},
{{- end}}
	)
}
`))

// GoEmitter writes gofmt-formatted Go files.
type GoEmitter struct {
	opts Options
}

// NewGoEmitter validates opts and returns a Go emitter.
func NewGoEmitter(opts Options) (*GoEmitter, error) {
	if opts.Package == "" {
		opts.Package = DefaultPackage
	}
	if opts.RuntimeImport == "" {
		opts.RuntimeImport = DefaultRuntimeImport
	}
	if opts.RowWidth <= 0 {
		opts.RowWidth = resource.DefaultRowWidth
	}
	if !token.IsIdentifier(opts.Package) || token.IsKeyword(opts.Package) {
		return nil, fmt.Errorf("invalid Go package name %q", opts.Package)
	}
	return &GoEmitter{opts: opts}, nil
}

// Name implements Emitter.
func (g *GoEmitter) Name() string { return TargetGo }

// EmitResource implements Emitter.
func (g *GoEmitter) EmitResource(d resource.Descriptor) (string, error) {
	rows := resource.HexRows(d.Data, g.opts.RowWidth, `\x%02x`, "")
	data := `""`
	if len(rows) > 0 {
		data = `"` + strings.Join(rows, "\" +\n\t\"") + `"`
	}

	src, err := g.render(goResourceTmpl, struct {
		resource.Descriptor
		Package string
		Payload string
	}{d, g.opts.Package, data})
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", d.RelPath, err)
	}

	name := ArtifactName(d.Symbol, GoFileSuffix+".go")
	return name, writeArtifact(g.opts.Dir, name, src)
}

// EmitRegistry implements Emitter.
func (g *GoEmitter) EmitRegistry(ds []resource.Descriptor) ([]string, error) {
	if err := validateRegistry(ds); err != nil {
		return nil, err
	}

	src, err := g.render(goRegistryTmpl, struct {
		Package       string
		RuntimeImport string
		Files         []resource.Descriptor
	}{g.opts.Package, g.opts.RuntimeImport, ds})
	if err != nil {
		return nil, fmt.Errorf("failed to render registry: %w", err)
	}

	name := RegistryBaseName + ".go"
	if err := writeArtifact(g.opts.Dir, name, src); err != nil {
		return nil, err
	}
	return []string{name}, nil
}

func (g *GoEmitter) render(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes())
}
