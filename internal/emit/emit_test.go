package emit

import (
	"errors"
	"go/ast"
	"go/build"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arhuman/webembed/internal/resource"
)

func descriptor(rel string, data []byte) resource.Descriptor {
	d := resource.Descriptor{
		RelPath:     rel,
		ServedPath:  "/" + rel,
		ContentType: resource.ContentType(rel),
		Size:        len(data),
		Checksum:    resource.Checksum(data),
		Data:        data,
	}
	d.Symbol = strings.ToLower(strings.NewReplacer("/", "_", ".", "_", "-", "_").Replace(rel))
	return d
}

// constString evaluates a constant made of concatenated string literals.
func constString(t *testing.T, file *ast.File, name string) string {
	t.Helper()
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST {
			continue
		}
		for _, spec := range gen.Specs {
			vs := spec.(*ast.ValueSpec)
			if vs.Names[0].Name != name {
				continue
			}
			var b strings.Builder
			var walk func(ast.Expr)
			walk = func(e ast.Expr) {
				switch v := e.(type) {
				case *ast.BinaryExpr:
					walk(v.X)
					walk(v.Y)
				case *ast.BasicLit:
					s, err := strconv.Unquote(v.Value)
					require.NoError(t, err)
					b.WriteString(s)
				default:
					t.Fatalf("unexpected expression %T in %s", e, name)
				}
			}
			walk(vs.Values[0])
			return b.String()
		}
	}
	t.Fatalf("constant %s not found", name)
	return ""
}

func TestGoEmitResource(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGoEmitter(Options{Dir: dir, Package: "webui"})
	require.NoError(t, err)

	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i * 7)
	}
	d := descriptor("img/logo.png", data)

	name, err := g.EmitResource(d)
	require.NoError(t, err)
	assert.Equal(t, "embedded_img_logo_png_gen.go", name)

	src, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	text := string(src)

	assert.True(t, strings.HasPrefix(text, "// Code generated by webembed from img/logo.png. DO NOT EDIT."))
	assert.Contains(t, text, "package webui")
	assert.Regexp(t, `embedded_img_logo_png_path\s+= "/img/logo.png"`, text)
	assert.Regexp(t, `embedded_img_logo_png_content_type\s+= "image/png"`, text)
	assert.Regexp(t, `embedded_img_logo_png_checksum\s+= "`+d.Checksum+`"`, text)
	assert.Regexp(t, `embedded_img_logo_png_size\s+= 40`, text)

	file, err := parser.ParseFile(token.NewFileSet(), name, src, parser.ParseComments)
	require.NoError(t, err)
	assert.Equal(t, string(data), constString(t, file, "embedded_img_logo_png_data"))

	// 40 bytes at 16 per row gives three literal rows.
	assert.Equal(t, 3, strings.Count(text, `"\x`))
}

func TestGoEmitEmptyResource(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGoEmitter(Options{Dir: dir})
	require.NoError(t, err)

	name, err := g.EmitResource(descriptor("empty.txt", nil))
	require.NoError(t, err)

	src, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	file, err := parser.ParseFile(token.NewFileSet(), name, src, 0)
	require.NoError(t, err)
	assert.Equal(t, "", constString(t, file, "embedded_empty_txt_data"))
	assert.Contains(t, string(src), "package generated")
}

func TestGoEmitRegistry(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGoEmitter(Options{Dir: dir, RuntimeImport: "example.com/fw/assets"})
	require.NoError(t, err)

	ds := []resource.Descriptor{
		descriptor("index.html", []byte("<html>")),
		descriptor("app.js", []byte("x")),
	}
	names, err := g.EmitRegistry(ds)
	require.NoError(t, err)
	require.Equal(t, []string{"embedded_files_registry.go"}, names)

	src, err := os.ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	text := string(src)

	_, err = parser.ParseFile(token.NewFileSet(), names[0], src, 0)
	require.NoError(t, err)

	assert.Contains(t, text, `import assets "example.com/fw/assets"`)
	assert.Contains(t, text, "const EmbeddedFilesCount = 2")
	assert.Contains(t, text, "func NewRegistry() *assets.Registry")
	assert.Less(t, strings.Index(text, "embedded_index_html_path"), strings.Index(text, "embedded_app_js_path"),
		"rows keep discovery order")
}

func TestGoArtifactsSurviveBuildConstraints(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGoEmitter(Options{Dir: dir})
	require.NoError(t, err)

	// Each symbol ends in a token go/build treats as a GOOS, GOARCH or test suffix.
	var ds []resource.Descriptor
	for _, rel := range []string{"index.html", "app.js", "mod.wasm", "lib/linux", "foo_test", "bin/windows_amd64"} {
		d := descriptor(rel, []byte(rel))
		name, err := g.EmitResource(d)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(name, GoFileSuffix+".go"), name)
		ds = append(ds, d)
	}
	_, err = g.EmitRegistry(ds)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	fset := token.NewFileSet()
	declared := map[string]bool{}
	var registry *ast.File
	for _, e := range entries {
		ok, err := build.Default.MatchFile(dir, e.Name())
		require.NoError(t, err)
		require.True(t, ok, "%s is excluded from the build", e.Name())

		file, err := parser.ParseFile(fset, filepath.Join(dir, e.Name()), nil, 0)
		require.NoError(t, err)
		if e.Name() == RegistryBaseName+".go" {
			registry = file
		}
		for _, obj := range file.Scope.Objects {
			declared[obj.Name] = true
		}
	}
	require.NotNil(t, registry)

	ast.Inspect(registry, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && strings.HasPrefix(id.Name, GeneratedPrefix) {
			assert.True(t, declared[id.Name], "%s is referenced but not declared", id.Name)
		}
		return true
	})
}

func TestGoEmitterRejectsBadPackage(t *testing.T) {
	_, err := NewGoEmitter(Options{Package: "not-valid"})
	assert.Error(t, err)
	_, err = NewGoEmitter(Options{Package: "func"})
	assert.Error(t, err)
}

func TestArduinoEmit(t *testing.T) {
	dir := t.TempDir()
	a := NewArduinoEmitter(Options{Dir: dir})

	index := descriptor("index.html", []byte("<h1>1.2.3</h1>"))
	logo := descriptor("LOGO.png", []byte{0x89, 0x50})
	logo.Symbol = "logo_png"

	name, err := a.EmitResource(logo)
	require.NoError(t, err)
	assert.Equal(t, "embedded_logo_png.h", name)

	header, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(header), "// Auto-generated from LOGO.png\n#pragma once")
	assert.Contains(t, string(header), "const uint8_t embedded_logo_png_data[] PROGMEM = {\n    0x89, 0x50\n};")
	assert.Contains(t, string(header), "constexpr size_t embedded_logo_png_size = 2;")
	assert.Contains(t, string(header), `constexpr const char *embedded_logo_png_path = "/LOGO.png";`)
	assert.Contains(t, string(header), `constexpr const char *embedded_logo_png_content_type = "image/png";`)

	names, err := a.EmitRegistry([]resource.Descriptor{index, logo})
	require.NoError(t, err)
	assert.Equal(t, []string{"embedded_files_registry.h", "embedded_files_registry.cpp"}, names)

	h, err := os.ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	assert.Contains(t, string(h), "#include \"embedded_index_html.h\"\n#include \"embedded_logo_png.h\"\n")
	assert.Contains(t, string(h), "const EmbeddedFile *findEmbeddedFile(const char *path);")

	cpp, err := os.ReadFile(filepath.Join(dir, names[1]))
	require.NoError(t, err)
	assert.Contains(t, string(cpp),
		"    { \"/index.html\", \"text/html\", embedded_index_html_data, embedded_index_html_size },\n"+
			"    { \"/LOGO.png\", \"image/png\", embedded_logo_png_data, embedded_logo_png_size },\n")
	assert.Contains(t, string(cpp), "if (path == nullptr)")
}

func TestEmitRegistryValidation(t *testing.T) {
	for _, target := range TargetNames() {
		t.Run(target, func(t *testing.T) {
			dir := t.TempDir()
			e, err := New(target, Options{Dir: dir})
			require.NoError(t, err)

			_, err = e.EmitRegistry(nil)
			assert.True(t, errors.Is(err, ErrNoAssets))

			d := descriptor("a.txt", []byte("a"))
			_, err = e.EmitRegistry([]resource.Descriptor{d, d})
			var dup *DuplicatePathError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, "/a.txt", dup.Path)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "no registry is written on failure")
		})
	}
}

func TestTargets(t *testing.T) {
	assert.Equal(t, []string{"arduino", "go"}, TargetNames())

	e, err := New("GO", Options{})
	require.NoError(t, err)
	assert.Equal(t, TargetGo, e.Name())

	_, err = New("rust", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arduino, go")

	help := FormatHelp()
	assert.Contains(t, help, "arduino")
	assert.Contains(t, help, "go")
	assert.Contains(t, help, "(.go)")
	assert.Contains(t, help, "(.h, .cpp)")
}

func TestCleanGenerated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "generated")

	removed, err := CleanGenerated(dir)
	require.NoError(t, err)
	assert.Empty(t, removed)

	for _, name := range []string{"embedded_old_js.go", "embedded_files_registry.cpp", "keep.go", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "embedded_dir"), 0o755))

	removed, err = CleanGenerated(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"embedded_old_js.go", "embedded_files_registry.cpp"}, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	assert.ElementsMatch(t, []string{"keep.go", "README.md", "embedded_dir"}, left)
}

func TestCQuote(t *testing.T) {
	assert.Equal(t, `"/a\"b\\c"`, cQuote(`/a"b\c`))
}
