package emit

import (
	"fmt"
	"strings"

	"github.com/arhuman/webembed/internal/resource"
)

// TargetArduino emits Arduino C++ headers.
const TargetArduino = "arduino"

// ArduinoEmitter writes PROGMEM headers and a C++ registry.
type ArduinoEmitter struct {
	opts Options
}

// NewArduinoEmitter returns an Arduino emitter.
func NewArduinoEmitter(opts Options) *ArduinoEmitter {
	if opts.RowWidth <= 0 {
		opts.RowWidth = resource.DefaultRowWidth
	}
	return &ArduinoEmitter{opts: opts}
}

// Name implements Emitter.
func (a *ArduinoEmitter) Name() string { return TargetArduino }

// EmitResource implements Emitter.
func (a *ArduinoEmitter) EmitResource(d resource.Descriptor) (string, error) {
	rows := resource.HexRows(d.Data, a.opts.RowWidth, "0x%02X", ", ")
	for i := range rows {
		rows[i] = "    " + rows[i]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Auto-generated from %s\n", d.RelPath)
	b.WriteString("#pragma once\n\n#include <Arduino.h>\n\n")
	fmt.Fprintf(&b, "const uint8_t embedded_%s_data[] PROGMEM = {\n%s\n};\n\n", d.Symbol, strings.Join(rows, ",\n"))
	fmt.Fprintf(&b, "constexpr size_t embedded_%s_size = %d;\n", d.Symbol, d.Size)
	fmt.Fprintf(&b, "constexpr const char *embedded_%s_path = %s;\n", d.Symbol, cQuote(d.ServedPath))
	fmt.Fprintf(&b, "constexpr const char *embedded_%s_content_type = %s;\n", d.Symbol, cQuote(d.ContentType))
	fmt.Fprintf(&b, "constexpr const char *embedded_%s_checksum = %s;\n", d.Symbol, cQuote(d.Checksum))

	name := ArtifactName(d.Symbol, ".h")
	return name, writeArtifact(a.opts.Dir, name, []byte(b.String()))
}

// EmitRegistry implements Emitter.
func (a *ArduinoEmitter) EmitRegistry(ds []resource.Descriptor) ([]string, error) {
	if err := validateRegistry(ds); err != nil {
		return nil, err
	}

	headerName := RegistryBaseName + ".h"
	sourceName := RegistryBaseName + ".cpp"

	var h strings.Builder
	h.WriteString("// Auto-generated embedded file registry\n#pragma once\n\n#include <Arduino.h>\n\n")
	for _, d := range ds {
		fmt.Fprintf(&h, "#include \"%s\"\n", ArtifactName(d.Symbol, ".h"))
	}
	h.WriteString(`
struct EmbeddedFile {
    const char *path;
    const char *content_type;
    const uint8_t *data;
    size_t size;
};

extern const EmbeddedFile embedded_files[];
extern const size_t embedded_files_count;
const EmbeddedFile *findEmbeddedFile(const char *path);
`)

	var c strings.Builder
	c.WriteString("// Auto-generated embedded file registry implementation\n")
	fmt.Fprintf(&c, "#include \"%s\"\n\n#include <cstring>\n\n", headerName)
	c.WriteString("const EmbeddedFile embedded_files[] = {\n")
	for _, d := range ds {
		fmt.Fprintf(&c, "    { %s, %s, embedded_%s_data, embedded_%s_size },\n",
			cQuote(d.ServedPath), cQuote(d.ContentType), d.Symbol, d.Symbol)
	}
	c.WriteString(`};

const size_t embedded_files_count = sizeof(embedded_files) / sizeof(embedded_files[0]);

const EmbeddedFile *findEmbeddedFile(const char *path) {
    if (path == nullptr) {
        return nullptr;
    }
    for (size_t i = 0; i < embedded_files_count; ++i) {
        if (std::strcmp(embedded_files[i].path, path) == 0) {
            return &embedded_files[i];
        }
    }
    return nullptr;
}
`)

	if err := writeArtifact(a.opts.Dir, headerName, []byte(h.String())); err != nil {
		return nil, err
	}
	if err := writeArtifact(a.opts.Dir, sourceName, []byte(c.String())); err != nil {
		return nil, err
	}
	return []string{headerName, sourceName}, nil
}
