// Package resource encodes expanded asset files into descriptors that the
// emitters turn into generated source.
package resource

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/arhuman/webembed/internal/symbol"
)

// DefaultContentType is used for extensions missing from the table.
const DefaultContentType = "application/octet-stream"

// ChecksumLength is the number of hex characters kept from the digest.
const ChecksumLength = 8

// DefaultRowWidth is the number of bytes rendered per row of generated data.
const DefaultRowWidth = 16

var contentTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".txt":  "text/plain",
	".ico":  "image/x-icon",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Descriptor is the generation-time record for one embedded file.
type Descriptor struct {
	Symbol      string
	RelPath     string
	ServedPath  string
	ContentType string
	Size        int
	Checksum    string
	Data        []byte
}

// ContentType returns the MIME type for name based on its extension.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return DefaultContentType
}

// Checksum returns a short fingerprint of data. It is meant for cache busting
// and debugging, not for integrity checks.
func Checksum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])[:ChecksumLength]
}

// Encoder reads expanded files and builds descriptors.
type Encoder struct {
	extraTypes map[string]string
}

// NewEncoder creates an encoder. extra maps lower-case extensions (with the
// leading dot) to content types and takes precedence over the built-in table.
func NewEncoder(extra map[string]string) *Encoder {
	normalized := make(map[string]string, len(extra))
	for ext, ct := range extra {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ct == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[ext] = ct
	}
	return &Encoder{extraTypes: normalized}
}

// ContentType resolves the content type using the encoder's extra entries first.
func (e *Encoder) ContentType(name string) string {
	if ct, ok := e.extraTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return ContentType(name)
}

// Encode reads root/rel and returns its descriptor. rel must be slash separated.
func (e *Encoder) Encode(root, rel string) (Descriptor, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to read asset %s: %w", rel, err)
	}

	return Descriptor{
		Symbol:      symbol.Sanitize(rel),
		RelPath:     rel,
		ServedPath:  "/" + rel,
		ContentType: e.ContentType(rel),
		Size:        len(data),
		Checksum:    Checksum(data),
		Data:        data,
	}, nil
}

// HexRows renders data as rows of width bytes. Each byte is formatted by
// format, e.g. "0x%02X" or `\x%02x`, and joined with sep inside a row.
func HexRows(data []byte, width int, format, sep string) []string {
	if width <= 0 {
		width = DefaultRowWidth
	}

	rows := make([]string, 0, (len(data)+width-1)/width)
	var b strings.Builder
	for start := 0; start < len(data); start += width {
		end := min(start+width, len(data))
		b.Reset()
		for i, c := range data[start:end] {
			if i > 0 {
				b.WriteString(sep)
			}
			fmt.Fprintf(&b, format, c)
		}
		rows = append(rows, b.String())
	}
	return rows
}
