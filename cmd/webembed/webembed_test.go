package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arhuman/webembed/internal/config"
	"github.com/arhuman/webembed/internal/pipeline"
	"github.com/arhuman/webembed/internal/version"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestRun_VersionFlag(t *testing.T) {
	for _, arg := range []string{"--version", "-v"} {
		t.Run(arg, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), []string{arg}, &stdout, &stderr)

			assert.Equal(t, pipeline.ExitOK, code)
			assert.Contains(t, stdout.String(), "webembed "+version.Version)
			assert.Empty(t, stderr.String())
		})
	}
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		args  []string
		want  int
	}{
		{
			name:  "success",
			files: map[string]string{"websrc/index.html": "<p>{{APP_VERSION}}</p>", "version.txt": "3.1.4"},
			want:  pipeline.ExitOK,
		},
		{
			name: "missing source",
			want: pipeline.ExitConfig,
		},
		{
			name:  "only excluded files",
			files: map[string]string{"websrc/README.md": "docs"},
			want:  pipeline.ExitEmpty,
		},
		{
			name:  "collision",
			files: map[string]string{"websrc/a-b.js": "1", "websrc/a_b.js": "2"},
			want:  pipeline.ExitFailure,
		},
		{
			name: "invalid flag value",
			args: []string{"-row-width", "100"},
			want: pipeline.ExitConfig,
		},
		{
			name:  "invalid package name",
			files: map[string]string{"websrc/index.html": "x"},
			args:  []string{"-package", "2fast"},
			want:  pipeline.ExitConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeProject(t, tt.files)
			args := append([]string{"-root", root}, tt.args...)

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), args, &stdout, &stderr)
			assert.Equal(t, tt.want, code, stderr.String())
			if tt.want != pipeline.ExitOK {
				assert.NotEmpty(t, stderr.String())
			}
		})
	}
}

func TestRun_GeneratesRegistry(t *testing.T) {
	root := writeProject(t, map[string]string{
		"version.txt":       "1.0.0",
		"websrc/index.html": "<p>{{APP_VERSION}}</p>",
		"websrc/app.js":     "let v = '{{APP_VERSION}}'",
	})

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-root", root, "-package", "webui"}, &stdout, &stderr)
	require.Equal(t, pipeline.ExitOK, code, stderr.String())

	generated := filepath.Join(root, "src", "generated")
	registry, err := os.ReadFile(filepath.Join(generated, "embedded_files_registry.go"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(registry), "// Code generated by webembed. DO NOT EDIT."))
	assert.Contains(t, string(registry), "package webui")
	assert.FileExists(t, filepath.Join(generated, "embedded_app_js_gen.go"))
	assert.FileExists(t, filepath.Join(generated, "embedded_index_html_gen.go"))
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-h"}, &stdout, &stderr)
	assert.Equal(t, pipeline.ExitOK, code)
	assert.Contains(t, stderr.String(), "arduino")
}

func previewResult(t *testing.T) pipeline.Result {
	t.Helper()
	root := writeProject(t, map[string]string{
		"version.txt":       "9.9.9",
		"websrc/index.html": "<h1>{{APP_VERSION}}</h1>",
	})

	cfg := config.DefaultPipelineConfig()
	cfg.SourceDir = filepath.Join(root, "websrc")
	cfg.AssetDir = filepath.Join(root, "data")
	cfg.GeneratedDir = filepath.Join(root, "generated")
	cfg.VersionFile = filepath.Join(root, "version.txt")

	driver, err := pipeline.NewDriver(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	result, err := driver.Run(context.Background())
	require.NoError(t, err)
	return result
}

func TestPreviewServer_Routes(t *testing.T) {
	result := previewResult(t)
	server := newPreviewServer(result, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>9.9.9</h1>", rec.Body.String())

	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.css", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, StatusPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "9.9.9", status.Version)
	assert.Equal(t, version.Version, status.Tool)
	assert.Equal(t, result.RunID, status.RunID)
	require.Len(t, status.Files, 1)
	assert.Equal(t, "/index.html", status.Files[0].Path)

	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, StatusPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServePreview_GracefulShutdown(t *testing.T) {
	result := previewResult(t)
	logger := zaptest.NewLogger(t)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- servePreview(ctx, lis, newPreviewServer(result, logger), logger)
	}()

	resp, err := http.Get("http://" + lis.Addr().String() + "/index.html")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "<h1>9.9.9</h1>", string(body))

	cancel()
	assert.NoError(t, <-done)
}
