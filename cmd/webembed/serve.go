package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arhuman/webembed/internal/pipeline"
	"github.com/arhuman/webembed/internal/version"
	"github.com/arhuman/webembed/pkg/assets"
)

// StatusPath reports what the preview server is serving.
const StatusPath = "/_webembed/status"

const shutdownTimeout = 5 * time.Second

// StatusFile describes one served file
type StatusFile struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Checksum    string `json:"checksum"`
}

// StatusResponse is the body of StatusPath
type StatusResponse struct {
	Status    string       `json:"status"`
	Tool      string       `json:"tool"`
	Version   string       `json:"version"`
	RunID     string       `json:"run_id"`
	Timestamp string       `json:"timestamp"`
	Files     []StatusFile `json:"files"`
}

// newPreviewServer serves the registry built by a pipeline run.
func newPreviewServer(result pipeline.Result, logger *zap.Logger) *http.Server {
	reg := result.Registry()

	mux := http.NewServeMux()
	mux.HandleFunc(StatusPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		response := StatusResponse{
			Status:    "serving",
			Tool:      version.Short(),
			Version:   result.Version,
			RunID:     result.RunID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		for _, f := range reg.Files() {
			response.Files = append(response.Files, StatusFile{
				Path:        f.Path,
				ContentType: f.ContentType,
				Size:        f.Size,
				Checksum:    f.Checksum,
			})
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("Failed to encode status response", zap.Error(err))
		}
	})
	mux.Handle("/", assets.NewHandler(reg, logger))

	// Create HTTP server with appropriate timeouts
	return &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// servePreview serves on lis until ctx is done, then shuts down gracefully.
func servePreview(ctx context.Context, lis net.Listener, server *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Preview server listening", zap.String("address", lis.Addr().String()))
		errCh <- server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down preview server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Preview server stopped")
	return nil
}
