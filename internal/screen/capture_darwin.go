//go:build darwin

package screen

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/trace"
)

type darwinBackend struct{}

func (d *darwinBackend) probe() error {
	if _, err := exec.LookPath("screencapture"); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDeviceUnavailable, "screencapture not found")
	}
	return nil
}

func (d *darwinBackend) captureRaw(ctx context.Context, dir string) ([]byte, error) {
	tmpFile := filepath.Join(dir, "frame.png")
	// -x: no sound, -t png: lossless, -m: main display only
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-t", "png", "-m", tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		trace.Logger(ctx).Error("screencapture failed", "error", err, "stderr", stderr.String())
		return nil, classify(err, stderr.String())
	}
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		// screencapture exits 0 without writing a file when Screen Recording is not granted
		return nil, apperrors.Wrap(err, apperrors.CodePermissionDenied, "screen recording permission not granted")
	}
	os.Remove(tmpFile)
	return data, nil
}

func classify(err error, stderr string) error {
	msg := strings.ToLower(stderr)
	if strings.Contains(msg, "not permitted") || strings.Contains(msg, "permission") {
		return apperrors.Wrap(err, apperrors.CodePermissionDenied, "screen capture not permitted")
	}
	return apperrors.Wrap(err, apperrors.CodeUnavailable, "screencapture failed")
}

// NewProvider creates a platform-specific capture provider
func NewProvider() Provider {
	return &osProvider{backend: &darwinBackend{}}
}
