//go:build linux

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

type linuxBackend struct {
	tool string
}

func (l *linuxBackend) probe() error {
	// Try gnome-screenshot first, fall back to scrot
	for _, tool := range []string{"gnome-screenshot", "scrot"} {
		if _, err := exec.LookPath(tool); err == nil {
			l.tool = tool
			return nil
		}
	}
	return apperrors.New(apperrors.CodeDeviceUnavailable, "no screenshot tool found (install gnome-screenshot or scrot)")
}

func (l *linuxBackend) captureRaw(ctx context.Context, dir string) ([]byte, error) {
	tmpFile := filepath.Join(dir, "frame.png")
	var cmd *exec.Cmd
	switch l.tool {
	case "gnome-screenshot":
		cmd = exec.CommandContext(ctx, "gnome-screenshot", "-f", tmpFile)
	default:
		cmd = exec.CommandContext(ctx, "scrot", "-o", tmpFile)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		trace.Logger(ctx).Error("screenshot failed", "tool", l.tool, "error", err, "stderr", stderr.String())
		return nil, classify(err, stderr.String())
	}
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "read screenshot")
	}
	os.Remove(tmpFile)
	return data, nil
}

func classify(err error, stderr string) error {
	msg := strings.ToLower(stderr)
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "not authorized"):
		return apperrors.Wrap(err, apperrors.CodePermissionDenied, "screen capture not permitted")
	case strings.Contains(msg, "can't open x display") || strings.Contains(msg, "cannot open display"):
		return apperrors.Wrap(err, apperrors.CodeCaptureEnded, "display went away")
	case strings.Contains(msg, "busy"):
		return apperrors.Wrap(err, apperrors.CodeDeviceBusy, "screenshot tool busy")
	}
	return apperrors.Wrap(err, apperrors.CodeUnavailable, "screenshot failed")
}

// NewProvider creates a platform-specific capture provider
func NewProvider() Provider {
	return &osProvider{backend: &linuxBackend{}}
}
