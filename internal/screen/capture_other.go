//go:build !darwin && !linux

package screen

import (
	"context"

	apperrors "github.com/chromalens/platform/internal/errors"
)

type unsupportedBackend struct{}

// TODO: Implement Windows capture using DXGI desktop duplication
func (u *unsupportedBackend) probe() error {
	return apperrors.New(apperrors.CodeDeviceUnavailable, "screen capture not implemented on this platform")
}

func (u *unsupportedBackend) captureRaw(context.Context, string) ([]byte, error) {
	return nil, u.probe()
}

// NewProvider creates a platform-specific capture provider
func NewProvider() Provider {
	return &osProvider{backend: &unsupportedBackend{}}
}
