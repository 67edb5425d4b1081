package main

import (
	"bytes"
	"context"
	"image"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/chromalens/platform/internal/config"
	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/grpcclient"
	"github.com/chromalens/platform/internal/orchestrator"
	"github.com/chromalens/platform/internal/prefs"
	"github.com/chromalens/platform/internal/rpc"
	"github.com/chromalens/platform/internal/scheduler"
	"github.com/chromalens/platform/internal/screen"
)

type memPrefs struct{}

func (memPrefs) Load(context.Context) (prefs.Prefs, error) { return prefs.Defaults(), nil }
func (memPrefs) Save(context.Context, prefs.Prefs) error   { return nil }

func newClient(t *testing.T) *grpcclient.Client {
	t.Helper()
	cfg := &config.Config{LensSize: 40, DevicePixelRatio: 1, DefaultFilter: "protanopia", RegionOverlayTTL: time.Minute, BreakerThreshold: 3}
	provider := screen.NewImageProvider(solidWhite())
	m := orchestrator.New(cfg, orchestrator.Deps{Provider: provider, Scheduler: scheduler.NewManual(), Prefs: memPrefs{}})
	t.Cleanup(m.Stop)

	lis := bufconn.Listen(1 << 20)
	srv := rpc.NewServer(rpc.NewService(m))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := grpcclient.New("passthrough:///bufnet", grpcclient.DefaultConfig(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRunCommands(t *testing.T) {
	c := newClient(t)
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"color", "#6495ed"}, `"name": "Cornflower Blue"`},
		{[]string{"filter", "tritanopia"}, `"filter": "tritanopia"`},
		{[]string{"activate"}, `"magnifier": "active"`},
		{[]string{"inspect", "1", "1"}, `"hex": "#ffffff"`},
		{[]string{"deactivate"}, `"magnifier": "inactive"`},
		{[]string{"health"}, `"serving": true`},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), c, tt.args, &out); err != nil {
				t.Fatalf("run(%v): %v", tt.args, err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q missing %q", out.String(), tt.want)
			}
		})
	}
}

func TestRunRejectsBadArguments(t *testing.T) {
	c := newClient(t)
	for _, args := range [][]string{
		{"teleport"},
		{"filter"},
		{"inspect", "1"},
		{"inspect", "a", "b"},
		{"color"},
	} {
		err := run(context.Background(), c, args, &bytes.Buffer{})
		if !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
			t.Errorf("run(%v) = %v, want INVALID_ARGUMENT", args, err)
		}
	}
}

func solidWhite() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}
