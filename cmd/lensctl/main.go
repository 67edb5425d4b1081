// lensctl drives a running lens server over gRPC
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/grpcclient"
)

const usage = `usage: lensctl [flags] <command> [args]

commands:
  state                     print the magnifier state
  activate [filter]         start the magnifier
  deactivate                stop the magnifier
  filter <name>             switch filter (protanopia, deuteranopia, tritanopia)
  inspect <x> <y> [filter]  name the colour under a viewport point
  color <hex>               name a hex colour
  health                    check the server health service

flags:
`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	fs := flag.NewFlagSet("lensctl", flag.ExitOnError)
	addr := fs.String("addr", envOr("GRPC_ADDR", "localhost:8421"), "lens server gRPC address")
	timeout := fs.Duration("timeout", 10*time.Second, "overall command timeout")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	client, err := grpcclient.New(*addr, grpcclient.DefaultConfig())
	if err != nil {
		fail(err)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, client, fs.Args(), os.Stdout); err != nil {
		fail(err)
	}
}

func run(ctx context.Context, c *grpcclient.Client, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	arg := func(i int) string {
		if i < len(rest) {
			return rest[i]
		}
		return ""
	}

	var (
		result any
		err    error
	)
	switch cmd {
	case "state":
		result, err = c.State(ctx)
	case "activate":
		result, err = c.Activate(ctx, arg(0))
	case "deactivate":
		result, err = c.Deactivate(ctx)
	case "filter":
		if len(rest) < 1 {
			return apperrors.New(apperrors.CodeInvalidArgument, "filter needs a name")
		}
		result, err = c.SetFilter(ctx, rest[0])
	case "inspect":
		if len(rest) < 2 {
			return apperrors.New(apperrors.CodeInvalidArgument, "inspect needs x and y")
		}
		x, errX := strconv.ParseFloat(rest[0], 64)
		y, errY := strconv.ParseFloat(rest[1], 64)
		if errX != nil || errY != nil {
			return apperrors.New(apperrors.CodeInvalidArgument, "x and y must be numbers")
		}
		result, err = c.Inspect(ctx, x, y, arg(2))
	case "color":
		if len(rest) < 1 {
			return apperrors.New(apperrors.CodeInvalidArgument, "color needs a hex value")
		}
		result, err = c.LookupColor(ctx, rest[0])
	case "health":
		var ok bool
		ok, err = c.Healthy(ctx)
		result = map[string]bool{"serving": ok}
	default:
		return apperrors.Newf(apperrors.CodeInvalidArgument, "unknown command %q", cmd)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func fail(err error) {
	code := apperrors.CodeOf(err)
	fmt.Fprintf(os.Stderr, "lensctl: %s: %v\n", code, err)
	if code == apperrors.CodeInvalidArgument {
		os.Exit(2)
	}
	os.Exit(1)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
