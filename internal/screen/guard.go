package screen

import (
	"context"
	"image"

	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/resilience"
)

// Guard wraps p with breaker b. Once b opens, Open fails fast with
// CodeUnavailable until the reset timeout lets one trial capture through.
func Guard(p Provider, b *resilience.Breaker) Provider {
	return &guardedProvider{provider: p, breaker: b}
}

type guardedProvider struct {
	provider Provider
	breaker  *resilience.Breaker
}

func (g *guardedProvider) Open(ctx context.Context) (Session, error) {
	if err := g.breaker.Allow(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "screen capture paused after repeated failures")
	}
	s, err := g.provider.Open(ctx)
	if err != nil {
		record(g.breaker, err)
		return nil, err
	}
	return &guardedSession{Session: s, breaker: g.breaker}, nil
}

type guardedSession struct {
	Session
	breaker *resilience.Breaker
}

func (s *guardedSession) Grab(ctx context.Context) (*image.RGBA, error) {
	frame, err := s.Session.Grab(ctx)
	if err != nil {
		record(s.breaker, err)
		return nil, err
	}
	s.breaker.Success()
	return frame, nil
}

// record counts device faults; declined prompts and cancellations are ignored.
func record(b *resilience.Breaker, err error) {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeCancelled, apperrors.CodePermissionDenied, apperrors.CodeInvalidArgument:
		return
	}
	b.Failure()
}
