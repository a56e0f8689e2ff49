package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/signature-relay/telegramapi"
	"github.com/onnwee/signature-relay/telemetry"
)

// DefaultPollBackoff is how long the poller waits after a failed getUpdates.
const DefaultPollBackoff = 5 * time.Second

// Updater fetches updates by long polling.
type Updater interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegramapi.Update, error)
}

// Handler processes a single update.
type Handler interface {
	HandleUpdate(ctx context.Context, u telegramapi.Update)
}

// Poller feeds updates from getUpdates to a Handler, one goroutine per update.
type Poller struct {
	api     Updater
	handler Handler
	log     *slog.Logger

	Timeout time.Duration
	Backoff time.Duration

	offset int64
}

// NewPoller creates a Poller with the given long-poll timeout.
func NewPoller(api Updater, h Handler, timeout time.Duration, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		api:     api,
		handler: h,
		log:     log.With(slog.String("component", "poller")),
		Timeout: timeout,
		Backoff: DefaultPollBackoff,
	}
}

// Offset returns the next update id the poller will ask for.
func (p *Poller) Offset() int64 { return p.offset }

// Run polls until ctx is cancelled, then waits for in-flight handlers and returns nil.
// Handlers run on a context detached from ctx so a shutdown does not cut replies short.
func (p *Poller) Run(ctx context.Context) error {
	var g errgroup.Group
	handlerCtx := context.WithoutCancel(ctx)
	p.log.Info("polling for updates", slog.Duration("timeout", p.Timeout))

	for ctx.Err() == nil {
		updates, err := p.api.GetUpdates(ctx, p.offset, p.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			telemetry.IncPollError()
			wait := p.backoff(err)
			p.log.Warn("getUpdates failed", slog.Any("err", err), slog.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= p.offset {
				p.offset = u.UpdateID + 1
			}
			telemetry.IncUpdates()
			g.Go(func() error {
				p.handler.HandleUpdate(handlerCtx, u)
				return nil
			})
		}
	}

	p.log.Info("poller stopping, waiting for in-flight updates")
	return g.Wait()
}

// backoff honours a flood-control retry_after when it exceeds the fixed backoff.
func (p *Poller) backoff(err error) time.Duration {
	wait := p.Backoff
	var apiErr *telegramapi.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		if ra := time.Duration(apiErr.RetryAfter) * time.Second; ra > wait {
			wait = ra
		}
	}
	return wait
}
