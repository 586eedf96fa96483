package telegram

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Handler receives updates in arrival order.
type Handler interface {
	HandleUpdate(ctx context.Context, u Update)
}

// HandlerFunc adapts a func to Handler.
type HandlerFunc func(ctx context.Context, u Update)

func (f HandlerFunc) HandleUpdate(ctx context.Context, u Update) { f(ctx, u) }

// Updater is the polling half of Client.
type Updater interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Poller long-polls getUpdates and feeds a Handler.
type Poller struct {
	api     Updater
	handler Handler
	timeout time.Duration
	backoff time.Duration
	logger  *zap.Logger
}

// NewPoller builds a poller with a 50s long-poll timeout.
func NewPoller(api Updater, h Handler, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{api: api, handler: h, timeout: 50 * time.Second, backoff: 3 * time.Second, logger: logger}
}

// Run polls until ctx is done. Transient errors back off and retry; an
// unauthorized token stops the poller.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	p.logger.Info("polling for updates", zap.Duration("timeout", p.timeout))
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, err := p.api.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrUnauthorized) {
				return err
			}
			wait := p.backoff
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}
			p.logger.Warn("getUpdates failed", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			p.handler.HandleUpdate(ctx, u)
		}
	}
}
