package live

import (
	"context"
	"time"

	"github.com/okian/fleetview/internal/tracking"
	"github.com/okian/fleetview/pkg/logger"
	"github.com/okian/fleetview/pkg/metrics"
)

// FetchFunc returns one fresh payload. (*tracking.Client).LatestRecord fits.
type FetchFunc func(ctx context.Context) (tracking.Result, error)

// Broadcaster receives each fetched payload.
type Broadcaster interface {
	Broadcast(ctx context.Context, payload []byte)
}

// Poller calls a FetchFunc on a fixed interval and broadcasts each result.
// Every tick is an independent call; results are never kept.
type Poller struct {
	fetch    FetchFunc
	out      Broadcaster
	interval time.Duration
	logger   logger.Logger
}

// NewPoller builds a poller. A non-positive interval yields a poller whose
// Run returns immediately.
func NewPoller(fetch FetchFunc, out Broadcaster, interval time.Duration, log logger.Logger) *Poller {
	if log == nil {
		log = logger.Nop()
	}
	return &Poller{fetch: fetch, out: out, interval: interval, logger: log}
}

// Run ticks until ctx is done. The first tick fires immediately.
func (p *Poller) Run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx)
			t.Reset(p.interval)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	payload, err := p.fetch(ctx)
	if err != nil {
		// The access layer has already logged the failure.
		metrics.RecordLivePollError()
		return
	}
	p.logger.Debug(ctx, "broadcasting latest record", logger.Int("bytes", len(payload)))
	p.out.Broadcast(ctx, payload)
}
