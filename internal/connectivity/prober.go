package connectivity

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"go-invoice-capture/internal/logger"
	"go-invoice-capture/internal/storage"
)

// DefaultProbeInterval is how often the endpoint is polled
const DefaultProbeInterval = 15 * time.Second

// Prober drives a Signal by polling a URL. Any 2xx or 3xx answer counts as online.
type Prober struct {
	*Signal

	url      string
	interval time.Duration
	client   *http.Client
}

// NewProber creates a prober; it starts offline until the first probe succeeds
func NewProber(url string, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	timeout := interval / 2
	if timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &Prober{
		Signal:   NewSignal(false),
		url:      url,
		interval: interval,
		client:   storage.NewHTTPClient(timeout),
	}
}

// Probe checks the endpoint once and updates the signal
func (p *Prober) Probe(ctx context.Context) bool {
	online := p.check(ctx)
	if p.Set(online) {
		logger.WithFields(logrus.Fields{"url": p.url, "online": online}).Info("Connectivity changed")
	}
	return online
}

func (p *Prober) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		logger.WithError(err).Debug("Connectivity probe failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// Run probes immediately and then every interval until ctx ends
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
