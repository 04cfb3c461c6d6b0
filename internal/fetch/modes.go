package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hnolivos/arbitrage-scanner/internal/breaker"
	"github.com/hnolivos/arbitrage-scanner/internal/browser"
	"github.com/hnolivos/arbitrage-scanner/internal/config"
	"github.com/hnolivos/arbitrage-scanner/internal/ratelimit"
	"github.com/hnolivos/arbitrage-scanner/internal/retry"
	"github.com/hnolivos/arbitrage-scanner/internal/stealth"
)

const (
	ModeStealth = "stealth"
	ModeBasic   = "basic"
	ModeBrowser = "browser"
)

// New builds the configured Fetcher. The returned cleanup releases backend
// resources (the local browser, when mode is "browser") and is safe to call
// once the fetcher is no longer used.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, func() error, error) {
	opts := Options{
		Breaker:    breaker.New(cfg.Scanner.FailureThreshold, cfg.Scanner.ResetTimeout),
		Limiter:    ratelimit.NewSlidingWindow(cfg.Scanner.RateLimit, cfg.Scanner.RateWindow),
		Sessions:   stealth.NewProvider(cfg.Scanner.MaxSessions),
		Policy:     retry.Policy{MaxRetries: cfg.Scanner.MaxRetries, BaseDelay: cfg.Scanner.RetryDelay, MaxDelay: 30 * time.Second},
		Timeout:    cfg.Render.Timeout,
		MaxTimeout: cfg.Render.MaxTimeout,
		DelayMin:   time.Second,
		DelayMax:   5 * time.Second,
		Logger:     logger,
	}

	noop := func() error { return nil }

	switch cfg.Scanner.Mode {
	case ModeStealth:
		client := NewRenderClient(cfg.Render.URL, cfg.Render.Wait, logger)
		return NewPipeline(&stealthBackend{client: client}, opts), noop, nil
	case ModeBasic:
		client := NewRenderClient(cfg.Render.URL, cfg.Render.Wait, logger)
		return NewPipeline(&basicBackend{client: client}, opts), noop, nil
	case ModeBrowser:
		b, err := browser.New(browser.Options{
			Headless: true,
			Timeout:  cfg.Render.Timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start browser backend: %w", err)
		}
		return NewPipeline(&browserBackend{browser: b}, opts), b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown scanner mode: %q", cfg.Scanner.Mode)
	}
}

// browserBackend renders pages with a local headless Chromium instead of
// the HTTP render service.
type browserBackend struct {
	browser *browser.Browser
}

func (b *browserBackend) Render(ctx context.Context, url string, fp stealth.Fingerprint, _ []stealth.Cookie, timeout time.Duration) (*Page, []stealth.Cookie, error) {
	start := time.Now()

	bctx, err := b.browser.NewContext(fp)
	if err != nil {
		return nil, nil, Transient(err)
	}
	defer bctx.Close()

	type loaded struct {
		html string
		err  error
	}
	done := make(chan loaded, 1)
	go func() {
		html, err := b.browser.Load(bctx, url, timeout)
		done <- loaded{html: html, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, nil, Transient(ctx.Err())
	case l := <-done:
		if l.err != nil {
			return nil, nil, Transient(l.err)
		}
		return &Page{
			URL:       url,
			FinalURL:  url,
			HTML:      l.html,
			FetchedAt: start,
			Elapsed:   time.Since(start),
		}, nil, nil
	}
}
