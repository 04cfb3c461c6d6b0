// Package fetch performs single page fetches through a headless render
// backend, composing the circuit breaker, shared rate limiter, session
// fingerprints and retry policy into one pipeline.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hnolivos/arbitrage-scanner/internal/breaker"
	"github.com/hnolivos/arbitrage-scanner/internal/ratelimit"
	"github.com/hnolivos/arbitrage-scanner/internal/retry"
	"github.com/hnolivos/arbitrage-scanner/internal/stealth"
)

// Fetcher fetches one rendered page for a logical session.
type Fetcher interface {
	Fetch(ctx context.Context, url, sessionKey string) (*Page, error)
}

// Backend is one way of obtaining a rendered page. The pipeline around it
// (breaker, rate limit, delays, retries) is shared by all backends.
type Backend interface {
	Render(ctx context.Context, url string, fp stealth.Fingerprint, cookies []stealth.Cookie, timeout time.Duration) (*Page, []stealth.Cookie, error)
}

type Options struct {
	Breaker    *breaker.Breaker
	Limiter    ratelimit.RateLimiter
	Sessions   *stealth.Provider
	Policy     retry.Policy
	Timeout    time.Duration
	MaxTimeout time.Duration
	DelayMin   time.Duration
	DelayMax   time.Duration
	Logger     *slog.Logger
}

// Pipeline composes, in order: breaker gate, rate-limiter acquire,
// fingerprint lookup, human-like delay, the backend call, breaker outcome
// recording. The whole sequence is wrapped by the retry policy.
type Pipeline struct {
	backend  Backend
	breaker  *breaker.Breaker
	limiter  ratelimit.RateLimiter
	sessions *stealth.Provider
	policy   retry.Policy

	timeout    time.Duration
	maxTimeout time.Duration
	delayMin   time.Duration
	delayMax   time.Duration

	logger *slog.Logger
}

func NewPipeline(backend Backend, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		backend:    backend,
		breaker:    opts.Breaker,
		limiter:    opts.Limiter,
		sessions:   opts.Sessions,
		policy:     opts.Policy,
		timeout:    opts.Timeout,
		maxTimeout: opts.MaxTimeout,
		delayMin:   opts.DelayMin,
		delayMax:   opts.DelayMax,
		logger:     logger.With("component", "fetcher"),
	}
}

func (p *Pipeline) Fetch(ctx context.Context, url, sessionKey string) (*Page, error) {
	var page *Page

	retries, err := p.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if err := p.breaker.Allow(); err != nil {
			return err
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		fp := p.sessions.ForSession(sessionKey)
		cookies := p.sessions.Cookies(sessionKey)

		if d := p.sessions.Delay(p.delayMin, p.delayMax); d > 0 {
			if err := sleep(ctx, d); err != nil {
				return retry.Permanent(err)
			}
		}

		result, newCookies, err := p.backend.Render(ctx, url, fp, cookies, p.timeoutFor(attempt))
		if err != nil {
			p.breaker.RecordFailure()
			p.logger.Warn("fetch attempt failed",
				"url", url, "attempt", attempt+1, "error", err)
			return err
		}
		p.breaker.RecordSuccess()

		// A robot-check page renders fine but carries no content. The
		// backend is healthy, so the breaker is not involved.
		if Blocked(result.HTML) {
			p.logger.Warn("blocked page detected", "url", url, "attempt", attempt+1)
			return Transient(fmt.Errorf("target served an anti-bot interstitial"))
		}

		if len(newCookies) > 0 {
			p.sessions.SetCookies(sessionKey, newCookies)
		}

		page = result
		return nil
	})

	if err != nil {
		if !errors.Is(err, breaker.ErrOpen) && !retry.IsPermanent(err) && retries >= p.policy.MaxRetries {
			return nil, retry.Exhausted(err, retries+1)
		}
		return nil, err
	}

	page.Retries = retries
	return page, nil
}

// timeoutFor escalates the backend timeout per attempt so slow-rendering
// pages get more time on retry, up to the configured ceiling.
func (p *Pipeline) timeoutFor(attempt int) time.Duration {
	timeout := p.timeout
	for i := 0; i < attempt; i++ {
		timeout *= 2
		if p.maxTimeout > 0 && timeout >= p.maxTimeout {
			return p.maxTimeout
		}
	}
	return timeout
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// stealthBackend renders through the backend's script endpoint with the
// full fingerprint applied.
type stealthBackend struct {
	client *RenderClient
}

func (b *stealthBackend) Render(ctx context.Context, url string, fp stealth.Fingerprint, cookies []stealth.Cookie, timeout time.Duration) (*Page, []stealth.Cookie, error) {
	return b.client.Execute(ctx, url, fp, cookies, timeout)
}

// basicBackend uses the plain render endpoint. Headers still follow the
// session fingerprint but no script or cookie replay is involved.
type basicBackend struct {
	client *RenderClient
}

func (b *basicBackend) Render(ctx context.Context, url string, fp stealth.Fingerprint, _ []stealth.Cookie, timeout time.Duration) (*Page, []stealth.Cookie, error) {
	page, err := b.client.RenderHTML(ctx, url, stealth.Headers(fp), timeout)
	return page, nil, err
}
