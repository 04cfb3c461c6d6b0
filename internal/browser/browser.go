// Package browser drives a local headless Chromium through playwright as an
// alternative to the HTTP render service. The session fingerprint is applied
// at context creation so every page in a session presents one identity.
package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/hnolivos/arbitrage-scanner/internal/stealth"
)

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	timeout time.Duration
	logger  *slog.Logger
}

type Options struct {
	Headless    bool
	Timeout     time.Duration
	ProxyServer string
}

func New(opts Options) (*Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Browser{
		pw:      pw,
		browser: b,
		timeout: timeout,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

// NewContext creates an isolated browsing context presenting the given
// fingerprint. The caller owns the context and must close it.
func (b *Browser) NewContext(fp stealth.Fingerprint) (playwright.BrowserContext, error) {
	headers := stealth.Headers(fp)
	delete(headers, "User-Agent") // playwright sets it from the context option

	context, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         &fp.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &fp.Locale,
		TimezoneId:        &fp.Timezone,
		Viewport: &playwright.Size{
			Width:  fp.Viewport.Width,
			Height: fp.Viewport.Height,
		},
		ExtraHttpHeaders: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	// Mirror the navigator overrides the render backend applies.
	script := fmt.Sprintf(`
		Object.defineProperty(navigator, 'webdriver', { get: () => false });
		Object.defineProperty(navigator, 'platform', { get: () => '%s' });
		Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
		Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });
		window.chrome = { runtime: {} };
	`, fp.Platform, fp.HardwareConcurrency, fp.DeviceMemory)

	if err := context.AddInitScript(playwright.Script{Content: &script}); err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}

	return context, nil
}

// Load navigates a fresh page in context to url, performs light human-like
// interaction, and returns the rendered HTML.
func (b *Browser) Load(context playwright.BrowserContext, url string, timeout time.Duration) (string, error) {
	page, err := context.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if timeout <= 0 {
		timeout = b.timeout
	}

	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	b.humanize(page)

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}

	return content, nil
}

// humanize performs small mouse movements and scrolling so the page load
// does not look scripted.
func (b *Browser) humanize(page playwright.Page) {
	for i := 0; i < 3; i++ {
		x := float64(100 + i*200)
		y := float64(100 + i*150)
		page.Mouse().Move(x, y)
		time.Sleep(time.Millisecond * time.Duration(200+i*100))
	}

	page.Evaluate(`window.scrollBy(0, Math.random() * 300)`)
	time.Sleep(500 * time.Millisecond)
}

func (b *Browser) Close() error {
	var errs []error

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
