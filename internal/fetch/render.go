package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hnolivos/arbitrage-scanner/internal/retry"
	"github.com/hnolivos/arbitrage-scanner/internal/stealth"
)

// stealthScript drives the render backend through a full fingerprinted page
// load: navigator overrides, custom headers, cookie replay, then human-like
// scrolling before the HTML is captured.
const stealthScript = `
function main(splash, args)
    splash:set_user_agent(args.user_agent)
    splash:set_viewport_size(args.screen_width, args.screen_height)

    if args.cookies then
        splash:init_cookies(args.cookies)
    end

    splash:autoload(string.format([[
        Object.defineProperty(navigator, 'webdriver', { get: () => false });
        Object.defineProperty(navigator, 'platform', { get: () => '%s' });
        Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
        Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });
        Object.defineProperty(navigator, 'languages', { get: () => ['%s', 'en'] });
        window.chrome = { runtime: {} };
    ]], args.platform, args.hardware_concurrency, args.device_memory, args.locale))

    splash:set_custom_headers(args.headers)

    assert(splash:go(args.url))
    splash:wait(args.wait)

    for i = 1, 3 do
        splash:runjs("window.scrollBy(0, 600)")
        splash:wait(0.4)
    end

    return {
        html = splash:html(),
        url = splash:url(),
        cookies = splash:get_cookies(),
    }
end
`

// RenderClient talks to a Splash-compatible headless render service over
// HTTP. It is the only component that touches the backend directly.
type RenderClient struct {
	baseURL string
	http    *http.Client
	wait    time.Duration
	logger  *slog.Logger
}

func NewRenderClient(baseURL string, wait time.Duration, logger *slog.Logger) *RenderClient {
	return &RenderClient{
		baseURL: baseURL,
		http:    &http.Client{},
		wait:    wait,
		logger:  logger.With("component", "render_client"),
	}
}

type executeRequest struct {
	LuaSource           string            `json:"lua_source"`
	URL                 string            `json:"url"`
	UserAgent           string            `json:"user_agent"`
	Headers             map[string]string `json:"headers"`
	Cookies             []stealth.Cookie  `json:"cookies,omitempty"`
	ScreenWidth         int               `json:"screen_width"`
	ScreenHeight        int               `json:"screen_height"`
	Platform            string            `json:"platform"`
	Locale              string            `json:"locale"`
	DeviceMemory        int               `json:"device_memory"`
	HardwareConcurrency int               `json:"hardware_concurrency"`
	Wait                float64           `json:"wait"`
	Timeout             float64           `json:"timeout"`
	ResourceTimeout     float64           `json:"resource_timeout"`
}

type executeResult struct {
	HTML    string           `json:"html"`
	URL     string           `json:"url"`
	Cookies []stealth.Cookie `json:"cookies"`
}

// Execute renders pageURL through the backend's script endpoint with the
// session fingerprint applied. It returns the rendered page and the cookies
// the backend accumulated.
func (c *RenderClient) Execute(ctx context.Context, pageURL string, fp stealth.Fingerprint, cookies []stealth.Cookie, timeout time.Duration) (*Page, []stealth.Cookie, error) {
	req := executeRequest{
		LuaSource:           stealthScript,
		URL:                 pageURL,
		UserAgent:           fp.UserAgent,
		Headers:             stealth.Headers(fp),
		Cookies:             cookies,
		ScreenWidth:         fp.Viewport.Width,
		ScreenHeight:        fp.Viewport.Height,
		Platform:            fp.Platform,
		Locale:              fp.Locale,
		DeviceMemory:        fp.DeviceMemory,
		HardwareConcurrency: fp.HardwareConcurrency,
		Wait:                c.wait.Seconds(),
		Timeout:             timeout.Seconds(),
		ResourceTimeout:     (timeout / 2).Seconds(),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, retry.Permanent(fmt.Errorf("failed to encode render request: %w", err))
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, nil, retry.Permanent(fmt.Errorf("failed to build render request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, nil, classifyNetworkError(err, timeout)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, timeout); err != nil {
		io.Copy(io.Discard, resp.Body)
		return nil, nil, err
	}

	var result executeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil, Transient(fmt.Errorf("failed to decode render response: %w", err))
	}

	page := &Page{
		URL:        pageURL,
		FinalURL:   result.URL,
		HTML:       result.HTML,
		StatusCode: resp.StatusCode,
		FetchedAt:  start,
		Elapsed:    time.Since(start),
	}
	return page, result.Cookies, nil
}

// RenderHTML fetches pageURL through the backend's simple render endpoint,
// without the fingerprint script. Used by the basic pipeline.
func (c *RenderClient) RenderHTML(ctx context.Context, pageURL string, headers map[string]string, timeout time.Duration) (*Page, error) {
	params := url.Values{}
	params.Set("url", pageURL)
	params.Set("wait", strconv.FormatFloat(c.wait.Seconds(), 'f', 1, 64))
	params.Set("timeout", strconv.FormatFloat(timeout.Seconds(), 'f', 0, 64))

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/render.html?"+params.Encode(), nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to build render request: %w", err))
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classifyNetworkError(err, timeout)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, timeout); err != nil {
		io.Copy(io.Discard, resp.Body)
		return nil, err
	}

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(fmt.Errorf("failed to read render response: %w", err))
	}

	return &Page{
		URL:        pageURL,
		FinalURL:   pageURL,
		HTML:       string(html),
		StatusCode: resp.StatusCode,
		FetchedAt:  start,
		Elapsed:    time.Since(start),
	}, nil
}

func classifyNetworkError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &RenderTimeoutError{Timeout: timeout, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &RenderTimeoutError{Timeout: timeout, Err: err}
	}
	return Transient(err)
}

func classifyStatus(status int, timeout time.Duration) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusGatewayTimeout:
		return &RenderTimeoutError{Timeout: timeout, Err: fmt.Errorf("render backend returned %d", status)}
	case status >= 500:
		return Transient(fmt.Errorf("render backend returned %d", status))
	default:
		// 4xx means our request is malformed; retrying it is pointless.
		return retry.Permanent(fmt.Errorf("render backend rejected request with %d", status))
	}
}
