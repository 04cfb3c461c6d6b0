// Package stealth provides browser fingerprints and request humanization
// for anti-detection scraping. A fingerprint is generated once per logical
// session and never changes afterwards, so every request in a session
// presents the same identity.
package stealth

import (
	"fmt"
	"math/rand"
	"time"
)

type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// Fingerprint is the consistent set of client-identifying attributes
// presented for one logical session. Immutable after creation.
type Fingerprint struct {
	UserAgent           string   `json:"user_agent"`
	Platform            string   `json:"platform"`
	Viewport            Viewport `json:"viewport"`
	Timezone            string   `json:"timezone"`
	Locale              string   `json:"locale"`
	ColorDepth          int      `json:"color_depth"`
	DeviceMemory        int      `json:"device_memory"`
	HardwareConcurrency int      `json:"hardware_concurrency"`
}

type identity struct {
	userAgent string
	platform  string
}

// Real browser identities. The platform always matches the OS advertised
// in the user agent, otherwise the mismatch is trivially detectable.
var identities = []identity{
	// Chrome on Windows
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "Win32"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36", "Win32"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36", "Win32"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36", "Win32"},

	// Chrome on Mac
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "MacIntel"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36", "MacIntel"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36", "MacIntel"},

	// Chrome on Linux
	{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "Linux x86_64"},

	// Firefox on Windows
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0", "Win32"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0", "Win32"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:119.0) Gecko/20100101 Firefox/119.0", "Win32"},

	// Firefox on Mac
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0", "MacIntel"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0", "MacIntel"},

	// Safari on Mac
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15", "MacIntel"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15", "MacIntel"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15", "MacIntel"},

	// Edge on Windows
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0", "Win32"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0", "Win32"},
}

var viewports = []Viewport{
	{1920, 1080},
	{1366, 768},
	{1440, 900},
	{1536, 864},
	{2560, 1440},
	{1280, 720},
	{1680, 1050},
}

// US timezones, Amazon.com traffic looks domestic.
var usTimezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Phoenix",
	"America/Anchorage",
}

var (
	colorDepths         = []int{24, 30, 32}
	deviceMemoryGB      = []int{2, 4, 8, 16, 32}
	hardwareConcurrency = []int{2, 4, 6, 8, 12, 16}
)

// generate samples a fresh fingerprint from the pools. Sampling is with
// replacement, so the pool never exhausts.
func generate(rng *rand.Rand) Fingerprint {
	id := identities[rng.Intn(len(identities))]
	return Fingerprint{
		UserAgent:           id.userAgent,
		Platform:            id.platform,
		Viewport:            viewports[rng.Intn(len(viewports))],
		Timezone:            usTimezones[rng.Intn(len(usTimezones))],
		Locale:              "en-US",
		ColorDepth:          colorDepths[rng.Intn(len(colorDepths))],
		DeviceMemory:        deviceMemoryGB[rng.Intn(len(deviceMemoryGB))],
		HardwareConcurrency: hardwareConcurrency[rng.Intn(len(hardwareConcurrency))],
	}
}

// HumanDelay returns a randomized pause that imitates a person browsing:
// usually a short wait in [min, max], with a ~20% chance of an extra 2-10s
// "distracted" pause.
func HumanDelay(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	delay := min + time.Duration(rng.Int63n(int64(max-min)))
	if rng.Float64() < 0.2 {
		delay += 2*time.Second + time.Duration(rng.Int63n(int64(8*time.Second)))
	}
	return delay
}
