package stealth

import "strings"

// Headers builds a realistic header set for the fingerprint's browser
// family. Chromium-based browsers send client hints and Sec-Fetch metadata;
// Firefox sends TE; Safari sends neither.
func Headers(fp Fingerprint) map[string]string {
	headers := map[string]string{
		"User-Agent":                fp.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Accept-Encoding":           "gzip, deflate, br",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}

	switch {
	case isChromium(fp.UserAgent):
		headers["sec-ch-ua"] = `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`
		headers["sec-ch-ua-mobile"] = "?0"
		headers["sec-ch-ua-platform"] = platformHint(fp.Platform)
		headers["Sec-Fetch-Site"] = "none"
		headers["Sec-Fetch-Mode"] = "navigate"
		headers["Sec-Fetch-User"] = "?1"
		headers["Sec-Fetch-Dest"] = "document"
	case strings.Contains(fp.UserAgent, "Firefox"):
		headers["TE"] = "trailers"
	}

	return headers
}

func isChromium(userAgent string) bool {
	return strings.Contains(userAgent, "Chrome")
}

func platformHint(platform string) string {
	switch platform {
	case "MacIntel":
		return `"macOS"`
	case "Linux x86_64":
		return `"Linux"`
	default:
		return `"Windows"`
	}
}
