package utils

import (
	"context"
	"math/rand"

	"github.com/chromedp/chromedp"
)

// userAgents are real desktop browser strings. Both marketplaces serve a
// stripped page to clients they do not recognise.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

// RandomUserAgent picks the User-Agent for one request or browser session.
func RandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// LaunchFlags are the Chrome switches a BrowserFetcher session starts with.
// Certificate errors are ignored for the same two marketplace hosts the
// HTTP fetcher relaxes verification for.
func LaunchFlags(headless bool) map[string]interface{} {
	flags := map[string]interface{}{
		"disable-blink-features":    "AutomationControlled",
		"excludeSwitches":           "enable-automation",
		"useAutomationExtension":    false,
		"no-sandbox":                true,
		"disable-dev-shm-usage":     true,
		"disable-gpu":               true,
		"ignore-certificate-errors": true,
	}
	if headless {
		flags["headless"] = "new"
	}
	return flags
}

// StealthOpts turns LaunchFlags into allocator options, plus a desktop
// window size and a rotated User-Agent.
func StealthOpts(headless bool) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(RandomUserAgent()),
	}
	for name, value := range LaunchFlags(headless) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// HideWebDriver runs before the listing markup is read; it masks the
// navigator properties bot checks read.
func HideWebDriver() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(`
			Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
			Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
			Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
		`, nil).Do(ctx)
	})
}
