package browser

import (
	"math/rand/v2"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/stealth"
)

// AcceptLanguage is sent with every request.
const AcceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"

const accept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// UserAgents returns a copy of the user agent pool.
func UserAgents() []string {
	return append([]string(nil), userAgents...)
}

// RandomUserAgent picks a user agent from the fixed pool.
func RandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// RequestHeaders returns the identity headers for one session, with a
// freshly drawn user agent.
func RequestHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      RandomUserAgent(),
		"Accept-Language": AcceptLanguage,
		"Accept":          accept,
	}
}

// patchJS complements stealth.JS with the checks site scripts run most often.
const patchJS = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'languages', { get: () => ['zh-CN', 'zh', 'en'] });
	if (!navigator.plugins || navigator.plugins.length === 0) {
		Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	}
	window.chrome = window.chrome || { runtime: {} };
	for (const key of Object.keys(window)) {
		if (key.startsWith('cdc_') || key.startsWith('__webdriver') ||
			key.startsWith('__playwright') || key.startsWith('__puppeteer')) {
			try { delete window[key]; } catch (e) {}
		}
	}
}`

// InitScripts are installed on every page before navigation, in order.
func InitScripts() []string {
	return []string{stealth.JS, "(" + patchJS + ")()"}
}

// applyLaunchFlags hides the usual automation markers of a launched Chromium.
func applyLaunchFlags(l *launcher.Launcher) {
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-infobars"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("lang"), "zh-CN")
}
