package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/use-agent/mirror/browser"
	"github.com/use-agent/mirror/models"
	"github.com/use-agent/mirror/scraper"
)

var crawlFlags struct {
	timeout   int
	cookies   string
	fetchMode string
	format    string
}

var crawlCmd = &cobra.Command{
	Use:   "crawl URL...",
	Short: "Crawl URLs once and print the results as JSON",
	Example: `  mirror crawl https://www.zhihu.com/question/123/answer/456
  mirror crawl --cookies "web_session=abc" https://www.xiaohongshu.com/explore/xyz
  mirror crawl --fetch-mode http --format markdown https://example.com/post`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCrawl,
}

func init() {
	f := crawlCmd.Flags()
	f.IntVarP(&crawlFlags.timeout, "timeout", "t", 0, "per-phase timeout in milliseconds (default from MIRROR_DEFAULT_TIMEOUT)")
	f.StringVar(&crawlFlags.cookies, "cookies", "", `cookie header string, e.g. "a=1; b=2"`)
	f.StringVar(&crawlFlags.fetchMode, "fetch-mode", models.FetchModeBrowser, "browser or http")
	f.StringVar(&crawlFlags.format, "format", models.FormatText, "text or markdown")
}

func runCrawl(cmd *cobra.Command, urls []string) error {
	if len(urls) > models.MaxBatchURLs {
		return fmt.Errorf("at most %d URLs per run", models.MaxBatchURLs)
	}

	httpBrowser := browser.NewHTTPBrowser()
	defer httpBrowser.Close()

	// http-only runs never start Chrome.
	var primary browser.Browser = httpBrowser
	switch crawlFlags.fetchMode {
	case models.FetchModeHTTP:
	case models.FetchModeBrowser:
		rb, err := browser.LaunchRod(cfg.Browser)
		if err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
		defer rb.Close()
		primary = rb
	default:
		return fmt.Errorf("unknown fetch mode %q", crawlFlags.fetchMode)
	}

	cr := scraper.New(primary, cfg.Crawler, cfg.Browser)
	cr.SetHTTPBrowser(httpBrowser)

	opts := models.CrawlOptions{
		TimeoutMillis: crawlFlags.timeout,
		FetchMode:     crawlFlags.fetchMode,
		Format:        crawlFlags.format,
	}
	if crawlFlags.cookies != "" {
		opts.Cookies = &models.CookieSpec{Raw: crawlFlags.cookies}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := crawlWithProgress(ctx, cr, urls, opts)

	var err error
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if len(results) == 1 {
		err = enc.Encode(results[0])
	} else {
		err = enc.Encode(results)
	}
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", failed, len(results))
	}
	return nil
}

// crawlWithProgress crawls urls as one batch, ticking a progress bar on
// stderr as each one resolves.
func crawlWithProgress(ctx context.Context, cr *scraper.Crawler, urls []string, opts models.CrawlOptions) []*models.CrawlResult {
	if len(urls) == 1 {
		return cr.CrawlBatch(ctx, urls, opts)
	}

	bar := progressbar.NewOptions(len(urls),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("crawling"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	defer bar.Finish()

	return cr.CrawlBatchFunc(ctx, urls, opts, func(int, *models.CrawlResult) {
		_ = bar.Add(1)
	})
}
