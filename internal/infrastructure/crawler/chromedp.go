// Package crawler renders web pages in a headless browser and extracts
// their visible text for knowledge ingestion. Rendering through Chrome
// means JavaScript-heavy pages produce the same text a visitor sees.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBodySize  = 2 << 20 // 2MB of extracted text
)

// ChromedpConfig contains configuration for the chromedp page fetcher
type ChromedpConfig struct {
	// Timeout for a single page fetch
	Timeout time.Duration
	// UserAgent sent with every navigation
	UserAgent string
	// MaxBodySize caps the extracted text length in bytes
	MaxBodySize int64
	// RemoteURL is the URL of a remote Chrome/Chromium instance (optional)
	// If empty, chromedp will launch a new browser instance
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// Logger for debug output
	Logger *zap.Logger
}

// ChromedpFetcher fetches page text using Chrome DevTools Protocol
type ChromedpFetcher struct {
	config      *ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpFetcher creates a new chromedp-based page fetcher
func NewChromedpFetcher(config *ChromedpConfig) (*ChromedpFetcher, error) {
	if config == nil {
		config = &ChromedpConfig{}
	}

	// Set defaults
	if config.Timeout == 0 {
		config.Timeout = defaultFetchTimeout
	}
	if config.MaxBodySize == 0 {
		config.MaxBodySize = defaultMaxBodySize
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fetcher := &ChromedpFetcher{
		config: config,
		logger: logger,
	}

	fetcher.initAllocator()

	return fetcher, nil
}

// initAllocator initializes the Chrome allocator
func (f *ChromedpFetcher) initAllocator() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
	)

	if f.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.config.UserAgent))
	}

	if f.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}

	if f.config.RemoteURL != "" {
		f.allocCtx, f.allocCancel = chromedp.NewRemoteAllocator(context.Background(), f.config.RemoteURL)
	} else {
		f.allocCtx, f.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
}

// FetchText navigates to pageURL and returns the page's visible text
func (f *ChromedpFetcher) FetchText(ctx context.Context, pageURL string) (string, error) {
	if err := validateURL(pageURL); err != nil {
		return "", err
	}

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			f.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	var text string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("page fetch timed out after %v: %w", f.config.Timeout, err)
		}
		if ctx.Err() == context.Canceled {
			return "", fmt.Errorf("page fetch cancelled: %w", err)
		}

		f.logger.Error("chromedp fetch failed", zap.String("url", pageURL), zap.Error(err))
		return "", fmt.Errorf("chromedp execution failed: %w", err)
	}

	text = normalizeText(text)
	if text == "" {
		return "", fmt.Errorf("page %s rendered no visible text", pageURL)
	}

	if int64(len(text)) > f.config.MaxBodySize {
		text = truncateText(text, f.config.MaxBodySize)
	}

	f.logger.Info("Page fetched",
		zap.String("url", pageURL),
		zap.Int("bytes", len(text)),
		zap.Duration("duration", time.Since(startTime)))

	return text, nil
}

// Close releases resources held by the fetcher
func (f *ChromedpFetcher) Close() error {
	if f.allocCancel != nil {
		f.allocCancel()
	}
	return nil
}

// validateURL rejects everything except absolute http(s) URLs so the
// crawler cannot be pointed at file:// or chrome:// targets
func validateURL(pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", pageURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", pageURL)
	}
	return nil
}

// normalizeText collapses runs of blank lines left behind by page layout
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// truncateText cuts text at maxBytes without splitting a UTF-8 rune
func truncateText(text string, maxBytes int64) string {
	if int64(len(text)) <= maxBytes {
		return text
	}
	cut := text[:maxBytes]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(cut)
}
