package capture

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configures a ChromeBrowser session.
type ChromeOptions struct {
	// ExecPath is the Chrome binary. Empty uses chromedp's lookup.
	ExecPath string

	// RemoteURL connects to an already running browser's DevTools websocket
	// instead of launching one. ExecPath and Headless are ignored when set.
	RemoteURL string

	Headless bool

	// Width, Height, Scale and Mobile describe the emulated device.
	Width  int
	Height int
	Scale  float64
	Mobile bool

	UserAgent string

	// Headers maps a URL host (with port when non-default) to the extra
	// HTTP headers sent on navigations to that host.
	Headers map[string]map[string]string
}

// ChromeBrowser drives a single Chrome tab through the DevTools protocol.
// One ChromeBrowser serves one device session; pages are loaded in sequence
// in the same tab.
type ChromeBrowser struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	headers     map[string]network.Headers
	logger      *slog.Logger
}

// NewChromeBrowser starts (or connects to) Chrome and prepares a tab with the
// requested device metrics. The browser lives until Close is called or ctx ends.
func NewChromeBrowser(ctx context.Context, opts ChromeOptions, logger *slog.Logger) (*ChromeBrowser, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		logger.Debug("connecting to chrome", "url", opts.RemoteURL)
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		flags := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.WindowSize(opts.Width, opts.Height),
			chromedp.Flag("hide-scrollbars", true),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("disable-popup-blocking", true),
		)
		if !opts.Headless {
			flags = append(flags, chromedp.Flag("headless", false))
		}
		if opts.ExecPath != "" {
			flags = append(flags, chromedp.ExecPath(opts.ExecPath))
		}
		if opts.UserAgent != "" {
			flags = append(flags, chromedp.UserAgent(opts.UserAgent))
		}
		logger.Debug("launching chrome", "headless", opts.Headless, "exec", opts.ExecPath)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, flags...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		emulation.SetDeviceMetricsOverride(int64(opts.Width), int64(opts.Height), scale, opts.Mobile),
	); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &ChromeBrowser{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		headers:     buildHeaders(opts.Headers),
		logger:      logger,
	}, nil
}

// Navigate loads pageURL and waits for the load event. Extra headers
// configured for the URL's host are applied first; other hosts get none.
func (b *ChromeBrowser) Navigate(ctx context.Context, pageURL string) error {
	if err := b.run(ctx,
		network.SetExtraHTTPHeaders(b.headersFor(pageURL)),
		chromedp.Navigate(pageURL),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	return nil
}

// Capture writes a full-page PNG of the current page to path.
func (b *ChromeBrowser) Capture(ctx context.Context, path string) error {
	var buf []byte
	// quality 100 makes chromedp capture PNG instead of JPEG
	if err := b.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if len(buf) == 0 {
		return ErrNoScreenshot
	}
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	return nil
}

// Close closes the tab and shuts the browser down (or disconnects from a remote one).
func (b *ChromeBrowser) Close() error {
	err := chromedp.Cancel(b.tabCtx)
	b.tabCancel()
	b.allocCancel()
	return err
}

// run executes actions on the tab, bounded by the caller's ctx. Cancelling
// ctx aborts the actions without closing the tab.
func (b *ChromeBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (b *ChromeBrowser) headersFor(pageURL string) network.Headers {
	u, err := url.Parse(pageURL)
	if err != nil {
		return network.Headers{}
	}
	if h, ok := b.headers[u.Host]; ok {
		return h
	}
	if h, ok := b.headers[u.Hostname()]; ok {
		return h
	}
	return network.Headers{}
}

func buildHeaders(in map[string]map[string]string) map[string]network.Headers {
	out := make(map[string]network.Headers, len(in))
	for host, headers := range in {
		h := make(network.Headers, len(headers))
		for k, v := range headers {
			h[k] = v
		}
		out[host] = h
	}
	return out
}
