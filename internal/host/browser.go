package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

type BrowserOptions struct {
	Headless     bool
	UserDataDir  string
	WindowWidth  int
	WindowHeight int
	// Switches are passed to Chrome as --name=value[,value...].
	Switches map[string][]string
	Log      *logrus.Entry
}

// Browser is a Chrome window driven over CDP. Request hooks are served from a
// single HijackRouter; every route dispatches through the same hook list so
// registration order does not matter.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	router   *rod.HijackRouter
	log      *logrus.Entry

	mu        sync.RWMutex
	requests  []requestHook
	headers   []BeforeSendHeadersHandler
	routed    map[string]bool
	runOnce   sync.Once
	closeOnce sync.Once
}

func LaunchBrowser(opts BrowserOptions) (*Browser, error) {
	if opts.WindowWidth <= 0 {
		opts.WindowWidth = 1280
	}
	if opts.WindowHeight <= 0 {
		opts.WindowHeight = 720
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}

	l := launcher.New().Headless(opts.Headless)
	l = l.
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("window-size", fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight))
	for name, values := range opts.Switches {
		l = l.Set(flags.Flag(name), values...)
	}
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect chrome: %w", err)
	}

	b := &Browser{
		launcher: l,
		browser:  browser,
		log:      opts.Log,
		routed:   make(map[string]bool),
	}
	b.router = browser.HijackRequests()
	return b, nil
}

func (b *Browser) OnBeforeRequest(filter Filter, handler BeforeRequestHandler) error {
	m, err := NewMatcher(filter.URLs)
	if err != nil {
		return fmt.Errorf("compile request filter: %w", err)
	}
	b.mu.Lock()
	b.requests = append(b.requests, requestHook{matcher: m, handler: handler})
	b.mu.Unlock()
	return b.route(filter.URLs...)
}

func (b *Browser) OnBeforeSendHeaders(handler BeforeSendHeadersHandler) error {
	b.mu.Lock()
	b.headers = append(b.headers, handler)
	b.mu.Unlock()
	return b.route("*")
}

func (b *Browser) route(patterns ...string) error {
	for _, p := range patterns {
		b.mu.Lock()
		seen := b.routed[p]
		b.routed[p] = true
		b.mu.Unlock()
		if seen {
			continue
		}
		if err := b.router.Add(p, "", b.dispatch); err != nil {
			return fmt.Errorf("hijack %s: %w", p, err)
		}
	}
	return nil
}

func (b *Browser) dispatch(ctx *rod.Hijack) {
	target := ctx.Request.URL().String()

	b.mu.RLock()
	requests := b.requests
	headers := b.headers
	b.mu.RUnlock()

	for _, h := range requests {
		if !h.matcher.Match(target) {
			continue
		}
		res := h.handler(RequestDetails{
			URL:          target,
			Method:       ctx.Request.Method(),
			ResourceType: string(ctx.Request.Type()),
		})
		if res.Cancel {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if res.RedirectURL != "" && res.RedirectURL != target {
			b.redirect(ctx, res.RedirectURL)
			return
		}
		break
	}

	cont := &proto.FetchContinueRequest{}
	if len(headers) > 0 {
		hdr := ctx.Request.Req().Header.Clone()
		for _, h := range headers {
			res := h(HeadersDetails{URL: target, RequestHeaders: hdr.Clone()})
			if res.Cancel {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
			if res.RequestHeaders != nil {
				hdr = res.RequestHeaders
			}
		}
		cont.Headers = headerEntries(hdr)
	}
	ctx.ContinueRequest(cont)
}

// redirect answers remote destinations with a 302 and fulfills file://
// destinations from disk, since Chrome refuses to follow http -> file
// redirects.
func (b *Browser) redirect(ctx *rod.Hijack, dest string) {
	u, err := url.Parse(dest)
	if err != nil {
		b.log.WithError(err).WithField("dest", dest).Warn("bad redirect target, passing through")
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
		return
	}
	if u.Scheme != "file" {
		ctx.Response.Payload().ResponseCode = http.StatusFound
		ctx.Response.SetHeader("Location", dest)
		return
	}

	path := FilePath(u)
	data, err := os.ReadFile(path)
	if err != nil {
		b.log.WithError(err).WithField("file", path).Warn("swapped file unreadable, passing through")
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
		return
	}
	ctx.Response.SetHeader(
		"Content-Type", ContentType(path, data),
		"Access-Control-Allow-Origin", "*",
	)
	ctx.Response.SetBody(data)
}

// Open creates a window, starts request hijacking and navigates to target.
// All hooks must be registered before Open is called.
func (b *Browser) Open(ctx context.Context, target, userAgent string) (*rod.Page, error) {
	b.runOnce.Do(func() { go b.router.Run() })

	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open window: %w", err)
	}
	if userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
			return nil, err
		}
	}
	if err := page.Context(ctx).Navigate(target); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		b.log.WithError(err).WithField("url", target).Debug("page load not confirmed")
	}
	return page, nil
}

// Wait blocks until the window for page is closed or ctx is done.
func (b *Browser) Wait(ctx context.Context, page *rod.Page) error {
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b.browser); err != nil {
		return err
	}
	done := make(chan struct{})
	wait := b.browser.Context(ctx).EachEvent(func(e *proto.TargetTargetDestroyed) bool {
		return e.TargetID == page.TargetID
	})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Browser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = errors.Join(b.router.Stop(), b.browser.Close())
		b.launcher.Kill()
	})
	return err
}

func headerEntries(h http.Header) []*proto.FetchHeaderEntry {
	out := make([]*proto.FetchHeaderEntry, 0, len(h))
	for name, values := range h {
		for _, v := range values {
			out = append(out, &proto.FetchHeaderEntry{Name: name, Value: v})
		}
	}
	return out
}
