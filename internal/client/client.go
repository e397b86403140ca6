// Package client wires the swap engine, the settings store and a Chrome
// window into a runnable game client.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/krunkswap/krunkswap/configs"
	"github.com/krunkswap/krunkswap/internal/host"
	"github.com/krunkswap/krunkswap/internal/site"
	"github.com/krunkswap/krunkswap/internal/swap"
	"github.com/krunkswap/krunkswap/internal/transport"
)

type Client struct {
	profile  *configs.Profile
	settings Settings
	rewriter *swap.HeaderRewriter
	router   *site.Router
	log      *logrus.Entry
}

func New(profile *configs.Profile, settings Settings, log *logrus.Entry) *Client {
	return &Client{
		profile:  profile,
		settings: settings,
		rewriter: swap.NewHeaderRewriter(profile.UserAgent, profile.ExtraHeaders),
		router:   site.NewRouter(profile.Host),
		log:      log,
	}
}

// HTTPClient returns the client used for the client's own fetches. It carries
// the same header policy as the browser session.
func (c *Client) HTTPClient() (*http.Client, error) {
	base, err := transport.New(c.profile.TLSFingerprint)
	if err != nil {
		return nil, err
	}
	t := host.NewTransport(base, c.log)
	if err := c.rewriter.Install(t); err != nil {
		return nil, err
	}
	return &http.Client{Transport: t}, nil
}

func (c *Client) Resolver() (swap.VersionResolver, error) {
	if !c.profile.Resolver.Enabled {
		return nil, nil
	}
	hc, err := c.HTTPClient()
	if err != nil {
		return nil, err
	}
	r := swap.NewPageResolver(hc, c.profile.Host, c.profile.Resolver.Timeout)
	r.URL = c.profile.Resolver.URL
	return r, nil
}

// LoadTable builds the session's swap table.
func (c *Client) LoadTable(ctx context.Context) (swap.Result, error) {
	resolver, err := c.Resolver()
	if err != nil {
		return swap.Result{}, err
	}
	return swap.Load(ctx, swap.Options{
		Root:     c.profile.SwapDir,
		Host:     c.profile.Host,
		Resolver: resolver,
		Log:      c.log,
	}), nil
}

type RunOptions struct {
	Headless bool
	// Join is a lobby code such as FRA:abc12; URL overrides it.
	Join string
	URL  string
}

// Run builds the swap table, opens the game window with interception in
// place and blocks until the window closes or ctx is done.
func (c *Client) Run(ctx context.Context, opts RunOptions) error {
	target := opts.URL
	if target == "" {
		u, err := c.router.GameURL(opts.Join)
		if err != nil {
			return err
		}
		target = u
	}
	kind := c.router.Classify(target)
	if kind == site.External {
		return fmt.Errorf("%s is not a %s page", target, c.profile.Host)
	}

	res, err := c.LoadTable(ctx)
	if err != nil {
		return err
	}

	width, height := c.windowSize(kind)
	br, err := host.LaunchBrowser(host.BrowserOptions{
		Headless:     opts.Headless,
		UserDataDir:  c.profile.Window.UserDataDir,
		WindowWidth:  width,
		WindowHeight: height,
		Switches:     Switches(c.settings, IsAMDCPU()),
		Log:          c.log,
	})
	if err != nil {
		return err
	}
	defer br.Close()

	if _, err := swap.Install(br, res.Table, c.rewriter, c.log); err != nil {
		return err
	}

	c.log.WithField("url", target).Info("opening game window")
	page, err := br.Open(ctx, target, c.rewriter.UserAgent)
	if err != nil {
		return err
	}
	err = br.Wait(ctx, page)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// windowSize scales the profile's game window for sub-sites such as the
// editor or social pages.
func (c *Client) windowSize(kind site.Kind) (int, int) {
	scale := kind.Scale()
	return int(float64(c.profile.Window.Width) * scale), int(float64(c.profile.Window.Height) * scale)
}
