// Package assetcache serves the application's static assets from a versioned
// local cache so the client keeps working without a network.
package assetcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
)

// ErrInstallFailed means the manifest could not be fetched and stored in full.
var ErrInstallFailed = errors.New("asset cache install failed")

// State is the controller lifecycle stage.
type State int

const (
	StateParsed State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configures a Controller.
type Options struct {
	Generation Generation
	// Origin is the base URL manifest paths are resolved against. Only
	// responses from this origin are cached.
	Origin *url.URL
	// Manifest lists the paths fetched at install time.
	Manifest []string
	// Transport performs network requests. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Controller installs a generation of assets, activates it, and then answers
// GET requests from it.
type Controller struct {
	gen      Generation
	origin   *url.URL
	manifest []string
	store    Storage
	next     http.RoundTripper
	log      *slog.Logger

	mu    sync.RWMutex
	state State
}

// New creates a controller in StateParsed.
func New(store Storage, opts Options, log *slog.Logger) *Controller {
	next := opts.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	return &Controller{
		gen:      opts.Generation,
		origin:   opts.Origin,
		manifest: opts.Manifest,
		store:    store,
		next:     next,
		log:      log,
	}
}

// Generation returns the generation this controller installs and serves.
func (c *Controller) Generation() Generation { return c.gen }

// State returns the current lifecycle stage.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Active reports whether the controller is intercepting requests.
func (c *Controller) Active() bool { return c.State() == StateActivated }

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Install fetches every manifest asset and stores them together in the
// current generation. Any failure leaves nothing stored and makes the
// controller redundant.
func (c *Controller) Install(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateParsed {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("installing in state %s", st)
	}
	c.state = StateInstalling
	c.mu.Unlock()

	entries, err := c.fetchManifest(ctx)
	if err == nil {
		err = c.store.Put(ctx, c.gen.Name(), entries...)
	}
	if err != nil {
		c.setState(StateRedundant)
		c.log.Error("asset install failed", "generation", c.gen.Name(), "error", err)
		return fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	c.setState(StateInstalled)
	c.log.Info("assets installed", "generation", c.gen.Name(), "assets", len(entries))
	return nil
}

func (c *Controller) fetchManifest(ctx context.Context) ([]Entry, error) {
	entries := make([]Entry, 0, len(c.manifest))
	for _, p := range c.manifest {
		u, err := c.resolve(p)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("building request for %s: %w", p, err)
		}
		resp, err := c.next.RoundTrip(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", p, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching %s: status %d", p, resp.StatusCode)
		}
		entries = append(entries, Entry{
			URL:    cacheKey(u),
			Status: resp.StatusCode,
			Header: resp.Header.Clone(),
			Body:   body,
		})
	}
	return entries, nil
}

func (c *Controller) resolve(p string) (*url.URL, error) {
	ref, err := url.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest path %q: %w", p, err)
	}
	if c.origin == nil {
		if !ref.IsAbs() {
			return nil, fmt.Errorf("manifest path %q is relative and no origin is set", p)
		}
		return ref, nil
	}
	return c.origin.ResolveReference(ref), nil
}

// Activate deletes every generation other than the current one, then starts
// intercepting requests.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInstalled {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("activating in state %s", st)
	}
	c.state = StateActivating
	c.mu.Unlock()

	current := c.gen.Name()
	names, err := c.store.Keys(ctx)
	if err != nil {
		c.setState(StateInstalled)
		return fmt.Errorf("listing generations: %w", err)
	}
	for _, name := range names {
		if name == current {
			continue
		}
		if _, err := c.store.Delete(ctx, name); err != nil {
			c.setState(StateInstalled)
			return fmt.Errorf("deleting generation %s: %w", name, err)
		}
		c.log.Info("deleted old asset generation", "generation", name)
	}

	c.setState(StateActivated)
	c.log.Info("asset cache activated", "generation", current)
	return nil
}

// RoundTrip implements http.RoundTripper. Once active, GET requests are
// answered from the cache when possible; misses go to the network and
// same-origin 200 responses are stored for next time. Network errors are
// returned as is.
func (c *Controller) RoundTrip(req *http.Request) (*http.Response, error) {
	if !c.Active() || req.Method != http.MethodGet || (req.URL.Scheme != "http" && req.URL.Scheme != "https") {
		return c.next.RoundTrip(req)
	}

	ctx := req.Context()
	key := cacheKey(req.URL)
	name := c.gen.Name()

	hit, err := c.store.Match(ctx, name, key)
	if err != nil {
		c.log.Warn("asset cache lookup failed", "url", key, "error", err)
	}
	if hit != nil {
		return hit.response(req), nil
	}

	resp, err := c.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || !c.sameOrigin(req.URL) {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := Entry{URL: key, Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}
	if err := c.store.Put(ctx, name, entry); err != nil {
		c.log.Warn("asset cache store failed", "url", key, "error", err)
	}
	return resp, nil
}

// Purge deletes every generation, including the current one.
func (c *Controller) Purge(ctx context.Context) error {
	names, err := c.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("listing generations: %w", err)
	}
	var errs []error
	for _, name := range names {
		if _, err := c.store.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("deleting generation %s: %w", name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	c.log.Info("asset cache purged", "generations", len(names))
	return nil
}

func (c *Controller) sameOrigin(u *url.URL) bool {
	if c.origin == nil {
		return false
	}
	return u.Scheme == c.origin.Scheme && u.Host == c.origin.Host
}

func cacheKey(u *url.URL) string {
	k := *u
	k.Fragment = ""
	k.RawFragment = ""
	return k.String()
}

func (e *Entry) response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
