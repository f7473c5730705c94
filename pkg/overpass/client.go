// Package overpass queries the Overpass API through an ordered list of
// interchangeable mirrors.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mapagent/internal/metrics"
	"mapagent/pkg/upstream"
)

const providerName = "overpass"

// DefaultMirrors are tried in this order.
var DefaultMirrors = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

// Config configures the mirror list and per-mirror timeout.
type Config struct {
	Mirrors   []string
	UserAgent string
	Timeout   time.Duration
	// Parallel queries all mirrors at once. The response of the first mirror
	// in list order that succeeded is used, as soon as every mirror before it
	// has failed. Slower mirrors are then cancelled.
	Parallel bool
}

// Client sends Overpass QL to the configured mirrors.
type Client struct {
	httpClient *http.Client
	mirrors    []string
	parallel   bool
	logger     *zap.Logger
}

// NewClient builds a client. A nil logger disables logging.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	mirrors := cfg.Mirrors
	if len(mirrors) == 0 {
		mirrors = DefaultMirrors
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Client{
		httpClient: upstream.NewHTTPClient(cfg.UserAgent, timeout),
		mirrors:    mirrors,
		parallel:   cfg.Parallel,
		logger:     logger,
	}
}

// Query submits query to the mirrors and returns the first successful
// dataset. Each mirror is attempted once. When every mirror fails the
// returned *upstream.ProviderError wraps the last failure.
func (c *Client) Query(ctx context.Context, query string) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	if c.parallel {
		ds, err = c.queryParallel(ctx, query)
	} else {
		ds, err = c.querySequential(ctx, query)
	}
	metrics.RecordProviderRequest(providerName, err)
	return ds, err
}

func (c *Client) querySequential(ctx context.Context, query string) (*Dataset, error) {
	var lastErr error
	for _, mirror := range c.mirrors {
		ds, err := c.post(ctx, mirror, query)
		metrics.RecordMirrorAttempt(mirror, err)
		if err == nil {
			return ds, nil
		}
		c.logger.Debug("overpass mirror failed", zap.String("mirror", mirror), zap.Error(err))
		lastErr = err
	}
	return nil, c.exhausted(lastErr)
}

// errMirrorChosen stops the group once a mirror's response has been picked.
var errMirrorChosen = errors.New("mirror chosen")

func (c *Client) queryParallel(ctx context.Context, query string) (*Dataset, error) {
	type outcome struct {
		ds   *Dataset
		err  error
		done chan struct{}
	}
	outcomes := make([]*outcome, len(c.mirrors))
	for i := range outcomes {
		outcomes[i] = &outcome{done: make(chan struct{})}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, mirror := range c.mirrors {
		o := outcomes[i]
		g.Go(func() error {
			defer close(o.done)
			o.ds, o.err = c.post(gctx, mirror, query)
			// mirrors cut short after a pick are not counted as failures
			if o.err == nil || gctx.Err() == nil || ctx.Err() != nil {
				metrics.RecordMirrorAttempt(mirror, o.err)
			}
			return nil
		})
	}

	var chosen *Dataset
	g.Go(func() error {
		var lastErr error
		for i, mirror := range c.mirrors {
			o := outcomes[i]
			<-o.done
			if o.err == nil {
				chosen = o.ds
				return errMirrorChosen
			}
			c.logger.Debug("overpass mirror failed", zap.String("mirror", mirror), zap.Error(o.err))
			lastErr = o.err
		}
		return c.exhausted(lastErr)
	})

	if err := g.Wait(); !errors.Is(err, errMirrorChosen) {
		return nil, err
	}
	return chosen, nil
}

func (c *Client) exhausted(lastErr error) error {
	if lastErr == nil {
		lastErr = errors.New("no mirrors configured")
	}
	return &upstream.ProviderError{Provider: providerName, Endpoint: "all mirrors", Err: lastErr}
}

func (c *Client) post(ctx context.Context, mirror, query string) (*Dataset, error) {
	form := url.Values{}
	form.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mirror, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &upstream.ProviderError{Provider: providerName, Endpoint: mirror, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &upstream.ProviderError{Provider: providerName, Endpoint: mirror, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &upstream.ProviderError{Provider: providerName, Endpoint: mirror, StatusCode: resp.StatusCode}
	}

	var ds Dataset
	if err := json.NewDecoder(resp.Body).Decode(&ds); err != nil {
		return nil, &upstream.ProviderError{Provider: providerName, Endpoint: mirror, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return &ds, nil
}
