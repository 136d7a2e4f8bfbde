package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/benasque-conf/participants/internal/models"
)

const (
	DefaultAPIURL       = "http://export.arxiv.org/api/query"
	DefaultRequestDelay = 350 * time.Millisecond
	DefaultTimeout      = 10 * time.Second
	userAgent           = "Conference Participant Directory/1.0"
	maxResponseBytes    = 1 << 20
)

// Config configures the client.
type Config struct {
	APIURL       string
	RequestDelay time.Duration // minimum spacing between API calls
	Timeout      time.Duration // per request
}

// Client fetches paper titles. Calls are sequential and spaced by RequestDelay.
// Every failure degrades to "no title" and never to an error.
type Client struct {
	apiURL  string
	http    *http.Client
	limiter *rate.Limiter
	cache   Cache
	logger  *zap.Logger
}

// NewClient creates an arXiv client. cache and logger may be nil.
func NewClient(cfg Config, cache Cache, logger *zap.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = DefaultRequestDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiURL:  cfg.APIURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		cache:   cache,
		logger:  logger,
	}
}

type feed struct {
	Entries []struct {
		Title string `xml:"title"`
	} `xml:"entry"`
}

// Title returns the title of paper id, or nil when it cannot be determined.
func (c *Client) Title(ctx context.Context, id string) *string {
	if id == "" {
		return nil
	}
	if c.cache != nil {
		if t, ok := c.cache.Get(ctx, id); ok {
			return &t
		}
	}
	title, err := c.fetchTitle(ctx, id)
	if err != nil {
		c.logger.Warn("arxiv lookup failed", zap.String("arxiv_id", id), zap.Error(err))
		return nil
	}
	if title == "" {
		return nil
	}
	if c.cache != nil {
		c.cache.Set(ctx, id, title)
	}
	return &title
}

func (c *Client) fetchTitle(ctx context.Context, id string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?id_list="+url.QueryEscape(id), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var f feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&f); err != nil {
		return "", fmt.Errorf("decode feed: %w", err)
	}
	if len(f.Entries) == 0 {
		return "", fmt.Errorf("no entries")
	}
	return strings.Join(strings.Fields(f.Entries[0].Title), " "), nil
}

// Resolve turns raw link strings into links with titles, keeping order and dropping
// empty entries. Non-arXiv links are kept without a title.
func (c *Client) Resolve(ctx context.Context, refs []string) []models.ArxivLink {
	links := make([]models.ArxivLink, 0, len(refs))
	for _, ref := range refs {
		links = append(links, models.ArxivLink{URL: ref})
	}
	return c.Complete(ctx, links)
}

// Complete looks up titles for links that have none, keeping titles already present.
// Order is kept and links with an empty URL are dropped.
func (c *Client) Complete(ctx context.Context, links []models.ArxivLink) []models.ArxivLink {
	out := make([]models.ArxivLink, 0, len(links))
	for _, l := range links {
		l.URL = strings.TrimSpace(l.URL)
		if l.URL == "" {
			continue
		}
		if l.Title == nil {
			l.Title = c.Title(ctx, ExtractID(l.URL))
		}
		out = append(out, l)
	}
	return out
}
