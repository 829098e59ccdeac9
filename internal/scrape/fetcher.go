package scrape

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Page is one fetched document plus the transport facts the caller needs
// to judge it.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
	FetchedAt  time.Time
}

// FetcherConfig captures the outbound HTTP knobs.
type FetcherConfig struct {
	URL            string
	Cookie         string
	UserAgent      string
	RequestTimeout time.Duration
}

// Fetcher performs the authenticated GET against the world boss page using
// a shared Colly collector, cloned per request.
type Fetcher struct {
	cfg    FetcherConfig
	base   *colly.Collector
	logger *zap.Logger
}

// NewFetcher constructs a Fetcher with a tuned transport.
func NewFetcher(cfg FetcherConfig, logger *zap.Logger) (*Fetcher, error) {
	if cfg.URL == "" {
		return nil, errors.New("fetcher: url is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          8,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	return &Fetcher{cfg: cfg, base: base, logger: logger}, nil
}

// Fetch retrieves the configured page. Non-2xx responses come back as a
// *TransportError; a bounce to the login flow comes back wrapped around
// ErrSessionExpired so the caller can log it louder.
func (f *Fetcher) Fetch(ctx context.Context) (Page, error) {
	return f.fetchURL(ctx, f.cfg.URL)
}

// FetchURL retrieves an arbitrary page on the same site with the same
// session, used for per-boss detail pages.
func (f *Fetcher) FetchURL(ctx context.Context, rawURL string) (Page, error) {
	return f.fetchURL(ctx, rawURL)
}

func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) (Page, error) {
	collector := f.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnRequest(func(r *colly.Request) {
		if f.cfg.Cookie != "" {
			r.Headers.Set("Cookie", f.cfg.Cookie)
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
	})

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{page: Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
			FetchedAt:  time.Now().UTC(),
		}})
	})

	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: &TransportError{StatusCode: status, Err: err}})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, &TransportError{Err: err}
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		if res.err != nil {
			return Page{}, res.err
		}
		f.logger.Debug("page fetched",
			zap.String("url", rawURL),
			zap.Int("status_code", res.page.StatusCode),
			zap.Int("bytes", len(res.page.Body)),
		)
		return f.judge(res.page)
	default:
		return Page{}, &TransportError{Err: errors.New("fetch produced no result")}
	}
}

// judge rejects responses that are transport-level failures in disguise.
func (f *Fetcher) judge(page Page) (Page, error) {
	if sessionExpired(page) {
		return Page{}, &TransportError{
			StatusCode: page.StatusCode,
			Err:        ErrSessionExpired,
		}
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		return Page{}, &TransportError{StatusCode: page.StatusCode}
	}
	if len(page.Body) == 0 {
		return Page{}, &TransportError{StatusCode: page.StatusCode, Err: errors.New("empty body")}
	}
	return page, nil
}

// sessionExpired spots the two ways the site signals a dead session: a
// redirect to the login page and the interstitial challenge title.
func sessionExpired(page Page) bool {
	if strings.Contains(page.FinalURL, "/login") {
		return true
	}
	title := strings.ToLower(pageTitle(page.Body))
	return strings.Contains(title, "login") || strings.Contains(title, "just a moment")
}

func pageTitle(body []byte) string {
	html := string(body)
	start := strings.Index(html, "<title>")
	if start < 0 {
		return ""
	}
	rest := html[start+len("<title>"):]
	end := strings.Index(rest, "</title>")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

type fetchResult struct {
	page Page
	err  error
}
