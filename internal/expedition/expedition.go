// Package expedition automates the repeatable expedition quest using a
// headless browser. The quests page is Alpine-driven, so a plain fetch
// cannot click its buttons.
package expedition

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/adelaroche/bosswatch/internal/metrics"
)

// Button selectors on the quests page.
const (
	setupButtonSelector   = `button[x-on\:click*="set-expedition-data"]`
	performButtonSelector = `button[x-on\:click*="performExpedition"]`
)

// Config controls the expedition clicker.
type Config struct {
	QuestsURL     string
	Cookie        string
	UserAgent     string
	NavTimeout    time.Duration
	ClickInterval time.Duration
}

// Status is the controller's externally visible state.
type Status struct {
	Active    bool      `json:"active"`
	LastClick time.Time `json:"last_click,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// Controller starts and stops the background click loop. Start/Stop/Status
// are safe for concurrent use by HTTP handlers.
type Controller struct {
	cfg    Config
	logger *zap.Logger

	// sessionFn runs one browser session; swapped out in tests.
	sessionFn  func(context.Context) error
	retryDelay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	status Status
}

// NewController builds an idle Controller.
func NewController(cfg Config, logger *zap.Logger) *Controller {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 15 * time.Second
	}
	if cfg.ClickInterval <= 0 {
		cfg.ClickInterval = 5 * time.Minute
	}
	c := &Controller{cfg: cfg, logger: logger, retryDelay: 5 * time.Second}
	c.sessionFn = c.session
	return c
}

// Start launches the loop. It reports false when already running.
func (c *Controller) Start(parent context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Active {
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.status = Status{Active: true}

	// Hand run its own done channel; a restart swaps c.done, and a
	// still-draining previous goroutine must not close the new one.
	go c.run(ctx, c.done)
	c.logger.Info("expedition loop started")
	return true
}

// Stop cancels the loop. It reports false when not running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.status.Active {
		return false
	}
	c.cancel()
	c.status.Active = false
	c.logger.Info("expedition loop stopped")
	return true
}

// Status returns a copy of the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close stops the loop and waits briefly for the browser to go away.
func (c *Controller) Close(ctx context.Context) error {
	c.Stop()
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run owns the browser session. Any failure tears the session down,
// records the error, and retries after a short pause while still active.
func (c *Controller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for ctx.Err() == nil {
		if err := c.sessionFn(ctx); err != nil && ctx.Err() == nil {
			c.setError(err)
			c.logger.Warn("expedition session failed, retrying", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.retryDelay):
			}
		}
	}
}

func (c *Controller) session(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if c.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.cfg.UserAgent))
	}
	allocatorCtx, cancelAllocator := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAllocator()
	browserCtx, cancelBrowser := chromedp.NewContext(allocatorCtx)
	defer cancelBrowser()

	navCtx, cancelNav := context.WithTimeout(browserCtx, c.cfg.NavTimeout)
	err := chromedp.Run(navCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Cookie": c.cfg.Cookie}),
		chromedp.Navigate(c.cfg.QuestsURL),
		chromedp.WaitVisible(setupButtonSelector, chromedp.ByQuery),
		chromedp.Click(setupButtonSelector, chromedp.ByQuery),
	)
	cancelNav()
	if err != nil {
		return err
	}
	c.logger.Info("expedition armed")

	for ctx.Err() == nil {
		clickCtx, cancelClick := context.WithTimeout(browserCtx, c.cfg.NavTimeout)
		err := chromedp.Run(clickCtx,
			chromedp.WaitVisible(performButtonSelector, chromedp.ByQuery),
			chromedp.Click(performButtonSelector, chromedp.ByQuery),
		)
		cancelClick()
		if err != nil {
			return err
		}
		c.recordClick()
		metrics.ObserveExpeditionClick()
		c.logger.Debug("expedition click performed")

		select {
		case <-ctx.Done():
		case <-time.After(c.cfg.ClickInterval):
		}
	}
	return ctx.Err()
}

func (c *Controller) recordClick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.LastClick = time.Now().UTC()
	c.status.LastError = ""
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.LastError = err.Error()
}
