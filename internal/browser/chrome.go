// internal/browser/chrome.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/kdelwat9/snap2mealie/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Chrome drives a single headless Chrome process over CDP and implements the
// Driver capability surface. One Chrome instance hosts exactly one chat
// session and is scoped to one assembly run.
type Chrome struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	ctx     context.Context
	cancels []context.CancelFunc

	closeOnce sync.Once
}

var _ Driver = (*Chrome)(nil)

// NewChrome launches the browser process and leaves it on about:blank.
// The caller owns the instance and must call Close on every exit path.
func NewChrome(parentCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Chrome, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	for _, arg := range cfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		logger:  logger.Named("browser"),
		cfg:     cfg,
		ctx:     browserCtx,
		cancels: []context.CancelFunc{browserCancel, allocCancel},
	}

	// Force the browser process to start now so launch failures surface here
	// rather than on the first real action.
	startCtx, startCancel := context.WithTimeout(browserCtx, cfg.NavigationTimeout)
	defer startCancel()
	if err := chromedp.Run(startCtx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to launch browser process: %w", err)
	}

	c.logger.Info("Browser process launched.", zap.Bool("headless", cfg.Headless))
	return c, nil
}

// OpenChat navigates to the chat page and waits, bounded, until an input
// capable element exists anywhere in the document or behind the configured
// host element's shadow root.
func (c *Chrome) OpenChat(ctx context.Context, loc config.LocatorConfig) error {
	c.logger.Info("Navigating to chat page.", zap.String("url", c.cfg.ChatURL))

	navCtx, navCancel := context.WithTimeout(ctx, c.cfg.NavigationTimeout)
	defer navCancel()
	if err := c.runActions(navCtx,
		chromedp.Navigate(c.cfg.ChatURL),
		chromedp.WaitReady("body"),
	); err != nil {
		return fmt.Errorf("failed to load chat page %s: %w", c.cfg.ChatURL, err)
	}

	// The welcome screen and the chat widget render asynchronously; poll until
	// something typeable shows up instead of sleeping a fixed amount.
	readyCtx, readyCancel := context.WithTimeout(ctx, c.cfg.ReadyTimeout)
	defer readyCancel()

	probe := fmt.Sprintf(`(function(hostSel, sel) {
		if (document.querySelector(sel)) return true;
		if (hostSel) {
			const host = document.querySelector(hostSel);
			if (host && host.shadowRoot && host.shadowRoot.querySelector('textarea, input, [contenteditable]')) return true;
		}
		return false;
	})(%s, %s)`, jsonEncode(loc.HostElement), jsonEncode(loc.FallbackInputSelector))

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		var ready bool
		if err := c.evaluate(readyCtx, probe, &ready); err == nil && ready {
			c.logger.Info("Chat interface loaded.")
			return nil
		}
		select {
		case <-readyCtx.Done():
			return fmt.Errorf("chat interface not ready within %v: %w", c.cfg.ReadyTimeout, readyCtx.Err())
		case <-ticker.C:
		}
	}
}

// runActions executes chromedp actions under a context combining the browser
// lifetime with the caller's deadline.
func (c *Chrome) runActions(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, opCancel := CombineContext(c.ctx, ctx)
	defer opCancel()
	return chromedp.Run(opCtx, actions...)
}

// evaluate runs a JS expression and unmarshals its value into res.
func (c *Chrome) evaluate(ctx context.Context, script string, res interface{}) error {
	return c.runActions(ctx,
		chromedp.Evaluate(script, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}),
	)
}

// Query implements Driver. Elements are pinned into a window-scoped handle map
// so later actions can reach them even across a shadow boundary, where a plain
// document.querySelector would not resolve.
func (c *Chrome) Query(ctx context.Context, root Root, selector string) ([]Node, error) {
	script := fmt.Sprintf(`(function(hostSel, selector) {
		let root = document;
		if (hostSel) {
			const host = document.querySelector(hostSel);
			if (!host || !host.shadowRoot) return null;
			root = host.shadowRoot;
		}
		window.__s2mRefs = window.__s2mRefs || {};
		const out = [];
		let i = 0;
		for (const el of root.querySelectorAll(selector)) {
			const ref = 's2m-' + Date.now().toString(36) + '-' + (i++) + '-' + Math.floor(Math.random() * 1e9).toString(36);
			window.__s2mRefs[ref] = el;
			const rect = el.getBoundingClientRect();
			const style = window.getComputedStyle(el);
			const attrs = {};
			for (const a of el.attributes) attrs[a.name] = a.value;
			out.push({
				ref: ref,
				tag: el.tagName.toLowerCase(),
				attributes: attrs,
				visible: rect.width > 0 && rect.height > 0 && style.display !== 'none' && style.visibility !== 'hidden',
				outerHTML: (el.outerHTML || '').slice(0, 4096),
				style: {
					display: style.display,
					visibility: style.visibility,
					width: String(rect.width),
					height: String(rect.height)
				}
			});
		}
		return out;
	})(%s, %s)`, jsonEncode(root.Host), jsonEncode(selector))

	var raw json.RawMessage
	if err := c.evaluate(ctx, script, &raw); err != nil {
		return nil, fmt.Errorf("structural query failed for %q: %w", selector, err)
	}
	// null means the host element or its shadow root is absent; callers treat
	// that the same as an empty candidate set.
	if string(raw) == "null" {
		c.logger.Debug("Query root absent.", zap.String("host", root.Host))
		return nil, nil
	}

	var nodes []Node
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode query result for %q: %w", selector, err)
	}
	return nodes, nil
}

// SetValue implements Driver.
func (c *Chrome) SetValue(ctx context.Context, ref, value string) error {
	script := fmt.Sprintf(`(function(ref, value) {
		const el = (window.__s2mRefs || {})[ref];
		if (!el || !el.isConnected) return false;
		el.scrollIntoView({block: 'center'});
		el.focus();
		if (el.isContentEditable) {
			el.textContent = '';
			el.textContent = value;
		} else {
			el.value = '';
			el.value = value;
		}
		el.dispatchEvent(new Event('input', {bubbles: true, composed: true}));
		return true;
	})(%s, %s)`, jsonEncode(ref), jsonEncode(value))

	var ok bool
	if err := c.evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("failed to set value on %s: %w", ref, err)
	}
	if !ok {
		return fmt.Errorf("set value on %s: %w", ref, ErrStaleElement)
	}
	return nil
}

// PressCommitKey implements Driver. Two delivery paths: a composed
// KeyboardEvent directly on the element (the host widget listens inside its
// shadow root) and a CDP key sequence against the focused element. Host
// application versions differ on which one they honor.
func (c *Chrome) PressCommitKey(ctx context.Context, ref string) error {
	script := fmt.Sprintf(`(function(ref) {
		const el = (window.__s2mRefs || {})[ref];
		if (!el || !el.isConnected) return false;
		el.focus();
		el.dispatchEvent(new KeyboardEvent('keydown',
			{key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true, composed: true}));
		return true;
	})(%s)`, jsonEncode(ref))

	var ok bool
	if err := c.evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("failed to dispatch commit key on %s: %w", ref, err)
	}
	if !ok {
		return fmt.Errorf("commit key on %s: %w", ref, ErrStaleElement)
	}

	keyDown := input.DispatchKeyEvent(input.KeyDown).WithKey("Enter").WithWindowsVirtualKeyCode(13)
	keyUp := input.DispatchKeyEvent(input.KeyUp).WithKey("Enter").WithWindowsVirtualKeyCode(13)
	if err := c.runActions(ctx, keyDown, keyUp); err != nil {
		return fmt.Errorf("failed to dispatch CDP key sequence: %w", err)
	}
	return nil
}

// Activate implements Driver.
func (c *Chrome) Activate(ctx context.Context, ref string) error {
	script := fmt.Sprintf(`(function(ref) {
		const el = (window.__s2mRefs || {})[ref];
		if (!el || !el.isConnected) return false;
		el.click();
		return true;
	})(%s)`, jsonEncode(ref))

	var ok bool
	if err := c.evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("failed to activate %s: %w", ref, err)
	}
	if !ok {
		return fmt.Errorf("activate %s: %w", ref, ErrStaleElement)
	}
	return nil
}

// IsDisabled implements Driver.
func (c *Chrome) IsDisabled(ctx context.Context, ref string) (bool, error) {
	script := fmt.Sprintf(`(function(ref) {
		const el = (window.__s2mRefs || {})[ref];
		if (!el || !el.isConnected) return null;
		return el.disabled === true || el.getAttribute('disabled') !== null;
	})(%s)`, jsonEncode(ref))

	var raw json.RawMessage
	if err := c.evaluate(ctx, script, &raw); err != nil {
		return false, fmt.Errorf("failed to read disabled state of %s: %w", ref, err)
	}
	if string(raw) == "null" {
		return false, fmt.Errorf("disabled state of %s: %w", ref, ErrStaleElement)
	}
	var disabled bool
	if err := json.Unmarshal(raw, &disabled); err != nil {
		return false, fmt.Errorf("failed to decode disabled state of %s: %w", ref, err)
	}
	return disabled, nil
}

// ReadMarkup implements Driver.
func (c *Chrome) ReadMarkup(ctx context.Context) (string, error) {
	var html string
	if err := c.runActions(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read rendered markup: %w", err)
	}
	return html, nil
}

// Visit navigates the tab to an arbitrary URL and waits for the document to
// become ready. Used to reach the post page before thumbnail capture.
func (c *Chrome) Visit(ctx context.Context, url string) error {
	navCtx, navCancel := context.WithTimeout(ctx, c.cfg.ReadyTimeout)
	defer navCancel()
	if err := c.runActions(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to visit %s: %w", url, err)
	}
	return nil
}

// CaptureVideoThumbnail screenshots the first video element on the current
// page into the thumbnail directory. Best-effort: callers get an empty path
// when there is no video or the capture fails.
func (c *Chrome) CaptureVideoThumbnail(ctx context.Context) (string, error) {
	if err := os.MkdirAll(c.cfg.ThumbnailDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	var buf []byte
	capCtx, capCancel := context.WithTimeout(ctx, 10*time.Second)
	defer capCancel()
	if err := c.runActions(capCtx,
		chromedp.WaitReady("video", chromedp.ByQuery),
		chromedp.Screenshot("video", &buf, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("failed to capture video thumbnail: %w", err)
	}

	path := filepath.Join(c.cfg.ThumbnailDir, fmt.Sprintf("thumbnail_%d.png", time.Now().Unix()))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}
	c.logger.Info("Thumbnail captured.", zap.String("path", path))
	return path, nil
}

// Close releases the browser process. Safe to call multiple times and on a
// partially constructed instance.
func (c *Chrome) Close() {
	c.closeOnce.Do(func() {
		c.logger.Info("Closing browser.")
		// Give Chrome a bounded window to exit cleanly before the allocator
		// context kills the process.
		closeCtx, closeCancel := context.WithTimeout(Detach(c.ctx), shutdownGracePeriod)
		defer closeCancel()
		_ = chromedp.Cancel(closeCtx)
		for _, cancel := range c.cancels {
			cancel()
		}
	})
}

// jsonEncode safely encodes a value (especially strings) for JS injection.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
