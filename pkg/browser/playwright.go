package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/wpdriver/pkg/logging"
)

// PlaywrightDriver launches Chromium through playwright-go.
type PlaywrightDriver struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	initialized bool
	logger      *logging.Logger
}

// NewPlaywrightDriver creates a driver. Playwright is installed and started on
// the first Launch unless Initialize is called earlier.
func NewPlaywrightDriver(logger *logging.Logger) *PlaywrightDriver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &PlaywrightDriver{logger: logger.With("playwright")}
}

// Initialize installs the browser binaries if needed and starts the
// playwright server.
func (d *PlaywrightDriver) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initLocked()
}

func (d *PlaywrightDriver) initLocked() error {
	if d.initialized {
		return nil
	}

	// Output is discarded so installer progress does not interleave with the CLI
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	d.playwright = pw
	d.initialized = true
	d.logger.Debugf("playwright started")
	return nil
}

// Launch starts a browser with one context and page.
func (d *PlaywrightDriver) Launch(ctx context.Context, opts LaunchOptions) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if err := d.initLocked(); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	pw := d.playwright
	d.mu.Unlock()

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(opts.SlowMo)
	}
	if opts.Timeout > 0 {
		launchOpts.Timeout = playwright.Float(opts.Timeout)
	}
	if opts.NoSandbox {
		launchOpts.Args = []string{"--no-sandbox", "--disable-setuid-sandbox"}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.Viewport != nil {
		contextOpts.Viewport = &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		}
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	closeTimeout := time.Duration(DefaultTimeout) * time.Millisecond
	if opts.Timeout > 0 {
		page.SetDefaultTimeout(opts.Timeout)
		closeTimeout = time.Duration(opts.Timeout) * time.Millisecond
	}

	return &playwrightProcess{
		browser:      browser,
		context:      bctx,
		page:         &playwrightPage{page: page},
		closeTimeout: closeTimeout,
	}, nil
}

// Stop shuts the playwright server down.
func (d *PlaywrightDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized || d.playwright == nil {
		return nil
	}
	if err := d.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	d.initialized = false
	d.playwright = nil
	return nil
}

type playwrightProcess struct {
	browser      playwright.Browser
	context      playwright.BrowserContext
	page         *playwrightPage
	closeTimeout time.Duration
}

func (p *playwrightProcess) Page() Page {
	return p.page
}

func (p *playwrightProcess) Close() error {
	return closeWithin(p.closeTimeout, func() error {
		_ = p.page.page.Close()
		_ = p.context.Close()
		return p.browser.Close()
	})
}

// closeWithin runs teardown and gives up after d. A teardown that overruns
// keeps going in the background; the caller gets ErrDeadlineExceeded.
func closeWithin(d time.Duration, teardown func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- teardown()
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w: browser did not close within %s", ErrDeadlineExceeded, d)
	}
}

// playwrightPage adapts a playwright page to the Page primitives. Mutations
// target the first match so comma-separated selector lists never trip
// strict mode.
type playwrightPage struct {
	page playwright.Page
}

// convert maps playwright timeouts onto ErrDeadlineExceeded.
func convert(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrDeadlineExceeded, err)
	}
	return err
}

func (p *playwrightPage) first(selector string) playwright.Locator {
	return p.page.Locator(selector).First()
}

func (p *playwrightPage) Goto(url string, timeout float64) (int, error) {
	waitUntil := playwright.WaitUntilState("domcontentloaded")
	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(timeout),
		WaitUntil: &waitUntil,
	})
	if err != nil {
		return 0, convert(err)
	}
	if resp == nil {
		return 0, nil
	}
	return resp.Status(), nil
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) WaitForNetworkIdle(timeout float64) error {
	state := playwright.LoadState("networkidle")
	return convert(p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   &state,
		Timeout: playwright.Float(timeout),
	}))
}

func (p *playwrightPage) Count(selector string) (int, error) {
	n, err := p.page.Locator(selector).Count()
	return n, convert(err)
}

const describeScript = `el => ({
	tag: el.tagName.toLowerCase(),
	type: (el.getAttribute('type') || '').toLowerCase(),
	editable: el.isContentEditable === true
})`

func (p *playwrightPage) Describe(selector string, timeout float64) (ElementInfo, error) {
	raw, err := p.first(selector).Evaluate(describeScript, nil, playwright.LocatorEvaluateOptions{
		Timeout: playwright.Float(timeout),
	})
	if err != nil {
		return ElementInfo{}, convert(err)
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return ElementInfo{}, fmt.Errorf("unexpected describe result %T", raw)
	}
	info := ElementInfo{}
	info.Tag, _ = m["tag"].(string)
	info.Type, _ = m["type"].(string)
	info.ContentEditable, _ = m["editable"].(bool)
	return info, nil
}

func (p *playwrightPage) Clear(selector string, timeout float64) error {
	return convert(p.first(selector).Clear(playwright.LocatorClearOptions{
		Timeout: playwright.Float(timeout),
	}))
}

func (p *playwrightPage) Fill(selector, value string, timeout float64) error {
	return convert(p.first(selector).Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(timeout),
	}))
}

func (p *playwrightPage) Type(selector, text string, timeout float64) error {
	return convert(p.first(selector).PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Timeout: playwright.Float(timeout),
	}))
}

func (p *playwrightPage) KeyboardType(text string, timeout float64) error {
	return convert(p.page.Locator("*:focus").First().PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Timeout: playwright.Float(timeout),
	}))
}

func (p *playwrightPage) Click(selector string, timeout float64) error {
	return convert(p.first(selector).Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(timeout),
	}))
}

func (p *playwrightPage) IsChecked(selector string, timeout float64) (bool, error) {
	checked, err := p.first(selector).IsChecked(playwright.LocatorIsCheckedOptions{
		Timeout: playwright.Float(timeout),
	})
	return checked, convert(err)
}

func (p *playwrightPage) SelectOption(selector, value string, timeout float64) error {
	_, err := p.first(selector).SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	}, playwright.LocatorSelectOptionOptions{
		Timeout: playwright.Float(timeout),
	})
	return convert(err)
}

func (p *playwrightPage) InputValue(selector string, timeout float64) (string, error) {
	v, err := p.first(selector).InputValue(playwright.LocatorInputValueOptions{
		Timeout: playwright.Float(timeout),
	})
	return v, convert(err)
}

func (p *playwrightPage) TextContent(selector string, timeout float64) (string, error) {
	v, err := p.first(selector).TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(timeout),
	})
	return v, convert(err)
}

func (p *playwrightPage) AllText(selector string) ([]string, error) {
	texts, err := p.page.Locator(selector).AllTextContents()
	return texts, convert(err)
}

func (p *playwrightPage) FrameFill(frameSelector, selector, value string, timeout float64) error {
	return convert(p.page.FrameLocator(frameSelector).Locator(selector).First().Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(timeout),
	}))
}

func (p *playwrightPage) FrameHTML(frameSelector, selector string, timeout float64) (string, error) {
	html, err := p.page.FrameLocator(frameSelector).Locator(selector).First().InnerHTML(playwright.LocatorInnerHTMLOptions{
		Timeout: playwright.Float(timeout),
	})
	return html, convert(err)
}

func (p *playwrightPage) Evaluate(script string, arg interface{}) (interface{}, error) {
	if arg == nil {
		v, err := p.page.Evaluate(script)
		return v, convert(err)
	}
	v, err := p.page.Evaluate(script, arg)
	return v, convert(err)
}

func (p *playwrightPage) Screenshot(path string, fullPage bool, timeout float64) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
		Timeout:  playwright.Float(timeout),
	})
	return convert(err)
}

func (p *playwrightPage) OnConsole(fn func(ConsoleEntry)) {
	p.page.OnConsole(func(msg playwright.ConsoleMessage) {
		fn(ConsoleEntry{Type: msg.Type(), Text: msg.Text()})
	})
	p.page.OnPageError(func(err error) {
		fn(ConsoleEntry{Type: "pageerror", Text: err.Error()})
	})
}
