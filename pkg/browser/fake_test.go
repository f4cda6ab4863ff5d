package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/wpdriver/pkg/logging"
)

const (
	testBaseURL  = "https://site.test"
	testUser     = "admin"
	testPassword = "secret"
)

// fakeElement is one node of the in-memory DOM.
type fakeElement struct {
	tag      string
	typ      string
	value    string
	text     string
	checked  bool
	editable bool
	options  []string
	onClick  func(p *fakePage)
}

// fakeSite holds server-side state shared by every page of a driver: the
// login cookie and the admin screens.
type fakeSite struct {
	mu         sync.Mutex
	loggedIn   bool
	expireNext int
	routes     map[string]func(p *fakePage)
	hangPaths  map[string]bool
	loginGotos int
	submits    int
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		routes:    make(map[string]func(p *fakePage)),
		hangPaths: make(map[string]bool),
	}
}

func (s *fakeSite) route(path string, render func(p *fakePage)) {
	s.routes[path] = render
}

type fakeDriver struct {
	mu        sync.Mutex
	site      *fakeSite
	launches  int
	closes    int
	launchErr error
	closeErr  error
	lastOpts  LaunchOptions
	pages     []*fakePage
}

func newFakeDriver(site *fakeSite) *fakeDriver {
	if site == nil {
		site = newFakeSite()
	}
	return &fakeDriver{site: site}
}

func (d *fakeDriver) Launch(ctx context.Context, opts LaunchOptions) (Process, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.launches++
	d.lastOpts = opts
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	page := newFakePage(d.site)
	d.pages = append(d.pages, page)
	return &fakeProcess{driver: d, page: page}, nil
}

func (d *fakeDriver) counts() (launches, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launches, d.closes
}

func (d *fakeDriver) lastPage() *fakePage {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pages) == 0 {
		return nil
	}
	return d.pages[len(d.pages)-1]
}

type fakeProcess struct {
	driver *fakeDriver
	page   *fakePage
}

func (p *fakeProcess) Page() Page { return p.page }

func (p *fakeProcess) Close() error {
	p.driver.mu.Lock()
	defer p.driver.mu.Unlock()
	p.driver.closes++
	return p.driver.closeErr
}

type fakePage struct {
	mu          sync.Mutex
	site        *fakeSite
	url         string
	elements    map[string]*fakeElement
	more        map[string][]*fakeElement
	frames      map[string]map[string]*fakeElement
	focused     *fakeElement
	clicks      map[string]int
	gotos       []string
	screenshots []string
	console     func(ConsoleEntry)
}

func newFakePage(site *fakeSite) *fakePage {
	return &fakePage{
		site:     site,
		url:      "about:blank",
		elements: make(map[string]*fakeElement),
		more:     make(map[string][]*fakeElement),
		frames:   make(map[string]map[string]*fakeElement),
		clicks:   make(map[string]int),
	}
}

// set adds or replaces the only element matching selector; callers hold p.mu
// or own the page.
func (p *fakePage) set(selector string, el *fakeElement) *fakeElement {
	p.elements[selector] = el
	delete(p.more, selector)
	return el
}

// add appends another element matching selector after the existing ones.
func (p *fakePage) add(selector string, el *fakeElement) *fakeElement {
	if _, ok := p.elements[selector]; !ok {
		p.elements[selector] = el
		return el
	}
	p.more[selector] = append(p.more[selector], el)
	return el
}

func (p *fakePage) remove(selector string) {
	delete(p.elements, selector)
	delete(p.more, selector)
}

// matches returns every element of a possibly comma-separated selector in
// document order.
func (p *fakePage) matches(selector string) []*fakeElement {
	var out []*fakeElement
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if el, ok := p.elements[part]; ok {
			out = append(out, el)
			out = append(out, p.more[part]...)
		}
	}
	return out
}

func (p *fakePage) reset(url string) {
	p.url = url
	p.elements = make(map[string]*fakeElement)
	p.more = make(map[string][]*fakeElement)
	p.frames = make(map[string]map[string]*fakeElement)
	p.focused = nil
}

// lookup resolves a possibly comma-separated selector to its first present
// element.
func (p *fakePage) lookup(selector string) (*fakeElement, bool) {
	for _, part := range strings.Split(selector, ",") {
		if el, ok := p.elements[strings.TrimSpace(part)]; ok {
			return el, true
		}
	}
	return nil, false
}

func (p *fakePage) mustLookup(selector string) (*fakeElement, error) {
	el, ok := p.lookup(selector)
	if !ok {
		return nil, fmt.Errorf("%w: waiting for %s", ErrDeadlineExceeded, selector)
	}
	return el, nil
}

func (p *fakePage) clickCount(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks[selector]
}

func (p *fakePage) element(selector string) *fakeElement {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, _ := p.lookup(selector)
	return el
}

func (p *fakePage) emit(entry ConsoleEntry) {
	if p.console != nil {
		p.console(entry)
	}
}

// fakeDashboard is served for the admin root even without a route.
var fakeDashboard = map[string]bool{"wp-admin": true, "wp-admin/": true, "wp-admin/index.php": true}

func (p *fakePage) Goto(url string, timeout float64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gotos = append(p.gotos, url)
	path := strings.TrimPrefix(strings.TrimPrefix(url, testBaseURL), "/")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}

	s := p.site
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hangPaths[path] {
		return 0, fmt.Errorf("%w: goto %s", ErrDeadlineExceeded, url)
	}

	if path == "wp-login.php" {
		s.loginGotos++
		if s.loggedIn {
			p.renderAdmin(testBaseURL+"/wp-admin/", nil)
			return 200, nil
		}
		p.renderLogin(url)
		return 200, nil
	}

	if strings.HasPrefix(path, "wp-admin") {
		if s.expireNext > 0 {
			s.expireNext--
			s.loggedIn = false
		}
		if !s.loggedIn {
			p.renderLogin(testBaseURL + "/wp-login.php?redirect_to=" + url)
			return 200, nil
		}
		render, ok := s.routes[path]
		if !ok && !fakeDashboard[path] {
			p.renderNotFound(url)
			return 404, nil
		}
		p.renderAdmin(url, render)
		return 200, nil
	}

	p.reset(url)
	return 200, nil
}

func (p *fakePage) renderNotFound(url string) {
	p.reset(url)
	p.set("body.error404", &fakeElement{tag: "body", text: "Page not found"})
}

func (p *fakePage) renderAdmin(url string, render func(p *fakePage)) {
	p.reset(url)
	p.set("#wpadminbar", &fakeElement{tag: "div"})
	p.set("#adminmenu", &fakeElement{tag: "ul"})
	if render != nil {
		render(p)
	}
}

func (p *fakePage) renderLogin(url string) {
	p.reset(url)
	p.set("#loginform", &fakeElement{tag: "form"})
	p.set("#user_login", &fakeElement{tag: "input", typ: "text"})
	p.set("#user_pass", &fakeElement{tag: "input", typ: "password"})
	p.set("#wp-submit", &fakeElement{tag: "input", typ: "submit", onClick: func(p *fakePage) {
		s := p.site
		s.submits++
		user := p.elements["#user_login"].value
		pass := p.elements["#user_pass"].value
		if user == testUser && pass == testPassword {
			s.loggedIn = true
			p.renderAdmin(testBaseURL+"/wp-admin/", nil)
			return
		}
		p.set("#login_error", &fakeElement{tag: "div", text: "\n\tError: The password you entered for the username " + user + " is incorrect.\n"})
	}})
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) WaitForNetworkIdle(timeout float64) error { return nil }

func (p *fakePage) Count(selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.matches(selector)), nil
}

func (p *fakePage) Describe(selector string, timeout float64) (ElementInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.mustLookup(selector)
	if err != nil {
		return ElementInfo{}, err
	}
	return ElementInfo{Tag: el.tag, Type: el.typ, ContentEditable: el.editable}, nil
}

func (p *fakePage) Clear(selector string, timeout float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.mustLookup(selector)
	if err != nil {
		return err
	}
	el.value = ""
	p.focused = el
	return nil
}

func (p *fakePage) Fill(selector, value string, timeout float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.mustLookup(selector)
	if err != nil {
		return err
	}
	el.value = value
	p.focused = el
	return nil
}

// Type appends like real key presses do.
func (p *fakePage) Type(selector, text string, timeout float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.mustLookup(selector)
	if err != nil {
		return err
	}
	el.value += text
	p.focused = el
	return nil
}

func (p *fakePage) KeyboardType(text string, timeout float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.focused == nil {
		return errors.New("no focused element")
	}
	p.focused.value += text
	return nil
}

func (p *fakePage) Click(selector string, timeout float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.mustLookup(selector)
	if err != nil {
		return err
	}
	p.clicks[selector]++
	if el.typ == "checkbox" {
		el.checked = !el.checked
	}
	if el.typ == "radio" {
		el.checked = true
	}
	p.focused = el
	if el.onClick != nil {
		p.site.mu.Lock()
		el.onClick(p)
		p.site.mu.Unlock()
	}
	return nil
}

func (p *fakePage) IsChecked(selector string, timeout float64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.mustLookup(selector)
	if err != nil {
		return false, err
	}
	return el.checked, nil
}

func (p *fakePage) SelectOption(selector, value string, timeout float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.mustLookup(selector)
	if err != nil {
		return err
	}
	for _, opt := range el.options {
		if opt == value {
			el.value = value
			return nil
		}
	}
	return fmt.Errorf("%w: option %q not found in %s", ErrDeadlineExceeded, value, selector)
}

func (p *fakePage) InputValue(selector string, timeout float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.mustLookup(selector)
	if err != nil {
		return "", err
	}
	if el.editable {
		return "", errors.New("element is not an <input>, <textarea> or <select> element")
	}
	return el.value, nil
}

func (p *fakePage) TextContent(selector string, timeout float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.mustLookup(selector)
	if err != nil {
		return "", err
	}
	if el.editable {
		return el.value, nil
	}
	return el.text, nil
}

func (p *fakePage) AllText(selector string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var texts []string
	for _, el := range p.matches(selector) {
		if el.editable {
			texts = append(texts, el.value)
			continue
		}
		texts = append(texts, el.text)
	}
	return texts, nil
}

// FrameFill stores the value wrapped in a paragraph, as the rich-text editor does.
func (p *fakePage) FrameFill(frameSelector, selector, value string, timeout float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.frames[frameSelector][selector]
	if !ok {
		return fmt.Errorf("%w: frame %s %s", ErrDeadlineExceeded, frameSelector, selector)
	}
	el.value = "<p>" + value + "</p>"
	return nil
}

func (p *fakePage) FrameHTML(frameSelector, selector string, timeout float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.frames[frameSelector][selector]
	if !ok {
		return "", fmt.Errorf("%w: frame %s %s", ErrDeadlineExceeded, frameSelector, selector)
	}
	return el.value, nil
}

// Evaluate understands the block reset; other scripts yield nothing.
func (p *fakePage) Evaluate(script string, arg interface{}) (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if strings.Contains(script, "resetBlocks") {
		if _, ok := p.elements[blockMarker]; !ok {
			return false, nil
		}
		p.remove(blockParagraph)
		p.focused = nil
		return true, nil
	}
	return nil, nil
}

func (p *fakePage) Screenshot(path string, fullPage bool, timeout float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := os.WriteFile(path, []byte("\x89PNG fake"), 0o644); err != nil {
		return err
	}
	p.screenshots = append(p.screenshots, path)
	return nil
}

func (p *fakePage) OnConsole(fn func(ConsoleEntry)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.console = fn
}

// fastTimeouts keeps failing waits short.
func fastTimeouts() Timeouts {
	return Timeouts{
		Navigation:      300 * time.Millisecond,
		Auth:            300 * time.Millisecond,
		Action:          300 * time.Millisecond,
		EditorDetection: 300 * time.Millisecond,
		FieldLocate:     100 * time.Millisecond,
		Screenshot:      300 * time.Millisecond,
	}
}

func testSessionConfig() SessionConfig {
	return SessionConfig{
		Site: SiteConfig{
			BaseURL:  testBaseURL + "/",
			Username: testUser,
			Password: testPassword,
		},
		Launch:   LaunchOptions{Headless: true},
		Timeouts: fastTimeouts(),
	}
}

func newTestSession(t *testing.T, driver *fakeDriver) *Session {
	t.Helper()
	s, err := NewSession(driver, testSessionConfig(), logging.Discard())
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// pageWith returns a standalone page holding the given elements.
func pageWith(elements map[string]*fakeElement) *fakePage {
	p := newFakePage(newFakeSite())
	for sel, el := range elements {
		p.set(sel, el)
	}
	return p
}

func blockEditorFixture(p *fakePage) {
	p.set(blockMarker, &fakeElement{tag: "div"})
	p.set("h1.wp-block-post-title", &fakeElement{tag: "h1", editable: true})
	p.set("button.editor-document-tools__inserter-toggle", &fakeElement{tag: "button", onClick: func(p *fakePage) {
		p.set(blockParagraphItem, &fakeElement{tag: "button", onClick: func(p *fakePage) {
			p.focused = p.add(blockParagraph, &fakeElement{tag: "p", editable: true})
		}})
	}})
	p.set(blockPublishToggle, &fakeElement{tag: "button", onClick: func(p *fakePage) {
		p.set(blockPublishConfirm, &fakeElement{tag: "button", onClick: func(p *fakePage) {
			p.set(".components-snackbar", &fakeElement{tag: "div", text: "Post published."})
		}})
	}})
}

func classicTextFixture(p *fakePage) {
	p.set(classicTextMarker, &fakeElement{tag: "textarea"})
	p.set(classicTextArea, &fakeElement{tag: "textarea"})
	p.set(classicTitle, &fakeElement{tag: "input", typ: "text"})
	p.set(classicPublish, &fakeElement{tag: "input", typ: "submit", onClick: func(p *fakePage) {
		p.set("#message.updated", &fakeElement{tag: "div", text: "Post published."})
	}})
}

func classicVisualFixture(p *fakePage) {
	p.set(classicVisualMarker, &fakeElement{tag: "iframe"})
	p.set(classicTitle, &fakeElement{tag: "input", typ: "text"})
	p.frames[classicFrame] = map[string]*fakeElement{
		classicFrameBody: {tag: "body", editable: true},
	}
}

func settingsFixture(p *fakePage) {
	p.set("#blogname", &fakeElement{tag: "input", typ: "text", value: "Old Name"})
	p.set("#users_can_register", &fakeElement{tag: "input", typ: "checkbox"})
	p.set("#default_role", &fakeElement{tag: "select", value: "subscriber", options: []string{"subscriber", "editor"}})
	p.set("#submit", &fakeElement{tag: "input", typ: "submit", onClick: func(p *fakePage) {
		p.set("#setting-error-settings_updated", &fakeElement{tag: "div", text: "Settings saved."})
	}})
}
