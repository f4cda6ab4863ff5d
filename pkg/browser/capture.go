package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Recorder writes audit screenshots into a directory.
type Recorder struct {
	dir     string
	timeout time.Duration
	now     func() time.Time
}

// NewRecorder creates a recorder writing into dir. A zero timeout uses the
// default screenshot timeout.
func NewRecorder(dir string, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = DefaultTimeouts().Screenshot
	}
	return &Recorder{dir: dir, timeout: timeout, now: time.Now}
}

// Dir returns the screenshot directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Capture takes a full-page screenshot named after entity and returns its path.
func (r *Recorder) Capture(page Page, entity string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	path := filepath.Join(r.dir, r.filename(entity))
	if err := page.Screenshot(path, true, ms(r.timeout)); err != nil {
		if IsTimeout(err) {
			return "", newError(KindActionTimeout, "screenshot", err, "screenshot not taken within %s", r.timeout)
		}
		return "", newError(KindInteraction, "screenshot", err, "screenshot failed")
	}
	return path, nil
}

// maxSnapshotLength bounds the markup kept by CaptureDOM.
const maxSnapshotLength = 200000

const outerHTMLScript = `() => document.documentElement.outerHTML`

// CaptureDOM writes a cleaned copy of the page markup (scripts, styles and
// noisy attributes removed) and returns its path. Used for failed flows.
func (r *Recorder) CaptureDOM(page Page, entity string) (string, error) {
	raw, err := page.Evaluate(outerHTMLScript, nil)
	if err != nil {
		return "", newError(KindInteraction, "snapshot", err, "failed to read page markup")
	}
	markup, ok := raw.(string)
	if !ok || markup == "" {
		return "", newError(KindInteraction, "snapshot", nil, "page markup unavailable")
	}

	snap, err := CleanHTML(markup, maxSnapshotLength)
	if err != nil {
		return "", newError(KindInteraction, "snapshot", err, "failed to clean page markup")
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<!-- url: %s -->\n", page.URL())
	if snap.Title != "" {
		fmt.Fprintf(&b, "<!-- title: %s -->\n", snap.Title)
	}
	if snap.Truncated {
		b.WriteString("<!-- truncated -->\n")
	}
	b.WriteString(snap.HTML)

	path := filepath.Join(r.dir, strings.TrimSuffix(r.filename(entity), ".png")+".html")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write DOM snapshot: %w", err)
	}
	return path, nil
}

// filename is <entity>-<UTC timestamp>-<random suffix>.png.
func (r *Recorder) filename(entity string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(entity, "-"), "-.")
	if name == "" {
		name = "action"
	}
	if len(name) > 64 {
		name = name[:64]
	}
	ts := r.now().UTC().Format("20060102T150405.000000000Z")
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s.png", name, ts, suffix)
}
