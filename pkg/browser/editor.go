package browser

import (
	"context"
	"strings"
	"time"

	"github.com/entrhq/wpdriver/pkg/logging"
)

// EditorContext is the content-editing surface active on a screen.
type EditorContext int

const (
	EditorUnknown EditorContext = iota
	BlockEditor
	ClassicEditorVisual
	ClassicEditorText
)

func (e EditorContext) String() string {
	switch e {
	case BlockEditor:
		return "block"
	case ClassicEditorVisual:
		return "classic-visual"
	case ClassicEditorText:
		return "classic-text"
	default:
		return "unknown"
	}
}

// MarshalText renders the context by name in JSON and YAML.
func (e EditorContext) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Capabilities describes how content reaches an editing surface.
type Capabilities struct {
	DirectTyping   bool
	FrameTargeting bool
	BlockInsertion bool
}

// Capabilities returns the mutation style the surface requires.
func (e EditorContext) Capabilities() Capabilities {
	switch e {
	case BlockEditor:
		return Capabilities{BlockInsertion: true}
	case ClassicEditorVisual:
		return Capabilities{FrameTargeting: true}
	case ClassicEditorText:
		return Capabilities{DirectTyping: true}
	default:
		return Capabilities{}
	}
}

// EditorStrategy applies content to one kind of editing surface. A strategy
// is resolved once per navigation and reused for every field of the request.
type EditorStrategy interface {
	Context() EditorContext

	// Marker is the selector whose presence identifies the surface
	Marker() string

	ApplyTitle(ctx context.Context, title string) error
	ApplyContent(ctx context.Context, text string) error
	ReadContent(ctx context.Context) (string, error)
	ApplyField(ctx context.Context, d FieldDescriptor) FieldResult
	Publish(ctx context.Context) error
}

// Selectors used by the editing surfaces.
const (
	blockMarker          = ".block-editor-block-list__layout"
	blockInserterToggle  = "button.editor-document-tools__inserter-toggle, button.edit-post-header-toolbar__inserter-toggle"
	blockParagraphItem   = "button.editor-block-list-item-paragraph"
	blockParagraph       = ".block-editor-block-list__layout [data-type=\"core/paragraph\"]"
	blockTitle           = ".editor-post-title__input, h1.wp-block-post-title"
	blockPublishToggle   = "button.editor-post-publish-panel__toggle"
	blockPublishConfirm  = ".editor-post-publish-panel__header-publish-button button"
	blockPublishedMarker = ".post-publish-panel__postpublish, .components-snackbar"

	// blockResetScript empties the post so the new paragraph is its only block
	blockResetScript = `() => {
	const store = window.wp && window.wp.data && window.wp.data.dispatch('core/block-editor');
	if (!store) return false;
	store.resetBlocks([]);
	return true;
}`

	classicTextMarker   = "#wp-content-wrap.html-active textarea#content"
	classicVisualMarker = "#wp-content-wrap.tmce-active iframe#content_ifr"
	classicTextArea     = "textarea#content"
	classicFrame        = "iframe#content_ifr"
	classicFrameBody    = "body#tinymce"
	classicTitle        = "input#title"
	classicPublish      = "input#publish"
	classicPublished    = "#message.updated, .notice-success"
)

// editorBase carries what every strategy shares.
type editorBase struct {
	page     Page
	fields   *FieldEngine
	timeouts Timeouts
	logger   *logging.Logger
}

func (b editorBase) ApplyField(ctx context.Context, d FieldDescriptor) FieldResult {
	return b.fields.ApplyOne(ctx, d)
}

func (b editorBase) action() float64 {
	return ms(b.timeouts.Action)
}

// click clicks selector and waits for any of await to appear.
func (b editorBase) click(ctx context.Context, op, selector string, await string) error {
	if _, err := WaitForAny(ctx, b.page, []string{selector}, DefaultWaitPolicy(b.timeouts.Action)); err != nil {
		return waitError(KindElementNotFound, op, err, "%s not found", selector)
	}
	if err := b.page.Click(selector, b.action()); err != nil {
		return actionError(op, selector, err)
	}
	if await == "" {
		return nil
	}
	if _, err := WaitForAny(ctx, b.page, []string{await}, DefaultWaitPolicy(b.timeouts.Action)); err != nil {
		return waitError(KindActionTimeout, op, err, "%s did not appear after clicking %s", await, selector)
	}
	return nil
}

func verifyContent(op, got, want string) error {
	if normalizeText(got) != normalizeText(want) {
		return newError(KindVerification, op, nil, "editor holds %q, wanted %q", got, want)
	}
	return nil
}

// BlockEditorStrategy drives the block editor: existing blocks are dropped and
// content goes into a freshly inserted paragraph block.
type BlockEditorStrategy struct {
	editorBase
}

func (s *BlockEditorStrategy) Context() EditorContext { return BlockEditor }
func (s *BlockEditorStrategy) Marker() string         { return blockMarker }

func (s *BlockEditorStrategy) ApplyTitle(ctx context.Context, title string) error {
	res := s.fields.ApplyOne(ctx, FieldDescriptor{Name: "title", Selector: blockTitle, Type: FieldText, Value: title})
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (s *BlockEditorStrategy) ApplyContent(ctx context.Context, text string) error {
	if err := s.clearBlocks(); err != nil {
		return err
	}
	if err := s.click(ctx, "insert-block", blockInserterToggle, blockParagraphItem); err != nil {
		return err
	}
	if err := s.click(ctx, "insert-block", blockParagraphItem, blockParagraph); err != nil {
		return err
	}
	if err := s.page.KeyboardType(text, s.action()); err != nil {
		return actionError("type", blockParagraph, err)
	}

	got, err := s.ReadContent(ctx)
	if err != nil {
		return err
	}
	return verifyContent("block-content", got, text)
}

func (s *BlockEditorStrategy) clearBlocks() error {
	res, err := s.page.Evaluate(blockResetScript, nil)
	if err != nil {
		return actionError("clear-blocks", blockMarker, err)
	}
	if done, _ := res.(bool); !done {
		return newError(KindInteraction, "clear-blocks", nil, "block editor store is not available")
	}
	if n, err := s.page.Count(blockParagraph); err == nil && n > 0 {
		return newError(KindVerification, "clear-blocks", nil, "%d paragraph blocks left after reset", n)
	}
	return nil
}

func (s *BlockEditorStrategy) ReadContent(ctx context.Context) (string, error) {
	parts, err := s.page.AllText(blockParagraph)
	if err != nil {
		return "", actionError("read", blockParagraph, err)
	}
	return strings.Join(parts, "\n"), nil
}

func (s *BlockEditorStrategy) Publish(ctx context.Context) error {
	if err := s.click(ctx, "publish", blockPublishToggle, blockPublishConfirm); err != nil {
		return err
	}
	return s.click(ctx, "publish", blockPublishConfirm, blockPublishedMarker)
}

// ClassicTextStrategy drives the classic editor's raw markup textarea.
type ClassicTextStrategy struct {
	editorBase
}

func (s *ClassicTextStrategy) Context() EditorContext { return ClassicEditorText }
func (s *ClassicTextStrategy) Marker() string         { return classicTextMarker }

func (s *ClassicTextStrategy) ApplyTitle(ctx context.Context, title string) error {
	return classicTitleField(ctx, s.fields, title)
}

func (s *ClassicTextStrategy) ApplyContent(ctx context.Context, text string) error {
	res := s.fields.ApplyOne(ctx, FieldDescriptor{Name: "content", Selector: classicTextArea, Type: FieldText, Value: text})
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (s *ClassicTextStrategy) ReadContent(ctx context.Context) (string, error) {
	raw, err := s.page.InputValue(classicTextArea, s.action())
	if err != nil {
		return "", actionError("read", classicTextArea, err)
	}
	return HTMLToText(raw), nil
}

func (s *ClassicTextStrategy) Publish(ctx context.Context) error {
	return s.click(ctx, "publish", classicPublish, classicPublished)
}

// ClassicVisualStrategy drives the rich-text editor embedded in a frame.
type ClassicVisualStrategy struct {
	editorBase
}

func (s *ClassicVisualStrategy) Context() EditorContext { return ClassicEditorVisual }
func (s *ClassicVisualStrategy) Marker() string         { return classicVisualMarker }

func (s *ClassicVisualStrategy) ApplyTitle(ctx context.Context, title string) error {
	return classicTitleField(ctx, s.fields, title)
}

func (s *ClassicVisualStrategy) ApplyContent(ctx context.Context, text string) error {
	if err := s.page.FrameFill(classicFrame, classicFrameBody, text, s.action()); err != nil {
		return actionError("frame-fill", classicFrame+" "+classicFrameBody, err)
	}
	got, err := s.ReadContent(ctx)
	if err != nil {
		return err
	}
	return verifyContent("visual-content", got, text)
}

func (s *ClassicVisualStrategy) ReadContent(ctx context.Context) (string, error) {
	raw, err := s.page.FrameHTML(classicFrame, classicFrameBody, s.action())
	if err != nil {
		return "", actionError("read", classicFrame+" "+classicFrameBody, err)
	}
	return HTMLToText(raw), nil
}

func (s *ClassicVisualStrategy) Publish(ctx context.Context) error {
	return s.click(ctx, "publish", classicPublish, classicPublished)
}

func classicTitleField(ctx context.Context, fields *FieldEngine, title string) error {
	res := fields.ApplyOne(ctx, FieldDescriptor{Name: "title", Selector: classicTitle, Type: FieldText, Value: title})
	if res.Error != nil {
		return res.Error
	}
	return nil
}

// ResolveEditor classifies the editing surface on the current page. Surfaces
// are probed in a fixed order (block, classic text, classic visual), so the
// same DOM always yields the same strategy. When none appears in time it
// fails with KindEditorDetectionTimeout rather than guessing.
func ResolveEditor(ctx context.Context, page Page, timeouts Timeouts, logger *logging.Logger) (EditorStrategy, error) {
	timeouts = timeouts.withDefaults()
	if logger == nil {
		logger = logging.Discard()
	}
	base := editorBase{
		page:     page,
		fields:   NewFieldEngine(page, timeouts, logger),
		timeouts: timeouts,
		logger:   logger,
	}
	candidates := []EditorStrategy{
		&BlockEditorStrategy{base},
		&ClassicTextStrategy{base},
		&ClassicVisualStrategy{base},
	}

	markers := make([]string, len(candidates))
	for i, c := range candidates {
		markers[i] = c.Marker()
	}

	start := time.Now()
	idx, err := WaitForAny(ctx, page, markers, DefaultWaitPolicy(timeouts.EditorDetection))
	if err != nil {
		return nil, waitError(KindEditorDetectionTimeout, "resolve-editor", err, "no editing surface detected within %s", timeouts.EditorDetection)
	}

	strategy := candidates[idx]
	logger.Infof("editor resolved: %s (after %s)", strategy.Context(), time.Since(start).Round(time.Millisecond))
	return strategy, nil
}
