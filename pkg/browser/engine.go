package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/wpdriver/pkg/logging"
)

// Engine runs requests, each in its own session: login, navigate, resolve
// the editor when needed, mutate, capture and close.
type Engine struct {
	manager  *SessionManager
	recorder *Recorder
	logger   *logging.Logger
}

// NewEngine creates an engine. A nil recorder disables screenshots.
func NewEngine(manager *SessionManager, recorder *Recorder, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{manager: manager, recorder: recorder, logger: logger.With("engine")}
}

// Manager returns the engine's session manager.
func (e *Engine) Manager() *SessionManager {
	return e.manager
}

// Execute runs req and reports its outcome. Session-level failures produce a
// failed result; field failures produce a partial one. The session is closed
// before Execute returns in every case.
func (e *Engine) Execute(ctx context.Context, req Request) ActionResult {
	result := ActionResult{Entity: req.Entity, StartedAt: time.Now()}
	e.logger.Infof("executing %s (target %s)", req.Entity, req.Target.Path)

	var runErr error
	err := e.manager.WithSession(ctx, func(ctx context.Context, s *Session) error {
		runErr = e.run(ctx, s, req, &result)
		return runErr
	})
	if err != nil && runErr == nil {
		// The flow finished; only teardown complained
		e.logger.Warnf("%v", err)
		err = nil
	}

	if err != nil {
		result.Success = false
		result.Error = asError(err, KindInteraction, "execute")
		result.Message = result.Error.Error()
	} else {
		result.Success = result.Fields == nil || result.Fields.Failed == 0
		result.Message = summarize(req, result)
	}

	result.finish()
	if result.Success {
		e.logger.Infof("%s: %s (%s)", req.Entity, result.Message, result.Duration.Round(time.Millisecond))
	} else {
		e.logger.Errorf("%s: %s", req.Entity, result.Message)
	}
	return result
}

func (e *Engine) run(ctx context.Context, s *Session, req Request, result *ActionResult) (runErr error) {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	defer func() {
		result.Console = s.Console().Problems()
	}()
	defer func() {
		if runErr != nil {
			e.snapshot(s, req, result)
		}
	}()

	if err := s.NavigateTo(ctx, req.Target); err != nil {
		return err
	}
	page, err := s.openPage("execute")
	if err != nil {
		return err
	}
	result.URL = page.URL()

	mutated := false
	err = e.mutate(ctx, s, page, req, result, &mutated)

	if mutated && e.recorder != nil {
		path, capErr := e.recorder.Capture(page, req.Entity)
		if capErr != nil {
			e.logger.Warnf("audit screenshot failed: %v", capErr)
		} else {
			result.Screenshot = path
			e.logger.Infof("screenshot saved: %s", path)
		}
	}
	return err
}

// snapshot keeps the page markup of a failed flow for diagnosis.
func (e *Engine) snapshot(s *Session, req Request, result *ActionResult) {
	page := s.Page()
	if page == nil || e.recorder == nil {
		return
	}
	path, err := e.recorder.CaptureDOM(page, req.Entity)
	if err != nil {
		e.logger.Debugf("DOM snapshot skipped: %v", err)
		return
	}
	result.DOMSnapshot = path
	e.logger.Infof("DOM snapshot saved: %s", path)
}

func (e *Engine) mutate(ctx context.Context, s *Session, page Page, req Request, result *ActionResult, mutated *bool) error {
	timeouts := s.cfg.Timeouts

	var strategy EditorStrategy
	if req.NeedsEditor() {
		var err error
		strategy, err = ResolveEditor(ctx, page, timeouts, s.logger)
		if err != nil {
			return err
		}
		result.Editor = strategy.Context()

		if req.Title != nil {
			*mutated = true
			if err := strategy.ApplyTitle(ctx, *req.Title); err != nil {
				return err
			}
		}
		if req.Content != nil {
			*mutated = true
			if err := strategy.ApplyContent(ctx, *req.Content); err != nil {
				return err
			}
		}
	}

	if len(req.Fields) > 0 {
		*mutated = true
		var batch BatchResult
		if strategy != nil {
			for _, d := range req.Fields {
				batch.add(strategy.ApplyField(ctx, d))
			}
		} else {
			batch = NewFieldEngine(page, timeouts, s.logger).Apply(ctx, req.Fields)
		}
		result.Fields = &batch
	}

	for _, a := range req.Actions {
		skipped, err := runAction(ctx, page, timeouts, a)
		if err != nil {
			*mutated = true
			return err
		}
		if skipped {
			s.logger.Infof("action %s skipped: already in place", a.Name)
			result.Skipped = append(result.Skipped, a.Name)
			continue
		}
		*mutated = true
	}

	if req.Publish {
		*mutated = true
		if err := strategy.Publish(ctx); err != nil {
			return err
		}
	}
	return nil
}

// runAction clicks a.Selector unless a.SkipIfPresent already matches, then
// waits for any of a.Await.
func runAction(ctx context.Context, page Page, timeouts Timeouts, a Action) (bool, error) {
	op := "action " + a.Name
	if a.SkipIfPresent != "" {
		if n, err := page.Count(a.SkipIfPresent); err == nil && n > 0 {
			return true, nil
		}
	}

	if _, err := WaitForAny(ctx, page, []string{a.Selector}, DefaultWaitPolicy(timeouts.Action)); err != nil {
		return false, waitError(KindElementNotFound, op, err, "%s not found", a.Selector)
	}
	if err := page.Click(a.Selector, ms(timeouts.Action)); err != nil {
		return false, actionError(op, a.Selector, err)
	}

	if len(a.Await) > 0 {
		if _, err := WaitForAny(ctx, page, a.Await, DefaultWaitPolicy(timeouts.Navigation)); err != nil {
			return false, waitError(KindActionTimeout, op, err, "no confirmation after clicking %s", a.Selector)
		}
	}
	return false, nil
}

func summarize(req Request, result ActionResult) string {
	if result.Fields != nil && result.Fields.Failed > 0 {
		return fmt.Sprintf("applied %d of %d fields", result.Fields.Applied, len(result.Fields.Fields))
	}
	switch {
	case req.Publish:
		return fmt.Sprintf("published via %s editor", result.Editor)
	case req.NeedsEditor():
		return fmt.Sprintf("content saved via %s editor", result.Editor)
	case len(req.Actions) > 0 && len(result.Skipped) == len(req.Actions) && len(req.Fields) == 0:
		return "already in desired state"
	case result.Fields != nil:
		return fmt.Sprintf("applied %d fields", result.Fields.Applied)
	case len(req.Actions) > 0:
		return "actions completed"
	default:
		return "reached " + req.Target.Path
	}
}
