package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// errNoMatch is returned by WaitForAny when no selector matched in time.
var errNoMatch = errors.New("no selector matched")

// WaitPolicy bounds WaitForAny polling.
type WaitPolicy struct {
	// Timeout is the total wait budget
	Timeout time.Duration

	// Interval is the first pause between probes; it grows by Backoff up to MaxInterval
	Interval    time.Duration
	MaxInterval time.Duration
	Backoff     float64
}

// DefaultWaitPolicy returns a policy with the given budget and the standard
// 50ms→500ms backoff.
func DefaultWaitPolicy(timeout time.Duration) WaitPolicy {
	return WaitPolicy{
		Timeout:     timeout,
		Interval:    50 * time.Millisecond,
		MaxInterval: 500 * time.Millisecond,
		Backoff:     1.5,
	}
}

// MaxAttempts is the upper bound on probes this policy performs.
func (p WaitPolicy) MaxAttempts() int {
	p = p.normalized()
	attempts := 1
	var elapsed time.Duration
	interval := p.Interval
	for elapsed < p.Timeout {
		elapsed += interval
		attempts++
		interval = p.next(interval)
	}
	return attempts
}

func (p WaitPolicy) normalized() WaitPolicy {
	if p.Timeout <= 0 {
		p.Timeout = time.Second
	}
	if p.Interval <= 0 {
		p.Interval = 50 * time.Millisecond
	}
	if p.MaxInterval < p.Interval {
		p.MaxInterval = p.Interval
	}
	if p.Backoff < 1 {
		p.Backoff = 1
	}
	return p
}

func (p WaitPolicy) next(interval time.Duration) time.Duration {
	n := time.Duration(float64(interval) * p.Backoff)
	if n > p.MaxInterval {
		return p.MaxInterval
	}
	return n
}

// WaitForAny polls the page until one of the selectors matches and returns
// its index. Selectors are probed in order on every round, so when several
// match at once the earliest one wins. The wait ends with errNoMatch (wrapped
// with ErrDeadlineExceeded) once the policy's budget runs out, or with
// ctx.Err() when ctx is done first.
func WaitForAny(ctx context.Context, page Page, selectors []string, policy WaitPolicy) (int, error) {
	if len(selectors) == 0 {
		return -1, fmt.Errorf("wait: no selectors given")
	}
	policy = policy.normalized()

	deadline := time.Now().Add(policy.Timeout)
	interval := policy.Interval

	for {
		for i, sel := range selectors {
			n, err := page.Count(sel)
			if err != nil {
				// Probing during a navigation can race the old document; treat as absent
				continue
			}
			if n > 0 {
				return i, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return -1, fmt.Errorf("%w: %w after %s waiting for [%s]",
				ErrDeadlineExceeded, errNoMatch, policy.Timeout, strings.Join(selectors, " | "))
		}

		pause := interval
		if pause > remaining {
			pause = remaining
		}
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return -1, fmt.Errorf("wait for [%s]: %w", strings.Join(selectors, " | "), ctx.Err())
		case <-timer.C:
		}
		interval = policy.next(interval)
	}
}
