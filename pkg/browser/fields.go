package browser

import (
	"context"
	"strconv"
	"strings"

	"github.com/entrhq/wpdriver/pkg/logging"
)

// FieldResult is the outcome of one FieldDescriptor.
type FieldResult struct {
	Field FieldDescriptor `json:"field"`

	// Applied is true when the field ends in the requested state
	Applied bool `json:"applied"`

	// Changed is false when the field already had the requested state
	Changed bool `json:"changed"`

	// Observed is the value read back after mutation
	Observed string `json:"observed,omitempty"`

	Error *Error `json:"error,omitempty"`
}

// BatchResult aggregates the field results of one request.
type BatchResult struct {
	Fields  []FieldResult `json:"fields"`
	Applied int           `json:"applied"`
	Failed  int           `json:"failed"`
}

func (b *BatchResult) add(r FieldResult) {
	b.Fields = append(b.Fields, r)
	if r.Applied {
		b.Applied++
	} else {
		b.Failed++
	}
}

// Retryable returns the descriptors of failed fields, in request order.
func (b BatchResult) Retryable() []FieldDescriptor {
	var out []FieldDescriptor
	for _, r := range b.Fields {
		if !r.Applied {
			out = append(out, r.Field)
		}
	}
	return out
}

// FailedWith counts failures of a given kind.
func (b BatchResult) FailedWith(kind ErrorKind) int {
	n := 0
	for _, r := range b.Fields {
		if r.Error != nil && r.Error.Kind == kind {
			n++
		}
	}
	return n
}

// interaction is how an element is driven, decided from its declared type.
type interaction int

const (
	interactText interaction = iota
	interactToggle
	interactSelect
	interactUnsupported
)

func interactionFor(info ElementInfo) interaction {
	switch strings.ToLower(info.Tag) {
	case "select":
		return interactSelect
	case "textarea":
		return interactText
	case "input":
		switch strings.ToLower(info.Type) {
		case "checkbox", "radio":
			return interactToggle
		case "", "text", "number", "email", "url", "password", "search", "tel", "date", "time":
			return interactText
		}
		return interactUnsupported
	}
	if info.ContentEditable {
		return interactText
	}
	return interactUnsupported
}

// FieldEngine applies field descriptors to the current page. It is the only
// mutator of the page while Apply runs.
type FieldEngine struct {
	page     Page
	timeouts Timeouts
	logger   *logging.Logger
}

// NewFieldEngine creates an engine driving page.
func NewFieldEngine(page Page, timeouts Timeouts, logger *logging.Logger) *FieldEngine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FieldEngine{page: page, timeouts: timeouts.withDefaults(), logger: logger}
}

// Apply mutates every field in order. A failing field is recorded and the
// batch continues.
func (f *FieldEngine) Apply(ctx context.Context, fields []FieldDescriptor) BatchResult {
	var batch BatchResult
	for _, d := range fields {
		if ctx.Err() != nil {
			batch.add(FieldResult{Field: d, Error: waitError(KindActionTimeout, "field", ctx.Err(), "%s not attempted", d.Label())})
			continue
		}
		r := f.ApplyOne(ctx, d)
		if r.Applied {
			f.logger.Debugf("field %s applied (changed=%v)", d.Label(), r.Changed)
		} else {
			f.logger.Warnf("field %s failed: %v", d.Label(), r.Error)
		}
		batch.add(r)
	}
	f.logger.Infof("fields: %d applied, %d failed", batch.Applied, batch.Failed)
	return batch
}

// ApplyOne locates, mutates and verifies a single field.
func (f *FieldEngine) ApplyOne(ctx context.Context, d FieldDescriptor) FieldResult {
	res := FieldResult{Field: d}

	if d.Selector == "" {
		res.Error = newError(KindInvalidValue, "field", nil, "%s has no selector", d.Label())
		return res
	}
	if err := validateValue(d); err != nil {
		res.Error = err
		return res
	}

	if _, err := WaitForAny(ctx, f.page, []string{d.Selector}, DefaultWaitPolicy(f.timeouts.FieldLocate)); err != nil {
		res.Error = waitError(KindElementNotFound, "field", err, "%s not found", d.Selector)
		return res
	}

	action := ms(f.timeouts.Action)
	info, err := f.page.Describe(d.Selector, action)
	if err != nil {
		res.Error = actionError("describe", d.Selector, err)
		return res
	}

	how := interactionFor(info)
	if how != interactUnsupported && !accepts(d.Type, how) {
		res.Error = newError(KindInvalidValue, "field", nil, "%s is declared %s but %s is a <%s type=%q>", d.Label(), d.Type, d.Selector, info.Tag, info.Type)
		return res
	}

	switch how {
	case interactText:
		return f.applyText(d, info, action)
	case interactToggle:
		return f.applyToggle(d, action)
	case interactSelect:
		return f.applySelect(d, action)
	default:
		res.Error = newError(KindInteraction, "field", nil, "%s is a <%s type=%q>, which cannot hold a value", d.Selector, info.Tag, info.Type)
		return res
	}
}

// accepts reports whether a field of type t can drive an element handled by
// how. An undeclared type accepts any element.
func accepts(t FieldType, how interaction) bool {
	switch t {
	case FieldBoolean:
		return how == interactToggle
	case FieldEnum:
		return how == interactSelect
	case FieldText, FieldNumber:
		return how == interactText
	}
	return true
}

func validateValue(d FieldDescriptor) *Error {
	switch d.Type {
	case FieldNumber:
		if _, err := strconv.ParseFloat(strings.TrimSpace(d.Value), 64); err != nil {
			return newError(KindInvalidValue, "field", err, "%s: %q is not a number", d.Label(), d.Value)
		}
	case FieldBoolean:
		if _, err := strconv.ParseBool(d.Value); err != nil {
			return newError(KindInvalidValue, "field", err, "%s: %q is not a boolean", d.Label(), d.Value)
		}
	case FieldText, FieldEnum, "":
	default:
		return newError(KindInvalidValue, "field", nil, "%s: unknown field type %q", d.Label(), d.Type)
	}
	return nil
}

// applyText clears the element then types the value, so no characters of a
// previous value survive.
func (f *FieldEngine) applyText(d FieldDescriptor, info ElementInfo, action float64) FieldResult {
	res := FieldResult{Field: d}
	read := f.page.InputValue
	if info.ContentEditable {
		read = f.page.TextContent
	}

	current, err := read(d.Selector, action)
	if err == nil && current == d.Value {
		res.Applied = true
		res.Observed = current
		return res
	}

	if err := f.page.Clear(d.Selector, action); err != nil {
		res.Error = actionError("clear", d.Selector, err)
		return res
	}
	if d.Value != "" {
		if err := f.page.Type(d.Selector, d.Value, action); err != nil {
			res.Error = actionError("type", d.Selector, err)
			return res
		}
	}
	res.Changed = true

	observed, err := read(d.Selector, action)
	if err != nil {
		res.Error = actionError("read", d.Selector, err)
		return res
	}
	res.Observed = observed
	if observed != d.Value {
		res.Error = newError(KindVerification, "field", nil, "%s reads %q after typing %q", d.Selector, observed, d.Value)
		return res
	}
	res.Applied = true
	return res
}

// applyToggle clicks a checkbox or radio only when its state differs.
func (f *FieldEngine) applyToggle(d FieldDescriptor, action float64) FieldResult {
	res := FieldResult{Field: d}

	want, err := strconv.ParseBool(d.Value)
	if err != nil {
		res.Error = newError(KindInvalidValue, "field", err, "%s: %q is not a boolean", d.Label(), d.Value)
		return res
	}

	checked, err := f.page.IsChecked(d.Selector, action)
	if err != nil {
		res.Error = actionError("read", d.Selector, err)
		return res
	}
	if checked != want {
		if err := f.page.Click(d.Selector, action); err != nil {
			res.Error = actionError("click", d.Selector, err)
			return res
		}
		res.Changed = true

		checked, err = f.page.IsChecked(d.Selector, action)
		if err != nil {
			res.Error = actionError("read", d.Selector, err)
			return res
		}
	}

	res.Observed = strconv.FormatBool(checked)
	if checked != want {
		res.Error = newError(KindVerification, "field", nil, "%s is checked=%v, wanted %v", d.Selector, checked, want)
		return res
	}
	res.Applied = true
	return res
}

func (f *FieldEngine) applySelect(d FieldDescriptor, action float64) FieldResult {
	res := FieldResult{Field: d}

	current, err := f.page.InputValue(d.Selector, action)
	if err == nil && current == d.Value {
		res.Applied = true
		res.Observed = current
		return res
	}

	if err := f.page.SelectOption(d.Selector, d.Value, action); err != nil {
		res.Error = actionError("select", d.Selector, err)
		return res
	}
	res.Changed = true

	observed, err := f.page.InputValue(d.Selector, action)
	if err != nil {
		res.Error = actionError("read", d.Selector, err)
		return res
	}
	res.Observed = observed
	if observed != d.Value {
		res.Error = newError(KindVerification, "field", nil, "%s selected %q, wanted %q", d.Selector, observed, d.Value)
		return res
	}
	res.Applied = true
	return res
}
