package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFieldEngine(p Page) *FieldEngine {
	return NewFieldEngine(p, fastTimeouts(), nil)
}

func TestApplyTextReplacesExistingValue(t *testing.T) {
	tests := []struct {
		name        string
		prefilled   string
		wantChanged bool
	}{
		{"empty field", "", true},
		{"partial prefix", "adm", true},
		{"other value", "administrator", true},
		{"already correct", "admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pageWith(map[string]*fakeElement{
				"#user_login": {tag: "input", typ: "text", value: tt.prefilled},
			})

			res := newTestFieldEngine(p).ApplyOne(context.Background(), TextField("#user_login", "admin"))

			require.Nil(t, res.Error)
			assert.True(t, res.Applied)
			assert.Equal(t, tt.wantChanged, res.Changed)
			assert.Equal(t, "admin", res.Observed)
			assert.Equal(t, "admin", p.element("#user_login").value)
		})
	}
}

func TestApplyTextClearsToEmpty(t *testing.T) {
	p := pageWith(map[string]*fakeElement{
		"#blogdescription": {tag: "input", typ: "text", value: "Just another site"},
	})

	res := newTestFieldEngine(p).ApplyOne(context.Background(), TextField("#blogdescription", ""))
	require.Nil(t, res.Error)
	assert.True(t, res.Applied)
	assert.Equal(t, "", p.element("#blogdescription").value)
}

func TestApplyTextContentEditable(t *testing.T) {
	p := pageWith(map[string]*fakeElement{
		"h1.wp-block-post-title": {tag: "h1", editable: true, value: "Draft"},
	})

	res := newTestFieldEngine(p).ApplyOne(context.Background(), TextField("h1.wp-block-post-title", "Launch notes"))
	require.Nil(t, res.Error)
	assert.Equal(t, "Launch notes", p.element("h1.wp-block-post-title").value)
}

func TestApplyToggleIsIdempotent(t *testing.T) {
	tests := []struct {
		name       string
		checked    bool
		want       bool
		wantClicks int
	}{
		{"already checked", true, true, 0},
		{"already unchecked", false, false, 0},
		{"check", false, true, 1},
		{"uncheck", true, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pageWith(map[string]*fakeElement{
				"#users_can_register": {tag: "input", typ: "checkbox", checked: tt.checked},
			})

			res := newTestFieldEngine(p).ApplyOne(context.Background(), BoolField("#users_can_register", tt.want))

			require.Nil(t, res.Error)
			assert.True(t, res.Applied)
			assert.Equal(t, tt.wantClicks, p.clickCount("#users_can_register"))
			assert.Equal(t, tt.wantClicks == 1, res.Changed)
			assert.Equal(t, tt.want, p.element("#users_can_register").checked)
		})
	}
}

func TestApplySelect(t *testing.T) {
	p := pageWith(map[string]*fakeElement{
		"#default_role": {tag: "select", value: "subscriber", options: []string{"subscriber", "author", "editor"}},
	})
	engine := newTestFieldEngine(p)

	res := engine.ApplyOne(context.Background(), EnumField("#default_role", "editor"))
	require.Nil(t, res.Error)
	assert.True(t, res.Changed)
	assert.Equal(t, "editor", p.element("#default_role").value)

	res = engine.ApplyOne(context.Background(), EnumField("#default_role", "editor"))
	require.Nil(t, res.Error)
	assert.False(t, res.Changed)
}

func TestApplySelectUnknownOption(t *testing.T) {
	p := pageWith(map[string]*fakeElement{
		"#default_role": {tag: "select", value: "subscriber", options: []string{"subscriber"}},
	})

	res := newTestFieldEngine(p).ApplyOne(context.Background(), EnumField("#default_role", "overlord"))
	require.NotNil(t, res.Error)
	assert.False(t, res.Applied)
	assert.Equal(t, KindActionTimeout, res.Error.Kind)
}

func TestApplyOneRejectsInvalidValues(t *testing.T) {
	p := pageWith(map[string]*fakeElement{
		"#posts_per_page": {tag: "input", typ: "number"},
	})
	engine := newTestFieldEngine(p)

	tests := []struct {
		name string
		d    FieldDescriptor
	}{
		{"not a number", FieldDescriptor{Selector: "#posts_per_page", Type: FieldNumber, Value: "ten"}},
		{"not a boolean", FieldDescriptor{Selector: "#posts_per_page", Type: FieldBoolean, Value: "yes please"}},
		{"unknown type", FieldDescriptor{Selector: "#posts_per_page", Type: "color", Value: "#fff"}},
		{"no selector", FieldDescriptor{Type: FieldText, Value: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.ApplyOne(context.Background(), tt.d)
			require.NotNil(t, res.Error)
			assert.Equal(t, KindInvalidValue, res.Error.Kind)
			assert.False(t, res.Applied)
		})
	}
}

func TestApplyOneUnsupportedElement(t *testing.T) {
	p := pageWith(map[string]*fakeElement{
		"#upload": {tag: "input", typ: "file"},
	})

	res := newTestFieldEngine(p).ApplyOne(context.Background(), TextField("#upload", "a.png"))
	require.NotNil(t, res.Error)
	assert.Equal(t, KindInteraction, res.Error.Kind)
}

func TestApplyOneRejectsTypeMismatch(t *testing.T) {
	newPage := func() *fakePage {
		return pageWith(map[string]*fakeElement{
			"#blogname":           {tag: "input", typ: "text", value: "Old Name"},
			"#users_can_register": {tag: "input", typ: "checkbox"},
			"#default_role":       {tag: "select", value: "subscriber", options: []string{"subscriber", "editor"}},
		})
	}

	tests := []struct {
		name string
		d    FieldDescriptor
	}{
		{"boolean on text input", BoolField("#blogname", true)},
		{"enum on text input", EnumField("#blogname", "editor")},
		{"text on checkbox", TextField("#users_can_register", "yes")},
		{"number on select", FieldDescriptor{Selector: "#default_role", Type: FieldNumber, Value: "3"}},
		{"boolean on select", BoolField("#default_role", false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPage()
			res := newTestFieldEngine(p).ApplyOne(context.Background(), tt.d)

			require.NotNil(t, res.Error)
			assert.Equal(t, KindInvalidValue, res.Error.Kind)
			assert.False(t, res.Applied)
			assert.False(t, res.Changed)

			assert.Equal(t, "Old Name", p.element("#blogname").value)
			assert.False(t, p.element("#users_can_register").checked)
			assert.Equal(t, "subscriber", p.element("#default_role").value)
			assert.Zero(t, p.clickCount(tt.d.Selector))
		})
	}
}

func TestApplyOneUndeclaredTypeFollowsElement(t *testing.T) {
	p := pageWith(map[string]*fakeElement{
		"#users_can_register": {tag: "input", typ: "checkbox"},
	})

	res := newTestFieldEngine(p).ApplyOne(context.Background(), FieldDescriptor{Selector: "#users_can_register", Value: "true"})
	require.Nil(t, res.Error)
	assert.True(t, res.Applied)
	assert.True(t, p.element("#users_can_register").checked)
}

func TestApplyBatchContinuesPastMissingField(t *testing.T) {
	p := pageWith(map[string]*fakeElement{
		"#blogname":           {tag: "input", typ: "text", value: "Old"},
		"#users_can_register": {tag: "input", typ: "checkbox"},
	})

	fields := []FieldDescriptor{
		TextField("#blogname", "New Name"),
		TextField("#does-not-exist", "value"),
		BoolField("#users_can_register", true),
	}

	batch := newTestFieldEngine(p).Apply(context.Background(), fields)

	assert.Equal(t, 2, batch.Applied)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 1, batch.FailedWith(KindElementNotFound))
	require.Len(t, batch.Fields, 3)

	assert.True(t, batch.Fields[0].Applied)
	assert.False(t, batch.Fields[1].Applied)
	assert.True(t, errors.Is(batch.Fields[1].Error, ErrElementNotFound))
	assert.True(t, batch.Fields[2].Applied)

	assert.Equal(t, "New Name", p.element("#blogname").value)
	assert.True(t, p.element("#users_can_register").checked)
	assert.Equal(t, []FieldDescriptor{fields[1]}, batch.Retryable())
}

func TestApplyBatchStopsMutatingAfterCancel(t *testing.T) {
	p := pageWith(map[string]*fakeElement{
		"#blogname": {tag: "input", typ: "text"},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := newTestFieldEngine(p).Apply(ctx, []FieldDescriptor{TextField("#blogname", "x")})
	assert.Equal(t, 0, batch.Applied)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 1, batch.FailedWith(KindCancelled))
	assert.Equal(t, "", p.element("#blogname").value)
}

func TestInteractionFor(t *testing.T) {
	tests := []struct {
		info ElementInfo
		want interaction
	}{
		{ElementInfo{Tag: "input", Type: "text"}, interactText},
		{ElementInfo{Tag: "INPUT", Type: ""}, interactText},
		{ElementInfo{Tag: "input", Type: "email"}, interactText},
		{ElementInfo{Tag: "textarea"}, interactText},
		{ElementInfo{Tag: "input", Type: "checkbox"}, interactToggle},
		{ElementInfo{Tag: "input", Type: "radio"}, interactToggle},
		{ElementInfo{Tag: "select"}, interactSelect},
		{ElementInfo{Tag: "div", ContentEditable: true}, interactText},
		{ElementInfo{Tag: "input", Type: "file"}, interactUnsupported},
		{ElementInfo{Tag: "div"}, interactUnsupported},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, interactionFor(tt.info), "%+v", tt.info)
	}
}
