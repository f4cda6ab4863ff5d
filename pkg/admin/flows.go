// Package admin builds engine requests for common WordPress admin tasks.
//
// Builders only describe screens, fields and clicks. All browser work happens
// in browser.Engine, so every flow here can be tested without a browser.
package admin

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/wpdriver/pkg/browser"
)

// Markers shared by the flows.
const (
	settingsSavedMarker = "#setting-error-settings_updated"
	adminNoticeMarker   = "#message.updated"
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	postTypePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)
	screenPattern   = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// UpdateSettings sets fields on an options screen and saves it. Screen is
// the options page name ("general", "reading") or its file name
// ("options-reading.php").
func UpdateSettings(screen string, fields []browser.FieldDescriptor) (browser.Request, error) {
	path, err := settingsPath(screen)
	if err != nil {
		return browser.Request{}, err
	}
	if len(fields) == 0 {
		return browser.Request{}, fmt.Errorf("at least one field is required")
	}
	for i, f := range fields {
		if f.Selector == "" {
			return browser.Request{}, fmt.Errorf("field %d: selector is required", i)
		}
	}

	return browser.Request{
		Entity: "settings-" + strings.TrimSuffix(strings.TrimPrefix(path, "options-"), ".php"),
		Target: browser.NavigationTarget{
			Path:    path,
			Markers: []string{`form[action="options.php"]`},
		},
		Fields: fields,
		Actions: []browser.Action{{
			Name:     "save settings",
			Selector: "#submit",
			Await:    []string{settingsSavedMarker},
		}},
	}, nil
}

func settingsPath(screen string) (string, error) {
	screen = strings.TrimSpace(screen)
	if screen == "" {
		return "", fmt.Errorf("settings screen is required")
	}
	if strings.HasSuffix(screen, ".php") {
		if !strings.HasPrefix(screen, "options") {
			return "", fmt.Errorf("invalid settings screen: %s", screen)
		}
		return screen, nil
	}
	if !screenPattern.MatchString(screen) {
		return "", fmt.Errorf("invalid settings screen: %s", screen)
	}
	return "options-" + screen + ".php", nil
}

// PublishContent creates a post of postType and publishes it through
// whichever editor the site serves.
func PublishContent(postType, title, body string) (browser.Request, error) {
	if postType == "" {
		postType = "post"
	}
	if !postTypePattern.MatchString(postType) {
		return browser.Request{}, fmt.Errorf("invalid post type: %s", postType)
	}
	if strings.TrimSpace(title) == "" {
		return browser.Request{}, fmt.Errorf("title is required")
	}

	path := "post-new.php"
	if postType != "post" {
		path += "?post_type=" + postType
	}

	return browser.Request{
		Entity:  "publish-" + postType,
		Target:  browser.NavigationTarget{Path: path},
		Title:   &title,
		Content: &body,
		Publish: true,
	}, nil
}

// ActivatePlugin activates an installed plugin. It is a no-op when the
// plugin is already active.
func ActivatePlugin(slug string) (browser.Request, error) {
	return pluginRequest(slug, "activate", "active")
}

// DeactivatePlugin deactivates a plugin. It is a no-op when the plugin is
// already inactive.
func DeactivatePlugin(slug string) (browser.Request, error) {
	return pluginRequest(slug, "deactivate", "inactive")
}

func pluginRequest(slug, verb, state string) (browser.Request, error) {
	if !slugPattern.MatchString(slug) {
		return browser.Request{}, fmt.Errorf("invalid plugin slug: %q", slug)
	}

	row := fmt.Sprintf(`tr[data-slug="%s"]`, slug)
	done := fmt.Sprintf(`tr.%s[data-slug="%s"]`, state, slug)

	return browser.Request{
		Entity: fmt.Sprintf("plugin-%s-%s", verb, slug),
		Target: browser.NavigationTarget{
			Path:    "plugins.php",
			Markers: []string{row},
		},
		Actions: []browser.Action{{
			Name:          fmt.Sprintf("%s %s", verb, slug),
			Selector:      fmt.Sprintf("%s .%s a", row, verb),
			SkipIfPresent: done,
			Await:         []string{done},
		}},
	}, nil
}

// ActivateTheme switches the active theme.
func ActivateTheme(slug string) (browser.Request, error) {
	if !slugPattern.MatchString(slug) {
		return browser.Request{}, fmt.Errorf("invalid theme slug: %q", slug)
	}

	theme := fmt.Sprintf(`.theme[data-slug="%s"]`, slug)
	active := fmt.Sprintf(`.theme.active[data-slug="%s"]`, slug)

	return browser.Request{
		Entity: "theme-activate-" + slug,
		Target: browser.NavigationTarget{
			Path:    "themes.php",
			Markers: []string{theme},
		},
		Actions: []browser.Action{{
			Name:          "activate " + slug,
			Selector:      theme + " .activate",
			SkipIfPresent: active,
			Await:         []string{active, adminNoticeMarker},
		}},
	}, nil
}

// AddPagesToMenu ticks pages in the menu editor's page box, adds them to
// menu menuID and saves the menu.
func AddPagesToMenu(menuID int, pageIDs []int) (browser.Request, error) {
	if menuID <= 0 {
		return browser.Request{}, fmt.Errorf("invalid menu id: %d", menuID)
	}
	if len(pageIDs) == 0 {
		return browser.Request{}, fmt.Errorf("at least one page id is required")
	}

	fields := make([]browser.FieldDescriptor, 0, len(pageIDs))
	for _, id := range pageIDs {
		if id <= 0 {
			return browser.Request{}, fmt.Errorf("invalid page id: %d", id)
		}
		f := browser.BoolField(fmt.Sprintf(`#posttype-page input.menu-item-checkbox[value="%d"]`, id), true)
		f.Name = fmt.Sprintf("page %d", id)
		fields = append(fields, f)
	}

	return browser.Request{
		Entity: fmt.Sprintf("menu-%d", menuID),
		Target: browser.NavigationTarget{
			Path:    fmt.Sprintf("nav-menus.php?action=edit&menu=%d", menuID),
			Markers: []string{"#menu-to-edit"},
		},
		Fields: fields,
		Actions: []browser.Action{
			{
				Name:     "add to menu",
				Selector: "#submit-posttype-page",
				Await:    []string{"#menu-to-edit .menu-item.pending"},
			},
			{
				Name:     "save menu",
				Selector: "#save_menu_footer",
				Await:    []string{adminNoticeMarker},
			},
		},
	}, nil
}
