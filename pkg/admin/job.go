package admin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/wpdriver/pkg/browser"
)

// Kind names a job type in a job file.
type Kind string

const (
	KindUpdateSettings   Kind = "update_settings"
	KindPublishContent   Kind = "publish_content"
	KindActivatePlugin   Kind = "activate_plugin"
	KindDeactivatePlugin Kind = "deactivate_plugin"
	KindActivateTheme    Kind = "activate_theme"
	KindAddPagesToMenu   Kind = "add_pages_to_menu"

	// KindRequest passes a hand-written engine request through as is
	KindRequest Kind = "request"
)

// Job is one unit of work read from a YAML job file.
//
//	name: enable-registration
//	kind: update_settings
//	screen: general
//	fields:
//	  - selector: "#users_can_register"
//	    type: boolean
//	    value: "true"
type Job struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// update_settings
	Screen string                    `yaml:"screen,omitempty"`
	Fields []browser.FieldDescriptor `yaml:"fields,omitempty"`

	// publish_content
	PostType string `yaml:"post_type,omitempty"`
	Title    string `yaml:"title,omitempty"`
	Body     string `yaml:"body,omitempty"`

	// activate_plugin, deactivate_plugin, activate_theme
	Slug string `yaml:"slug,omitempty"`

	// add_pages_to_menu
	MenuID  int   `yaml:"menu_id,omitempty"`
	PageIDs []int `yaml:"page_ids,omitempty"`

	// request
	Request *browser.Request `yaml:"request,omitempty"`
}

// LoadJob reads and parses a job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	return ParseJob(data)
}

// ParseJob decodes a YAML job. Unknown keys are rejected.
func ParseJob(data []byte) (*Job, error) {
	var job Job
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("job file is empty")
		}
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	if job.Kind == "" {
		return nil, fmt.Errorf("job kind is required")
	}
	if job.Name == "" {
		job.Name = string(job.Kind)
	}
	return &job, nil
}

// BuildRequest turns the job into an engine request.
func (j *Job) BuildRequest() (browser.Request, error) {
	var (
		req browser.Request
		err error
	)

	switch j.Kind {
	case KindUpdateSettings:
		req, err = UpdateSettings(j.Screen, j.Fields)
	case KindPublishContent:
		req, err = PublishContent(j.PostType, j.Title, j.Body)
	case KindActivatePlugin:
		req, err = ActivatePlugin(j.Slug)
	case KindDeactivatePlugin:
		req, err = DeactivatePlugin(j.Slug)
	case KindActivateTheme:
		req, err = ActivateTheme(j.Slug)
	case KindAddPagesToMenu:
		req, err = AddPagesToMenu(j.MenuID, j.PageIDs)
	case KindRequest:
		if j.Request == nil {
			return browser.Request{}, fmt.Errorf("job %s: request is required", j.Name)
		}
		if j.Request.Target.Path == "" {
			return browser.Request{}, fmt.Errorf("job %s: request.target.path is required", j.Name)
		}
		req = *j.Request
	default:
		return browser.Request{}, fmt.Errorf("unknown job kind: %s", j.Kind)
	}
	if err != nil {
		return browser.Request{}, fmt.Errorf("job %s: %w", j.Name, err)
	}

	if req.Entity == "" {
		req.Entity = j.Name
	}
	return req, nil
}
