// Package prompt assembles the equity-analysis prompts sent to the model.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"equity-lens/api/internal/llm"
)

// Version is part of the cache key; bump it when the default prompts change.
const Version = "analyze-v3"

// OverrideFile is looked up inside the configured prompt directory.
const OverrideFile = "prompts.yaml"

// Input is what the user prompt is rendered from.
type Input struct {
	AssignmentText string
	GradeLevel     string
	Subject        string
	StudentContext string
	IncludeRewrite bool
}

// Builder renders system and user prompts from templates.
type Builder struct {
	version string
	system  *template.Template
	user    *template.Template
}

type overrides struct {
	Version string `yaml:"version"`
	System  string `yaml:"system"`
	User    string `yaml:"user"`
}

// NewBuilder uses the embedded prompts, replaced key by key by
// <dir>/prompts.yaml when that file exists.
func NewBuilder(dir string) (*Builder, error) {
	ov := overrides{Version: Version, System: DefaultSystem, User: DefaultUser}
	if dir = strings.TrimSpace(dir); dir != "" {
		p := filepath.Join(dir, OverrideFile)
		b, err := os.ReadFile(p)
		switch {
		case err == nil:
			var fromFile overrides
			if err := yaml.Unmarshal(b, &fromFile); err != nil {
				return nil, fmt.Errorf("bad prompt file %s: %w", p, err)
			}
			if s := strings.TrimSpace(fromFile.System); s != "" {
				ov.System = s
			}
			if s := strings.TrimSpace(fromFile.User); s != "" {
				ov.User = s
			}
			if s := strings.TrimSpace(fromFile.Version); s != "" {
				ov.Version = s
			} else {
				ov.Version = Version + "+file"
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read prompt file %s: %w", p, err)
		}
	}

	sys, err := template.New("system").Parse(ov.System)
	if err != nil {
		return nil, fmt.Errorf("system prompt: %w", err)
	}
	usr, err := template.New("user").Parse(ov.User)
	if err != nil {
		return nil, fmt.Errorf("user prompt: %w", err)
	}
	return &Builder{version: ov.Version, system: sys, user: usr}, nil
}

func (b *Builder) Version() string { return b.version }

func (b *Builder) Build(in Input) (llm.Prompt, error) {
	in.AssignmentText = strings.TrimSpace(in.AssignmentText)
	var sys, usr bytes.Buffer
	if err := b.system.Execute(&sys, in); err != nil {
		return llm.Prompt{}, fmt.Errorf("render system prompt: %w", err)
	}
	if err := b.user.Execute(&usr, in); err != nil {
		return llm.Prompt{}, fmt.Errorf("render user prompt: %w", err)
	}
	return llm.Prompt{
		System: strings.TrimSpace(sys.String()),
		User:   strings.TrimSpace(usr.String()),
	}, nil
}
