// Package llm holds the text-completion engines the analyzer talks to.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrEmptyAPIKey   = errors.New("llm: api key is empty")
	ErrUnknownEngine   = errors.New("llm: unknown engine")
)

// Prompt is one system+user exchange.
type Prompt struct {
	System string
	User   string
}

type Engine interface {
	Name() string
	GetModel() string
	Complete(ctx context.Context, p Prompt) (string, error)
	// WithModel returns a copy of the engine bound to another model.
	WithModel(model string) Engine
}

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Provider, e.Code, e.Body)
}

// Engines resolves an llm_name from a request to a configured engine.
type Engines struct {
	Gemini  Engine
	OpenAI  Engine
	Default string
}

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = e.Default
	}
	var eng Engine
	switch name {
	case "gemini":
		eng = e.Gemini
	case "gpt", "openai":
		eng = e.OpenAI
	default:
		return nil, fmt.Errorf("%w %q; use 'gemini' or 'gpt'", ErrUnknownEngine, llmName)
	}
	if eng == nil {
		return nil, fmt.Errorf("%w %q: not configured", ErrUnknownEngine, name)
	}
	return eng, nil
}

// Available lists the configured engine names.
func (e *Engines) Available() []string {
	var out []string
	if e.Gemini != nil {
		out = append(out, e.Gemini.Name())
	}
	if e.OpenAI != nil {
		out = append(out, e.OpenAI.Name())
	}
	return out
}

// Manager keeps a per-chat engine choice on top of a default.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}

func (m *Manager) Reset(chatID int64) {
	m.m.Delete(chatID)
}
