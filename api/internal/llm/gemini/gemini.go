package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"equity-lens/api/internal/llm"
)

type Engine struct {
	APIKey string
	Model  string
	// Temperature for the analysis call; the default keeps scoring stable.
	Temperature float32

	log *zap.Logger
}

func New(apiKey, model string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		APIKey:      strings.TrimSpace(apiKey),
		Model:       strings.TrimSpace(model),
		Temperature: 0.2,
		log:         log,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) WithModel(model string) llm.Engine {
	cp := *e
	if m := strings.TrimSpace(model); m != "" {
		cp.Model = m
	}
	return &cp
}

// Complete sends the prompt and returns the first text part of the answer.
func (e *Engine) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("gemini: %w", llm.ErrEmptyAPIKey)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", fmt.Errorf("gemini: new client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(e.Temperature),
		ResponseMIMEType: "application/json",
	}
	if s := strings.TrimSpace(p.System); s != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(s)}}
	}

	return llm.Retry(ctx, func(ctx context.Context) (string, error) {
		resp, err := m.GenerateContent(ctx, genai.Text(p.User))
		if err != nil {
			e.log.Warn("generate content failed", zap.String("model", e.Model), zap.Error(err))
			return "", fmt.Errorf("gemini: %w", err)
		}
		txt := strings.TrimSpace(firstText(resp))
		if txt == "" {
			e.log.Warn("empty completion", zap.String("model", e.Model))
		}
		return txt, nil
	})
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
