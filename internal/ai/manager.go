package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EmbeddingResult carries a vector together with the dimension and model that
// produced it. Dimension is always len(Vector).
type EmbeddingResult struct {
	Vector    []float32
	Dimension int
	ModelName string
}

type ManagerConfig struct {
	Timeout       int
	MaxInputChars int
}

// Manager owns the prompt templates and per-call timeouts for the external
// AI collaborators.
type Manager struct {
	summarizer IGenerator
	embedder   IEmbedder
	cfg        ManagerConfig
}

func NewManager(summarizer IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{
		summarizer: summarizer,
		embedder:   embedder,
		cfg:        cfg,
	}
}

func (m *Manager) HasEmbedder() bool {
	return m != nil && m.embedder != nil
}

func (m *Manager) HasSummarizer() bool {
	return m != nil && m.summarizer != nil
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) (*EmbeddingResult, error) {
	if m.embedder == nil {
		return nil, ErrUnavailable
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	values, err := m.embedder.Embed(ctx, m.clip(text), taskType)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return &EmbeddingResult{
		Vector:    values,
		Dimension: len(values),
		ModelName: m.embedder.ModelName(),
	}, nil
}

func (m *Manager) Summarize(ctx context.Context, text string) (string, error) {
	if m.summarizer == nil {
		return "", ErrUnavailable
	}
	prompt := fmt.Sprintf(`You are a content summarization assistant.
Summarize the page content below into exactly 3 sentences.
- Capture the main topic and the key facts.
- Ignore navigation text, boilerplate and advertisements.
- Use the same language as the content.
- Output ONLY the summary text.

CONTENT:
%s`, m.clip(text))
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := m.summarizer.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(resp)
	if summary == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return summary, nil
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) clip(text string) string {
	text = strings.TrimSpace(text)
	max := m.cfg.MaxInputChars
	if max > 0 && len(text) > max {
		return text[:max]
	}
	return text
}
