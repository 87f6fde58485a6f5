// Package provider adapts code-generation providers behind a single
// interface: one text prompt in, one free-form text completion out. No
// structured tool-call contract is assumed; file edits are recovered later
// by text pattern matching.
//
// One adapter exists per provider, chosen by configuration. There is no
// runtime capability probing, and deliberately no retry or timeout policy
// on the call itself.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Completion temperature. Zero for reproducibility across runs.
const Temperature = 0.0

// Known provider names.
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
)

// ErrUnsupportedProvider is returned for provider names without an adapter.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// ErrMissingAPIKey is returned when no credential is configured. The
// experiment must refuse to start, not fail run by run.
var ErrMissingAPIKey = errors.New("missing API key")

// Client sends one prompt to a code-generation provider and returns the raw
// completion text.
type Client interface {
	// Name identifies the provider (e.g. "anthropic").
	Name() string
	// Model returns the resolved model identifier.
	Model() string
	// Complete performs one blocking completion call.
	Complete(ctx context.Context, promptText string) (string, error)
}

// Config selects and parameterizes a provider adapter.
type Config struct {
	Provider string
	Model    string // empty = provider default
	APIKey   string // empty = read from the provider's env var
	BaseURL  string // override for tests; empty = provider default
}

// envKeyVar maps a provider to the environment variable its credential is
// conventionally stored in.
func envKeyVar(providerName string) string {
	switch providerName {
	case Anthropic:
		return "ANTHROPIC_API_KEY"
	case OpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// ResolveAPIKey returns cfg.APIKey or falls back to the provider's env var.
func ResolveAPIKey(cfg Config) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	if v := envKeyVar(cfg.Provider); v != "" {
		if key := os.Getenv(v); key != "" {
			return key, nil
		}
		return "", fmt.Errorf("provider: %w: set %s or pass --api-key", ErrMissingAPIKey, v)
	}
	return "", fmt.Errorf("provider: %w", ErrMissingAPIKey)
}

// New builds the adapter selected by cfg.Provider.
func New(cfg Config, opts ...Option) (Client, error) {
	key, err := ResolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case Anthropic:
		return newAnthropicClient(key, cfg.Model, cfg.BaseURL, opts...)
	case OpenAI:
		return newOpenAIClient(key, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("provider: %w: %q (supported: %s, %s)",
			ErrUnsupportedProvider, cfg.Provider, Anthropic, OpenAI)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(providerName string) string {
	switch providerName {
	case Anthropic:
		return anthropicDefaultModel
	case OpenAI:
		return openaiDefaultModel
	default:
		return ""
	}
}
