// Package llm turns a short conversation into one completion through a
// configured language-model backend.
package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/starford/amber/internal/apperr"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAICompatible = "openai-compatible"
	ProviderOpenAI           = "openai"
	ProviderOllama           = "ollama"
	ProviderGemini           = "gemini"
)

// Roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Provider completes a conversation. Implementations do not retry.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider  string
	Model     string
	APIBase   string
	APIKeyEnv string
	Timeout   time.Duration
}

// New builds the provider named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAICompatible, ProviderOpenAI:
		return NewOpenAICompatible(cfg), nil
	case ProviderOllama:
		p := NewOpenAICompatible(cfg)
		p.keyOptional = true
		return p, nil
	case ProviderGemini:
		return NewGemini(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", apperr.ErrConfig, cfg.Provider)
	}
}

// apiKey reads the key from the named environment variable at call time, so
// a key exported after start-up is picked up without a restart.
func apiKey(envName string) (string, error) {
	key, ok := os.LookupEnv(envName)
	if !ok || key == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", apperr.ErrProvider, envName)
	}
	return key, nil
}
