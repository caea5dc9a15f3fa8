package llm

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/starford/amber/internal/apperr"
)

// Gemini uses Google's Gemini API through the official SDK. The client is
// created lazily on the first call, once the API key is known.
type Gemini struct {
	model  string
	keyEnv string

	mu     sync.Mutex
	client *genai.Client
	key    string
}

// NewGemini creates a Gemini provider. cfg.APIBase is not used; the SDK
// resolves its own endpoint.
func NewGemini(cfg Config) *Gemini {
	return &Gemini{model: cfg.Model, keyEnv: cfg.APIKeyEnv}
}

func (g *Gemini) ensureClient(ctx context.Context) (*genai.Client, error) {
	key, err := apiKey(g.keyEnv)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil && g.key == key {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  key,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %w", apperr.ErrProvider, err)
	}
	g.client, g.key = client, key
	return client, nil
}

// Complete implements Provider.
func (g *Gemini) Complete(ctx context.Context, messages []Message) (string, error) {
	contents, system := convertMessages(messages)
	if len(contents) == 0 {
		return "", fmt.Errorf("%w: no user messages", apperr.ErrProvider)
	}

	client, err := g.ensureClient(ctx)
	if err != nil {
		return "", err
	}

	temp := float32(temperature)
	config := &genai.GenerateContentConfig{
		Temperature:       &temp,
		SystemInstruction: system,
	}
	result, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", apperr.ErrProvider, err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("%w: gemini returned no text", apperr.ErrProvider)
	}
	return text, nil
}

// convertMessages maps the conversation onto Gemini's content model: system
// turns are joined into the system instruction and assistant becomes "model".
func convertMessages(messages []Message) ([]*genai.Content, *genai.Content) {
	var (
		contents []*genai.Content
		system   *genai.Content
	)
	for _, m := range messages {
		role := m.Role
		switch role {
		case RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.NewPartFromText(m.Content))
			continue
		case RoleAssistant:
			role = "model"
		default:
			role = RoleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}
	return contents, system
}
