package resolver

import (
	"fmt"
	"log"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/config"
)

// New builds the resolver selected by configuration
func New(cfg config.ResolverConfig) (Resolver, error) {
	switch cfg.Backend {
	case config.ResolverHTTP, "":
		if cfg.URL == "" {
			return nil, fmt.Errorf("resolver url is required for the http backend")
		}
		log.Printf(`{"level":"info","message":"Using HTTP intent resolver","url":%q}`, cfg.URL)
		return NewHTTPResolver(cfg.URL, cfg.Timeout), nil

	case config.ResolverAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		log.Printf(`{"level":"info","message":"Using Anthropic intent resolver","model":%q}`, cfg.Model)
		return NewLLMResolver(NewAnthropicChat(cfg.APIKey, cfg.Model, cfg.MaxOutputTokens)), nil

	case config.ResolverOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		log.Printf(`{"level":"info","message":"Using OpenAI-compatible intent resolver","model":%q,"base_url":%q}`, cfg.Model, cfg.BaseURL)
		return NewLLMResolver(NewOpenAIChat(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxOutputTokens)), nil

	default:
		return nil, fmt.Errorf("unknown resolver backend: %s (supported: http, anthropic, openai)", cfg.Backend)
	}
}
