// File: internal/llmclient/factory.go
package llmclient

import (
	"errors"

	"go.uber.org/zap"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
	"github.com/method-and-apparatus/open-jaws/internal/config"
)

// ErrNoCredential signals that no API key is configured. The classifier
// adapter treats it as "run without the probabilistic classifier".
var ErrNoCredential = errors.New("llmclient: no API key configured")

// NewClient builds the configured LLM client.
func NewClient(cfg config.ClassifierConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoCredential
	}
	return NewGeminiClient(cfg, logger)
}

// Factory returns a lazy constructor suitable for qbranch.New.
func Factory(cfg config.ClassifierConfig, logger *zap.Logger) func() (schemas.LLMClient, error) {
	return func() (schemas.LLMClient, error) {
		return NewClient(cfg, logger)
	}
}
