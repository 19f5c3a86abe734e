// Package llm selects and wraps the text-generation provider used for deal
// analysis and the freeform lending Q&A surface.
package llm

import (
	"os"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/k2cf/dealdesk/internal/common"
	"github.com/k2cf/dealdesk/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// NewProvider returns the OpenAI-backed provider when OPENAI_API_KEY is set
// and the local echo stub otherwise. OPENAI_ENDPOINT overrides the base URL
// for gateway deployments.
func NewProvider() Provider {
	logger := common.Logger()
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Warn("llm: OPENAI_API_KEY not set, using local provider")
		return providers.NewLocalProvider()
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if endpoint := os.Getenv("OPENAI_ENDPOINT"); endpoint != "" {
		logger.Info("llm: using custom OpenAI endpoint", "endpoint", endpoint)
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	client := openai.NewClient(opts...)
	return providers.NewOpenAIProvider(client)
}
