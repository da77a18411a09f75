// Package llmutils is the generation utility package
package llmutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/llm"
	"github.com/webtechie/docschat/pkg/llm/provider/ollama"
	"github.com/webtechie/docschat/pkg/llm/provider/openai"
)

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Logger       *zap.Logger
}

func NewGenerator(o *NewGeneratorOpts) (llm.Generator, error) {
	switch o.ProviderType {
	case "", "ollama":
		return ollama.NewGenerator(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		}, o.Logger), nil
	case "openai":
		return openai.NewGenerator(openai.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			APIKey:  o.APIKey,
		}, o.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", o.ProviderType)
	}
}
