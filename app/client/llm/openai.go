package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"recruitbot/app/config"

	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const maxCompletionTokens = 1000

type OpenAI struct {
	model       *openai.LLM
	temperature float64
	timeout     time.Duration
}

func NewOpenAI(cfg config.LLM) (*OpenAI, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.Token),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{
			Timeout: cfg.Timeout,
		}),
		openai.WithCallback(LogCallbackHandler{}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, oops.In("llm").Wrapf(err, "failed to create openai client")
	}

	return &OpenAI{
		model:       model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

func (c *OpenAI) Complete(ctx context.Context, prompt, system string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]llms.MessageContent, 0, 2)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(maxCompletionTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", oops.In("llm").Wrapf(err, "failed to create chat completion")
	}

	if len(resp.Choices) == 0 {
		return "", oops.In("llm").Errorf("no chat completion found")
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}
