package llm

import (
	"context"
	"strings"
	"time"

	"recruitbot/app/config"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/samber/oops"
	"google.golang.org/api/option"
)

type Gemini struct {
	client      *genai.Client
	modelName   string
	temperature float32
	timeout     time.Duration
}

func NewGemini(ctx context.Context, cfg config.LLM) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Token))
	if err != nil {
		return nil, oops.In("llm").Wrapf(err, "failed to create Gemini client")
	}

	return &Gemini{
		client:      client,
		modelName:   cfg.Model,
		temperature: float32(cfg.Temperature),
		timeout:     cfg.Timeout,
	}, nil
}

func (g *Gemini) Complete(ctx context.Context, prompt, system string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// GenerativeModel carries per-call settings, so it is built per request.
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(g.temperature)
	model.ResponseMIMEType = "application/json"
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", oops.In("llm").Wrapf(err, "gemini generate error")
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", oops.In("llm").Errorf("no gemini candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

func (g *Gemini) Shutdown() error {
	return g.client.Close()
}
