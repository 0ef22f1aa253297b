package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"recruitbot/app/client/llm"
	"recruitbot/app/service/session"

	_ "embed"

	"github.com/samber/oops"
)

//go:embed system_prompt.txt
var systemPrompt string

//go:embed initial_prompt_template.txt
var initialPromptTemplate string

//go:embed details_prompt_template.txt
var detailsPromptTemplate string

var ErrMalformedOutput = errors.New("malformed model output")

type AgentResponse struct {
	NextStep   string `json:"next_step"`
	Reply      string `json:"reply"`
	Name       string `json:"name"`
	University string `json:"university"`
	Date       string `json:"date"`
}

// Agent asks the model for a structured {next_step, reply, ...} object and
// only accepts it when next_step is one of the allowed steps.
type Agent struct {
	client  llm.Client
	timeout time.Duration
}

func NewAgent(client llm.Client, timeout time.Duration) *Agent {
	return &Agent{
		client:  client,
		timeout: timeout,
	}
}

func (a *Agent) Call(
	ctx context.Context,
	template string,
	values map[string]any,
	allowed ...session.Step,
) (*AgentResponse, session.Step, error) {
	prompt := renderTemplate(template, values)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	result, err := a.client.Complete(ctx, prompt, systemPrompt)
	if err != nil {
		return nil, "", oops.In("conversation").Wrapf(err, "failed to complete prompt")
	}

	return decodeResponse(result, allowed)
}

func decodeResponse(raw string, allowed []session.Step) (*AgentResponse, session.Step, error) {
	result := strings.TrimSpace(raw)
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	var response AgentResponse
	if err := json.Unmarshal([]byte(result), &response); err != nil {
		return nil, "", oops.In("conversation").
			With("output", raw).
			Wrapf(ErrMalformedOutput, "failed to unmarshal response: %v", err)
	}

	step, err := session.ParseStep(strings.TrimSpace(response.NextStep))
	if err != nil {
		return nil, "", oops.In("conversation").
			With("output", raw).
			Wrapf(ErrMalformedOutput, "%v", err)
	}

	if !slices.Contains(allowed, step) {
		return nil, "", oops.In("conversation").
			With("output", raw, "allowed", allowed).
			Wrapf(ErrMalformedOutput, "unexpected next step %q", step)
	}

	response.Reply = strings.TrimSpace(response.Reply)
	response.Name = cleanField(response.Name)
	response.University = cleanField(response.University)
	response.Date = cleanField(response.Date)

	return &response, step, nil
}

func renderTemplate(template string, values map[string]any) string {
	prompt := template
	for key, value := range values {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", fmt.Sprint(value))
	}

	return prompt
}

// Models sometimes spell out null instead of omitting the field.
func cleanField(value string) string {
	value = strings.TrimSpace(value)

	switch strings.ToLower(value) {
	case "null", "none", "nil", "不明", "未定":
		return ""
	}

	return value
}
