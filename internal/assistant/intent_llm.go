package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
)

// PromptSpec configures the LLM intent assist.
type PromptSpec struct {
	System  string `yaml:"system"`
	Intents []struct {
		Tag         string `yaml:"tag"`
		Description string `yaml:"description"`
	} `yaml:"intents"`
	Style struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

const defaultPromptSpec = `
system: |
  You route messages for a pharmaceutical procurement assistant.
  Pick exactly one intent tag for the user's message from the list.
  Answer with a JSON object {"tag": "<tag>"} and nothing else.
intents:
  - tag: supplier_search
    description: find or list suppliers, vendors or manufacturers
  - tag: supplier_comparison
    description: compare two or more suppliers
  - tag: rfq_create
    description: start a request for quotation or tender
  - tag: contract_renewal
    description: renew or extend an existing contract
  - tag: research_request
    description: market prices, trends, shortages or product research
  - tag: module_request
    description: show a dashboard for compliance, inventory, categories or reports
  - tag: fallback
    description: anything else
style:
  temperature: 0
  max_tokens: 40
`

type classifiedTag struct {
	Tag string `json:"tag"`
}

// LLMClassifier asks an OpenAI chat model to pick an intent tag.
type LLMClassifier struct {
	spec    PromptSpec
	client  *openai.Client
	model   string
	timeout time.Duration
}

// LoadLLMClassifier reads the prompt spec from path, or uses the built-in
// spec when path is empty.
func LoadLLMClassifier(path string, client *openai.Client, model string) (*LLMClassifier, error) {
	b := []byte(defaultPromptSpec)
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read intent prompt: %w", err)
		}
	}
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("parse intent prompt: %w", err)
	}
	if strings.TrimSpace(spec.System) == "" {
		return nil, fmt.Errorf("intent prompt has no system text")
	}
	return &LLMClassifier{spec: spec, client: client, model: model, timeout: 10 * time.Second}, nil
}

// Classify returns the model's tag. Tags outside the enumeration are errors.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (IntentTag, error) {
	var b strings.Builder
	b.WriteString(c.spec.System)
	b.WriteString("\n\nIntents:\n")
	for _, in := range c.spec.Intents {
		fmt.Fprintf(&b, "- %s: %s\n", in.Tag, in.Description)
	}
	temp := c.spec.Style.Temperature
	maxTok := c.spec.Style.MaxTokens
	if maxTok <= 0 {
		maxTok = 40
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temp,
		MaxTokens:   maxTok,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: b.String()},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return IntentFallback, err
	}
	if len(resp.Choices) == 0 {
		return IntentFallback, fmt.Errorf("no choices")
	}
	out, err := parseClassified(resp.Choices[0].Message.Content)
	if err != nil {
		return IntentFallback, err
	}
	return ParseIntentTag(out.Tag)
}

// parseClassified decodes the model output, tolerating text around the
// JSON object.
func parseClassified(raw string) (classifiedTag, error) {
	var out classifiedTag
	err := json.Unmarshal([]byte(raw), &out)
	if err == nil {
		return out, nil
	}
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first < 0 || last <= first {
		return out, fmt.Errorf("decode classification: %w", err)
	}
	if err2 := json.Unmarshal([]byte(raw[first:last+1]), &out); err2 != nil {
		return out, fmt.Errorf("decode classification: %w", err2)
	}
	return out, nil
}
