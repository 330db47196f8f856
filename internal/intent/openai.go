package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT4oMini

// ChatCompleter is the subset of *openai.Client the classifier needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClassifier asks a chat model to pick one label and answer in JSON.
type OpenAIClassifier struct {
	Client ChatCompleter
	Model  string
}

// NewOpenAIClassifier builds a classifier against the OpenAI API or any
// compatible endpoint when baseURL is set.
func NewOpenAIClassifier(apiKey, model, baseURL string) *OpenAIClassifier {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClassifier{Client: openai.NewClientWithConfig(cfg), Model: model}
}

var errEmptyCompletion = errors.New("intent: empty completion")

func systemPrompt() string {
	names := make([]string, 0, len(Labels))
	for _, l := range Labels {
		names = append(names, string(l))
	}
	return "Bạn là bộ phân loại ý định cho trợ lý bán sách. " +
		"Chọn đúng một nhãn trong: " + strings.Join(names, ", ") + ". " +
		`Chỉ trả về JSON dạng {"label": "<nhãn>", "confidence": <0..1>}.`
}

type completionAnswer struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classify sends one completion request. The score vector is one-hot on
// the chosen label scaled by the reported confidence.
func (o *OpenAIClassifier) Classify(ctx context.Context, text string) (Prediction, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return Prediction{}, fmt.Errorf("intent: openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Prediction{}, errEmptyCompletion
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var ans completionAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &ans); err != nil {
		return Prediction{}, fmt.Errorf("intent: decode completion %q: %w", raw, err)
	}

	p := Prediction{Label: ans.Label, Confidence: clamp01(ans.Confidence)}
	p.Scores = make([]float64, len(Labels))
	in := p.Intent()
	for i, l := range Labels {
		if l == in {
			p.Scores[i] = p.Confidence
		}
	}
	return p, nil
}
