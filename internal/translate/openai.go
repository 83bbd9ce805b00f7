package translate

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/alnah/go-dub/internal/lang"
)

// DefaultModel is the chat model used for translation.
const DefaultModel = openai.GPT4oMini

// chatCompleter abstracts the OpenAI client for testing.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI translates through a chat model. Compared to the Google backend it
// costs money but handles idiom and register better, which matters for
// dubbed speech.
type OpenAI struct {
	client chatCompleter
	model  string
	log    *zap.Logger
}

var _ Translator = (*OpenAI)(nil)

// OpenAIOption configures an OpenAI translator.
type OpenAIOption func(*OpenAI)

// WithOpenAIClient sets the chat client (for testing).
func WithOpenAIClient(c chatCompleter) OpenAIOption {
	return func(o *OpenAI) { o.client = c }
}

// WithOpenAIModel overrides the chat model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

// WithOpenAILogger sets the logger. Defaults to a no-op logger.
func WithOpenAILogger(log *zap.Logger) OpenAIOption {
	return func(o *OpenAI) { o.log = log }
}

// NewOpenAI creates an OpenAI translator authenticated with apiKey.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		model: DefaultModel,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.client == nil {
		o.client = openai.NewClient(apiKey)
	}
	return o
}

// Translate implements Translator.
func (o *OpenAI) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if lang.BaseCode(targetLang) == "" {
		return "", fmt.Errorf("%w: target language is required", ErrTranslation)
	}

	system := fmt.Sprintf(
		"You are a professional translator. Translate the user's text into %s. "+
			"Preserve meaning and tone. The translation will be spoken aloud, so keep it natural speech. "+
			"Output only the translation, nothing else.",
		lang.DisplayName(targetLang))
	if source := lang.DisplayName(sourceLang); sourceLang != "" {
		system += fmt.Sprintf(" The source language is %s.", source)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", ErrTranslation)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
