package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kolah/parley/internal/model"
)

const defaultModel = "gemini-2.0-flash"

// Gemini is the default oracle, backed by the Google GenAI API in JSON mode.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewGemini(ctx context.Context, apiKey, modelName string, timeout time.Duration, logger *zap.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("oracle API key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   modelName,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (g *Gemini) ExtractIntent(ctx context.Context, userText, conversationContext string) (*model.Intent, error) {
	reply, err := g.generate(ctx, intentPrompt(userText, conversationContext), true)
	if err != nil {
		return nil, err
	}
	intent, ok := parseIntent(reply)
	if !ok {
		g.logger.Warn("unparseable intent reply", zap.String("reply", truncate(reply, 300)))
		return nil, nil
	}
	return &intent, nil
}

func (g *Gemini) ProposeFix(ctx context.Context, original, current model.RequestDescriptor,
	result model.AttemptResult, userText string, attempt, maxAttempts int) (model.Correction, error) {
	prompt := fixPrompt(original, current, result, userText, attempt, maxAttempts)
	reply, err := g.generate(ctx, prompt, true)
	if err != nil {
		return model.Correction{}, err
	}
	return parseCorrection(reply), nil
}

func (g *Gemini) ExtractFollowup(ctx context.Context, userText string, pending model.Intent) (model.Intent, error) {
	reply, err := g.generate(ctx, followupExtractPrompt(userText, pending), true)
	if err != nil {
		return model.Intent{}, err
	}
	intent, ok := parseIntent(reply)
	if !ok {
		return model.Intent{}, nil
	}
	return intent, nil
}

func (g *Gemini) FollowupPrompt(ctx context.Context, result model.AttemptResult, d model.RequestDescriptor) (string, error) {
	reply, err := g.generate(ctx, followupQuestionPrompt(result, d), false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (g *Gemini) generate(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if jsonMode {
		config.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	g.logger.Debug("oracle call finished",
		zap.String("model", g.model),
		zap.Duration("elapsed", time.Since(start)),
	)

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty oracle reply")
	}
	return text, nil
}
