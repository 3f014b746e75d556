package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/hades874/Super-CMS-sub001/internal/events"
	"github.com/hades874/Super-CMS-sub001/internal/models"
	"github.com/hades874/Super-CMS-sub001/internal/repositories"
	"github.com/hades874/Super-CMS-sub001/internal/validator"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// Generator produces questions from a description. Empty or blocked output
// fails with ErrGenerationFailed, which callers may retry.
type Generator interface {
	Generate(ctx context.Context, input GenerationInput) (*GenerationResult, error)
}

// ===== GEMINI GENERATOR =====

type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

// NewGeminiGenerator connects to Gemini. Without an API key the generator
// is created but every call fails with ErrGenerationFailed.
func NewGeminiGenerator(ctx context.Context, apiKey, modelName string, logger *slog.Logger) (*GeminiGenerator, error) {
	if apiKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, question generation is disabled")
		return &GeminiGenerator{logger: logger}, nil
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.4)

	return &GeminiGenerator{client: client, model: model, logger: logger}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, input GenerationInput) (*GenerationResult, error) {
	if g.model == nil {
		return nil, fmt.Errorf("generator not configured: %w", ErrGenerationFailed)
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(buildGenerationPrompt(input)))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %v: %w", err, ErrGenerationFailed)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return nil, fmt.Errorf("prompt blocked (%s): %w", resp.PromptFeedback.BlockReason, ErrGenerationFailed)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no candidates in response: %w", ErrGenerationFailed)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("response stopped for safety: %w", ErrGenerationFailed)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	result, err := ParseGenerationResult(text.String())
	if err != nil {
		g.logger.Warn("Unusable generator response", "error", err, "length", text.Len())
		return nil, err
	}
	return result, nil
}

func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// ParseGenerationResult decodes a {"generatedQuestions": [...]} document,
// tolerating a surrounding markdown code fence.
func ParseGenerationResult(raw string) (*GenerationResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty response: %w", ErrGenerationFailed)
	}

	var result GenerationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("invalid response: %v: %w", err, ErrGenerationFailed)
	}
	if len(result.GeneratedQuestions) == 0 {
		return nil, fmt.Errorf("response has no questions: %w", ErrGenerationFailed)
	}
	return &result, nil
}

func buildGenerationPrompt(input GenerationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d %s exam questions about %q.\n", input.Count, input.Type, input.Topic)
	if input.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s.\n", input.Subject)
	}
	if input.Class != "" {
		fmt.Fprintf(&b, "Class level: %s.\n", input.Class)
	}
	if input.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s.\n", input.Difficulty)
	}
	if input.SourceText != "" {
		fmt.Fprintf(&b, "Base every question on this text:\n%s\n", input.SourceText)
	}
	b.WriteString(`Respond with JSON only, shaped as {"generatedQuestions": [{"text": string, "type": string, "options": [{"text": string, "is_correct": bool}], "blanks": [{"id": string, "answers": [string]}]}]}.`)
	b.WriteString(" Single answer questions have exactly one correct option.")
	return b.String()
}

// ===== GENERATION SERVICE =====

type generationService struct {
	generator Generator
	questions repositories.QuestionRepository
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *ServiceLogger
	now       func() time.Time
}

func NewGenerationService(
	generator Generator,
	questions repositories.QuestionRepository,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) GenerationService {
	return &generationService{
		generator: generator,
		questions: questions,
		publisher: publisher,
		validator: validator,
		logger:    NewServiceLogger(logger, LogConfig{Service: "exam-content", Component: "generation"}),
		now:       time.Now,
	}
}

// GenerateAndStore asks the generator for questions, keeps the valid ones
// and adds them to the question bank. Output with no valid question fails
// with ErrGenerationFailed.
func (s *generationService) GenerateAndStore(ctx context.Context, input GenerationInput) (created []models.Question, err error) {
	op := s.logger.WithOperation(ctx, "generate_questions")
	defer func() { op.LogResult(input.Topic, "question_batch", err) }()

	if input.Count == 0 {
		input.Count = 5
	}
	if err := s.validator.ValidateStruct(input); err != nil {
		return nil, err
	}

	result, err := s.generator.Generate(ctx, input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	valid := make([]models.Question, 0, len(result.GeneratedQuestions))
	for i, q := range result.GeneratedQuestions {
		q = withGenerationDefaults(q, input)
		q.ID = ""
		q.CreatedAt = now
		if err := s.validator.Validate(&q); err != nil {
			s.logger.Logger().Warn("Dropped generated question", "index", i+1, "error", err)
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid question among %d generated: %w", len(result.GeneratedQuestions), ErrGenerationFailed)
	}

	created, err = s.questions.AddMany(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("failed to store generated questions: %w", err)
	}

	event := events.NewQuestionsImportedEvent("generator", created, len(result.GeneratedQuestions)-len(valid))
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Logger().Warn("Failed to publish questions imported event", "error", err)
	}
	return nonNil(created), nil
}

func withGenerationDefaults(q models.Question, input GenerationInput) models.Question {
	if q.Type == "" {
		q.Type = input.Type
	}
	if q.Subject.IsZero() && input.Subject != "" {
		q.Subject = models.Single(input.Subject)
	}
	if q.Topic.IsZero() {
		q.Topic = models.Single(input.Topic)
	}
	if q.Class.IsZero() && input.Class != "" {
		q.Class = models.Single(input.Class)
	}
	if q.Difficulty.IsZero() && input.Difficulty != "" {
		q.Difficulty = models.Single(input.Difficulty)
	}
	for i := range q.Options {
		if q.Options[i].ID == "" {
			q.Options[i].ID = string(rune('a' + i))
		}
	}
	return q
}
