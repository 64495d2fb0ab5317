package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
)

// questionNamespace seeds ids derived from question text.
var questionNamespace = uuid.MustParse("6f1c2a4e-8a0b-4a53-9d5e-2b8f7c6d1e90")

var ErrEmptyContent = errors.New("empty completion content")

// Completer returns the text completion for a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// QuestionProvider generates exam questions with a generative text API.
// It never returns an error: failures are logged and reported as an empty batch.
type QuestionProvider struct {
	completer Completer
	logger    *zap.Logger
}

// NewQuestionProvider creates a provider over completer.
func NewQuestionProvider(completer Completer, logger *zap.Logger) *QuestionProvider {
	return &QuestionProvider{
		completer: completer,
		logger:    logger,
	}
}

type questionPayload struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correctOption"`
	Explanation   string   `json:"explanation"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
}

type questionsEnvelope struct {
	Questions []questionPayload `json:"questions"`
}

// Generate requests req.Count questions, skipping any id in req.AskedQuestionIDs.
func (p *QuestionProvider) Generate(ctx context.Context, req entities.QuestionRequest) []entities.Question {
	start := time.Now()

	content, err := p.completer.Complete(ctx, systemPrompt, buildPrompt(req))
	if err != nil {
		p.logger.Error("question generation failed",
			zap.String("exam_type", string(req.ExamType)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return []entities.Question{}
	}

	payloads, err := parseQuestions(content)
	if err != nil {
		p.logger.Error("failed to parse generated questions",
			zap.String("content", truncate(content, 300)),
			zap.Error(err),
		)
		return []entities.Question{}
	}

	questions := p.normalize(payloads, req)

	p.logger.Info("questions generated",
		zap.String("exam_type", string(req.ExamType)),
		zap.String("difficulty", string(req.Difficulty)),
		zap.Int("requested", req.Count),
		zap.Int("received", len(payloads)),
		zap.Int("accepted", len(questions)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return questions
}

// normalize validates payloads, assigns ids and difficulty, drops excluded
// and duplicated questions and truncates the batch to the requested count.
func (p *QuestionProvider) normalize(payloads []questionPayload, req entities.QuestionRequest) []entities.Question {
	excluded := make(map[string]struct{}, len(req.AskedQuestionIDs))
	for _, id := range req.AskedQuestionIDs {
		excluded[id] = struct{}{}
	}

	out := make([]entities.Question, 0, len(payloads))
	for _, pl := range payloads {
		if len(out) == req.Count {
			break
		}

		q, err := toQuestion(pl, req.Difficulty)
		if err != nil {
			p.logger.Debug("dropping invalid question", zap.Error(err))
			continue
		}
		if _, seen := excluded[q.ID]; seen {
			p.logger.Debug("dropping repeated question", zap.String("question_id", q.ID))
			continue
		}

		excluded[q.ID] = struct{}{}
		out = append(out, q)
	}

	return out
}

func toQuestion(pl questionPayload, fallback entities.Difficulty) (entities.Question, error) {
	q := entities.Question{
		Question:    strings.TrimSpace(pl.Question),
		Options:     make([]string, 0, len(pl.Options)),
		Explanation: strings.TrimSpace(pl.Explanation),
		Category:    strings.TrimSpace(pl.Category),
		Difficulty:  fallback,
	}
	for _, o := range pl.Options {
		q.Options = append(q.Options, strings.TrimSpace(o))
	}

	if pl.CorrectOption == nil {
		return entities.Question{}, fmt.Errorf("%w: missing correct option", entities.ErrInvalidQuestion)
	}
	q.CorrectOption = *pl.CorrectOption

	if d, err := entities.ParseDifficulty(pl.Difficulty); err == nil {
		q.Difficulty = d
	}
	// Ids chosen by the model are reused across batches, so only the prompt identifies a question.
	q.ID = questionID(q.Question)

	if err := q.Validate(); err != nil {
		return entities.Question{}, err
	}

	return q, nil
}

// questionID derives a stable id from the prompt so repeats are recognisable across batches.
func questionID(prompt string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(prompt), " "))
	return uuid.NewSHA1(questionNamespace, []byte(normalized)).String()
}

// parseQuestions accepts {"questions":[...]}, a bare array, and either wrapped in a Markdown fence.
func parseQuestions(content string) ([]questionPayload, error) {
	content = stripFence(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	if strings.HasPrefix(content, "[") {
		var list []questionPayload
		if err := json.Unmarshal([]byte(content), &list); err != nil {
			return nil, fmt.Errorf("decode question list: %w", err)
		}
		return list, nil
	}

	var env questionsEnvelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return nil, fmt.Errorf("decode question envelope: %w", err)
	}
	return env.Questions, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // language tag
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
