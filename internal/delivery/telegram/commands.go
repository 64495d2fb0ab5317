package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/service"
)

const newsLimit = 5

var errQuizArgs = errors.New("invalid quiz arguments")

// parseQuizArgs reads "[exam] [difficulty] [count]" in any order, falling back to defaults.
func parseQuizArgs(args string, defaults QuizDefaults) (service.GenerateRequest, error) {
	req := service.GenerateRequest{
		ExamType:   string(defaults.ExamType),
		Difficulty: string(defaults.Difficulty),
		Count:      defaults.Count,
	}

	for _, tok := range strings.Fields(args) {
		if et, err := entities.ParseExamType(tok); err == nil {
			req.ExamType = string(et)
			continue
		}
		if d, err := entities.ParseDifficulty(tok); err == nil {
			req.Difficulty = string(d)
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil {
			req.Count = n
			continue
		}
		return service.GenerateRequest{}, fmt.Errorf("%w: %q", errQuizArgs, tok)
	}

	return req, nil
}

// handleQuiz requests a new batch and shows its first question.
func (h *Handler) handleQuiz(userID, args string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		req, err := parseQuizArgs(args, h.defaults)
		if err != nil {
			return h.send(newPlainMessage(chatID, msgQuizUsage))
		}

		_ = h.send(newPlainMessage(chatID, msgGenerating))

		view, err := h.flows.Get(ctx, userID).Generate(ctx, req)
		switch {
		case errors.Is(err, service.ErrNoQuestionsAvailable):
			return h.send(newPlainMessage(chatID, msgNoQuestions))
		case errors.Is(err, service.ErrGenerationInProgress):
			return h.send(newPlainMessage(chatID, msgGenerationBusy))
		case errors.Is(err, entities.ErrUnknownExamType),
			errors.Is(err, entities.ErrUnknownDifficulty),
			errors.Is(err, service.ErrInvalidCount):
			return h.send(newPlainMessage(chatID, msgQuizUsage))
		case err != nil:
			return fmt.Errorf("generate questions: %w", err)
		}

		h.logger.Info("quiz batch started",
			zap.String("user_id", userID),
			zap.String("exam_type", req.ExamType),
			zap.Int("total", view.Total),
		)

		text, kb := renderQuiz(view)
		msg := newHTMLMessage(chatID, text)
		if kb != nil {
			msg.ReplyMarkup = kb
		}
		return h.send(msg)
	}
}

// handleNews sends the freshest headlines.
func (h *Handler) handleNews() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		articles, err := h.news.Latest(ctx)
		if err != nil {
			h.logger.Warn("news unavailable", zap.Error(err))
			return h.send(newPlainMessage(chatID, msgNewsUnavailable))
		}

		msg := newHTMLMessage(chatID, renderNews(articles, newsLimit))
		msg.DisableWebPagePreview = true
		return h.send(msg)
	}
}

// handleReset forgets asked questions so they may be served again.
func (h *Handler) handleReset(userID string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		h.flows.Get(ctx, userID).ClearAsked(ctx)
		return h.send(newPlainMessage(chatID, msgAskedCleared))
	}
}
