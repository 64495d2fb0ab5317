package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/service"
)

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}

	data := decodeCallback(cb.Data)
	questionID, ok := data.questionID()
	if !ok {
		h.logger.Warn("callback without question id", zap.String("data", cb.Data))
		h.answerCallback(cb.ID, msgStaleQuestion)
		return
	}

	flow := h.flows.Get(ctx, flowUserID(cb.From.ID))

	var (
		view service.QuizView
		err  error
	)

	switch data.Action {
	case actionOption:
		i, ok := data.optionIndex()
		if !ok {
			h.logger.Warn("invalid option callback", zap.String("data", cb.Data))
			h.answerCallback(cb.ID, "")
			return
		}
		view, err = flow.SelectFor(questionID, i)
	case actionSubmit:
		_, view, err = flow.SubmitFor(questionID)
	case actionNext:
		view, err = flow.NextFrom(questionID)
	default:
		h.answerCallback(cb.ID, "")
		return
	}

	if err != nil {
		h.answerCallback(cb.ID, callbackNotice(err))
		return
	}

	text, kb := renderQuiz(view)
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		edit.ReplyMarkup = kb
	}
	_ = h.send(edit)

	// Remove the user's "clock".
	h.answerCallback(cb.ID, "")
}

func (h *Handler) answerCallback(id, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		h.logger.Warn("callback answer error", zap.Error(err))
	}
}

// callbackNotice turns flow state errors into a short popup text.
func callbackNotice(err error) string {
	switch {
	case errors.Is(err, service.ErrNoSelection):
		return msgSelectFirst
	case errors.Is(err, service.ErrAlreadySubmitted):
		return msgAlreadySubmitted
	case errors.Is(err, service.ErrNotSubmitted):
		return msgSubmitFirst
	case errors.Is(err, service.ErrGenerationInProgress):
		return msgGenerationBusy
	case errors.Is(err, service.ErrNoActiveQuestion):
		return msgNoActiveQuestion
	case errors.Is(err, service.ErrInvalidOption):
		return msgInvalidOption
	case errors.Is(err, service.ErrStaleQuestion):
		return msgStaleQuestion
	default:
		return msgInternalError
	}
}
