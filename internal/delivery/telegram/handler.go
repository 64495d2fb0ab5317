package telegram

import (
	"context"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/service"
)

// Bot is the subset of the Telegram API client used by the handler.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type FlowRegistry interface {
	Get(ctx context.Context, userID string) *service.QuizFlow
}

type NewsService interface {
	Latest(ctx context.Context) ([]entities.Article, error)
}

// QuizDefaults are used for /quiz arguments the user leaves out.
type QuizDefaults struct {
	ExamType   entities.ExamType
	Difficulty entities.Difficulty
	Count      int
}

type Handler struct {
	bot      Bot
	logger   *zap.Logger
	flows    FlowRegistry
	news     NewsService
	defaults QuizDefaults
}

func NewHandler(
	bot Bot,
	logger *zap.Logger,
	flows FlowRegistry,
	news NewsService,
	defaults QuizDefaults,
) *Handler {
	return &Handler{
		bot:      bot,
		logger:   logger,
		flows:    flows,
		news:     news,
		defaults: defaults,
	}
}

func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	// Commands may wait on the question provider, so each runs on its own goroutine.
	// Callbacks are quick and keep their order.
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				h.handleUpdate(ctx, update)
				continue
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				h.handleUpdate(ctx, update)
			}()
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.logger.Debug("callback received",
			zap.Int64("user_id", update.CallbackQuery.From.ID),
			zap.String("data", update.CallbackQuery.Data),
		)
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil {
		h.logger.Debug("update without message and callback")
		return
	}

	h.logger.Debug("update received",
		zap.Int64("chat_id", update.Message.Chat.ID),
		zap.String("text", update.Message.Text),
	)

	chatID := update.Message.Chat.ID
	userID := flowUserID(update.Message.From.ID)

	if !update.Message.IsCommand() {
		_ = h.send(newPlainMessage(chatID, msgUnknownCommand))
		return
	}

	switch update.Message.Command() {
	case "start", "help":
		_ = h.send(newHTMLMessage(chatID, msgWelcome))

	case "quiz":
		_ = h.withErrorHandling(h.handleQuiz(userID, update.Message.CommandArguments()))(ctx, chatID)

	case "news":
		_ = h.withErrorHandling(h.handleNews())(ctx, chatID)

	case "reset":
		_ = h.withErrorHandling(h.handleReset(userID))(ctx, chatID)

	default:
		_ = h.send(newPlainMessage(chatID, msgUnknownCommand))
	}
}

// flowUserID namespaces Telegram users so they never collide with API clients.
func flowUserID(telegramID int64) string {
	return "tg:" + strconv.FormatInt(telegramID, 10)
}

func (h *Handler) sendError(chatID int64, text string) {
	_ = h.send(newPlainMessage(chatID, text))
}

func (h *Handler) send(c tgbotapi.Chattable) error {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.Error("failed to send telegram message",
			zap.Error(err),
		)
		return err
	}
	return nil
}
