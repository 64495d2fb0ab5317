// messages.go contains message templates and formatting functions for Telegram.

package telegram

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/service"
)

const msgWelcome = "<b>Exam prep</b>\n\n" +
	"Practice multiple-choice questions for UPSC, PSC, SSC and Banking exams.\n\n" +
	"/quiz [exam] [difficulty] [count] - start a new batch, e.g. <code>/quiz SSC hard 5</code>\n" +
	"/news - latest exam news\n" +
	"/reset - allow previously asked questions again"

// Error and notice messages.
const (
	msgUnknownCommand   = "Unknown command. Use /quiz, /news or /reset."
	msgQuizUsage        = "Usage: /quiz [UPSC|PSC|SSC|Banking] [easy|medium|hard] [count]"
	msgGenerating       = "Generating questions..."
	msgGenerationBusy   = "Questions are still being generated, please wait."
	msgNoQuestions      = "No questions available right now, please try again."
	msgNewsUnavailable  = "News is unavailable right now, please try again later."
	msgAskedCleared     = "Done. Previously asked questions may appear again."
	msgSelectFirst      = "Select an option first."
	msgSubmitFirst      = "Submit your answer first."
	msgAlreadySubmitted = "Answer already submitted."
	msgNoActiveQuestion = "No active question. Start one with /quiz."
	msgInvalidOption    = "Unknown option."
	msgStaleQuestion    = "This question is no longer active."
	msgBatchComplete    = "Batch complete. Start another one with /quiz."
	msgNoNews           = "No news yet."
	msgInternalError    = "Something went wrong. Please try again later."
)

var optionLetters = [...]string{"A", "B", "C", "D"}

// newHTMLMessage creates a message with HTML parse mode.
func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}

// newPlainMessage creates a plain message without parse mode.
func newPlainMessage(chatID int64, text string) tgbotapi.MessageConfig {
	return tgbotapi.NewMessage(chatID, text)
}

func optionLetter(i int) string {
	if i >= 0 && i < len(optionLetters) {
		return optionLetters[i]
	}
	return fmt.Sprint(i + 1)
}

func highlightMark(h string) string {
	switch h {
	case service.HighlightCorrect:
		return "✅"
	case service.HighlightIncorrect:
		return "❌"
	case service.HighlightSelected:
		return "🔘"
	case service.HighlightDimmed:
		return "▫️"
	default:
		return "⚪"
	}
}

// renderQuiz formats a quiz view as HTML with the keyboard for its state.
func renderQuiz(v service.QuizView) (string, *tgbotapi.InlineKeyboardMarkup) {
	if v.Question == nil {
		return msgBatchComplete, nil
	}
	q := v.Question

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Question %d/%d</b>", v.Position, v.Total)
	if q.Category != "" {
		fmt.Fprintf(&b, " · %s", html.EscapeString(q.Category))
	}
	if q.Difficulty != "" {
		fmt.Fprintf(&b, " · %s", html.EscapeString(string(q.Difficulty)))
	}
	fmt.Fprintf(&b, "\n\n%s\n\n", html.EscapeString(q.Question))

	for _, opt := range q.Options {
		fmt.Fprintf(&b, "%s <b>%s.</b> %s\n",
			highlightMark(opt.Highlight),
			optionLetter(opt.Index),
			html.EscapeString(opt.Text),
		)
	}

	if v.IsSubmitted && v.IsCorrect != nil {
		if *v.IsCorrect {
			b.WriteString("\n<b>Correct!</b>")
		} else {
			fmt.Fprintf(&b, "\n<b>Incorrect.</b> The answer is %s.", optionLetter(*q.CorrectOption))
		}
	}
	if v.ShowExplanation && q.Explanation != "" {
		fmt.Fprintf(&b, "\n\n<i>%s</i>", html.EscapeString(q.Explanation))
	}

	var kb tgbotapi.InlineKeyboardMarkup
	if v.State == service.StateSubmitted {
		kb = buildNextKeyboard(q.ID)
	} else {
		kb = buildAnswerKeyboard(q.ID, len(q.Options))
	}

	return b.String(), &kb
}

// renderNews lists at most limit articles as HTML links.
func renderNews(articles []entities.Article, limit int) string {
	if len(articles) == 0 {
		return msgNoNews
	}

	var b strings.Builder
	b.WriteString("<b>Latest news</b>\n")
	for i, a := range articles {
		if i == limit {
			break
		}
		fmt.Fprintf(&b, "\n• <a href=\"%s\">%s</a>", html.EscapeString(a.URL), html.EscapeString(a.Title))
		if a.Source != "" {
			fmt.Fprintf(&b, " (%s)", html.EscapeString(a.Source))
		}
	}
	return b.String()
}
