package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// buildAnswerKeyboard builds one button per option and a submit row.
func buildAnswerKeyboard(questionID string, options int) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, options)
	for i := 0; i < options; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(optionLetter(i), buildOptionCallback(questionID, i)))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Submit", buildSubmitCallback(questionID)),
		),
	)
}

// buildNextKeyboard builds keyboard shown after an answer is submitted.
func buildNextKeyboard(questionID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Next ▶️", buildNextCallback(questionID)),
		),
	)
}
