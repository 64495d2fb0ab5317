package telegram

import (
	"strconv"
	"strings"
)

// Callback action constants.
const (
	actionOption = "opt"
	actionSubmit = "submit"
	actionNext   = "next"
)

// callbackData represents structured callback data.
// Every quiz callback carries the id of the question its message shows.
type callbackData struct {
	Action string
	Params []string
}

// encode creates callback string.
func (cd callbackData) encode() string {
	if len(cd.Params) == 0 {
		return cd.Action
	}
	return cd.Action + ":" + strings.Join(cd.Params, ":")
}

// decodeCallback parses callback data string.
func decodeCallback(data string) callbackData {
	parts := strings.Split(data, ":")
	return callbackData{
		Action: parts[0],
		Params: parts[1:],
	}
}

// questionID returns the question a callback was rendered for.
func (cd callbackData) questionID() (string, bool) {
	if len(cd.Params) == 0 || cd.Params[0] == "" {
		return "", false
	}
	return cd.Params[0], true
}

// optionIndex returns the option carried by an opt callback.
func (cd callbackData) optionIndex() (int, bool) {
	if cd.Action != actionOption || len(cd.Params) != 2 {
		return 0, false
	}
	i, err := strconv.Atoi(cd.Params[1])
	if err != nil {
		return 0, false
	}
	return i, true
}

func buildOptionCallback(questionID string, index int) string {
	return callbackData{Action: actionOption, Params: []string{questionID, strconv.Itoa(index)}}.encode()
}

func buildSubmitCallback(questionID string) string {
	return callbackData{Action: actionSubmit, Params: []string{questionID}}.encode()
}

func buildNextCallback(questionID string) string {
	return callbackData{Action: actionNext, Params: []string{questionID}}.encode()
}
