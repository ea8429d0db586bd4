package telegram

import (
	"errors"

	"standup_bot/internal/app"
)

// userMessage turns a service error into the reply shown to the sender.
func userMessage(err error) string {
	var appErr *app.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case app.KindNotFound, app.KindValidation, app.KindConfiguration:
			return "Error: " + appErr.Message
		case app.KindAlreadyStarted:
			return "Today's standup has already been started."
		}
	}
	return "Something went wrong. Please try again later."
}
