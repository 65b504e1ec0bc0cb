package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Command is an entry of the Telegram command menu.
type Command struct {
	Name        string // Without the leading slash
	Description string
}

var botCommands = []Command{
	{Name: "name", Description: "Set the product name"},
	{Name: "brand", Description: "Set the brand"},
	{Name: "photos", Description: "Show photos and try-on results"},
	{Name: "avatars", Description: "List avatars, optionally for one section"},
	{Name: "avatar", Description: "Use your own photo for an avatar"},
	{Name: "suggest", Description: "Suggest name and brand from the first photo"},
	{Name: "video", Description: "Generate a video from selected photos"},
	{Name: "submit", Description: "Create the product"},
	{Name: "history", Description: "Show recent submissions"},
	{Name: "reset", Description: "Clear the form"},
	{Name: "session", Description: "Set the seller session cookie"},
	{Name: "logout", Description: "Remove the seller session"},
	{Name: "version", Description: "Show version info"},
}

// RegisterCommands sets the bot's command menu in Telegram.
func RegisterCommands(tg BotAPI) {
	commands := make([]tgbotapi.BotCommand, len(botCommands))
	for i, cmd := range botCommands {
		commands[i] = tgbotapi.BotCommand{
			Command:     cmd.Name,
			Description: cmd.Description,
		}
	}

	if _, err := tg.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		log.Error().Err(err).Msg("failed to set bot commands")
	} else {
		log.Info().Int("count", len(commands)).Msg("registered bot commands")
	}
}
