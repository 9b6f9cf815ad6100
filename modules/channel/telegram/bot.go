package telegram

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the subset of *tgbotapi.BotAPI used by the channel.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// botFactory authenticates against the Bot API and returns a client along
// with the bot's own user.
type botFactory func(cfg Config) (botAPI, tgbotapi.User, error)

// newBotAPI builds the real client. The HTTP timeout leaves room for a full
// long poll on top of the request itself.
func newBotAPI(cfg Config) (botAPI, tgbotapi.User, error) {
	client := &http.Client{
		Timeout: time.Duration(cfg.PollingTimeout)*time.Second + 30*time.Second,
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.endpoint(), client)
	if err != nil {
		return nil, tgbotapi.User{}, fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, bot.Self, nil
}

// botLogger routes the library's log output through slog. The library
// reports polling failures with Println and request dumps with Printf.
type botLogger struct {
	logger *slog.Logger
}

func (l botLogger) Println(v ...any) {
	l.logger.Warn(strings.TrimSuffix(fmt.Sprintln(v...), "\n"), "source", "tgbotapi")
}

func (l botLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"), "source", "tgbotapi")
}
