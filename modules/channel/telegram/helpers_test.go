package telegram

import (
	"io"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBot records sent messages and serves updates from a channel.
type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	sendErrs []error
	updates  chan tgbotapi.Update
	stopped  int
	config   tgbotapi.UpdateConfig
}

func newFakeBot() *fakeBot {
	return &fakeBot{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return tgbotapi.Message{}, err
		}
	}
	if mc, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, mc)
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.mu.Lock()
	f.config = config
	f.mu.Unlock()
	return f.updates
}

func (f *fakeBot) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
}

func (f *fakeBot) sentMessages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func (f *fakeBot) factory(username string) botFactory {
	return func(Config) (botAPI, tgbotapi.User, error) {
		return f, tgbotapi.User{ID: 111, IsBot: true, UserName: username}, nil
	}
}

func commandMessage(id int, chatID int64, chatType, text string) *tgbotapi.Message {
	cmdLen := len(text)
	for i, r := range text {
		if r == ' ' || r == '\n' {
			cmdLen = i
			break
		}
	}
	return &tgbotapi.Message{
		MessageID: id,
		Date:      1700000000,
		From:      &tgbotapi.User{ID: 42, FirstName: "Alice", LastName: "Doe", UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: chatType, Title: "builders"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}
