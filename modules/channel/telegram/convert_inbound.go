package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/flemzord/bootunpack/pkg/message"
)

var (
	errNoMessage   = errors.New("update contains no text message")
	errOtherTarget = errors.New("command addressed to another bot")
)

// convertInbound turns a new text message into an InboundMessage. Edits,
// channel posts, media and commands for other bots are rejected with
// errNoMessage or errOtherTarget.
func convertInbound(update tgbotapi.Update, botUsername, channelName string) (message.InboundMessage, error) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.Chat == nil {
		return message.InboundMessage{}, fmt.Errorf("telegram: update %d: %w", update.UpdateID, errNoMessage)
	}

	if !addressedTo(msg, botUsername) {
		return message.InboundMessage{}, fmt.Errorf("telegram: update %d: %w", update.UpdateID, errOtherTarget)
	}

	// Raw keeps the full update for debugging; it never leaves the process.
	raw, err := json.Marshal(update)
	if err != nil {
		return message.InboundMessage{}, fmt.Errorf("telegram: encode update %d: %w", update.UpdateID, err)
	}

	return message.InboundMessage{
		ID:        strconv.Itoa(msg.MessageID),
		Timestamp: time.Unix(int64(msg.Date), 0),
		Channel:   channelName,
		Sender:    convertSender(msg.From),
		Chat:      convertChat(msg.Chat),
		Text:      msg.Text,
		Raw:       raw,
	}, nil
}

// addressedTo reports whether a command message is meant for this bot.
// Plain commands and non-command text are always accepted.
func addressedTo(msg *tgbotapi.Message, botUsername string) bool {
	if botUsername == "" || !msg.IsCommand() {
		return true
	}
	_, mention, found := strings.Cut(msg.CommandWithAt(), "@")
	return !found || strings.EqualFold(mention, botUsername)
}

func convertSender(user *tgbotapi.User) message.Sender {
	if user == nil {
		return message.Sender{}
	}
	return message.Sender{
		ID:          strconv.FormatInt(user.ID, 10),
		Username:    user.UserName,
		DisplayName: strings.TrimSpace(user.FirstName + " " + user.LastName),
	}
}

func convertChat(chat *tgbotapi.Chat) message.Chat {
	return message.Chat{
		ID:    strconv.FormatInt(chat.ID, 10),
		Type:  mapChatType(chat.Type),
		Title: chat.Title,
	}
}

var chatTypes = map[string]message.ChatType{
	"private":    message.ChatDM,
	"group":      message.ChatGroup,
	"supergroup": message.ChatGroup,
	"channel":    message.ChatBroadcast,
}

// mapChatType treats unknown chat kinds as groups, the stricter case for
// the allow list.
func mapChatType(tgType string) message.ChatType {
	if t, ok := chatTypes[tgType]; ok {
		return t
	}
	return message.ChatGroup
}
