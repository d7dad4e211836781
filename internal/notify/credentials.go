package notify

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/reportdesk/internal/apperr"
)

// Credentials identify the bot and the destination chat. They are stored in
// telegram_config.json next to the database.
type Credentials struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

// Configured reports whether both fields are filled in.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.BotToken) != "" && strings.TrimSpace(c.ChatID) != ""
}

// LoadCredentials reads path. A missing file yields empty credentials.
func LoadCredentials(path string) (Credentials, error) {
	const op = "notify.LoadCredentials"
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return Credentials{}, apperr.Wrap(apperr.KindAccess, op, err)
		}
		return Credentials{}, apperr.Wrap(apperr.KindIO, op, err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, apperr.Wrap(apperr.KindFormat, op, err)
	}
	creds.BotToken = strings.TrimSpace(creds.BotToken)
	creds.ChatID = strings.TrimSpace(creds.ChatID)
	return creds, nil
}

// SaveCredentials replaces the file at path with creds.
func SaveCredentials(path string, creds Credentials) error {
	const op = "notify.SaveCredentials"
	creds.BotToken = strings.TrimSpace(creds.BotToken)
	creds.ChatID = strings.TrimSpace(creds.ChatID)
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindIO, op, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.KindIO, op, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return apperr.Wrap(apperr.KindAccess, op, err)
		}
		return apperr.Wrap(apperr.KindIO, op, err)
	}
	return nil
}

// ValidateCredentials checks the token shape ("<digits>:<secret>") and that
// the chat id is a possibly negative integer.
func ValidateCredentials(token, chatID string) error {
	const op = "notify.ValidateCredentials"
	token = strings.TrimSpace(token)
	chatID = strings.TrimSpace(chatID)
	if token == "" {
		return apperr.Validation(op, "токен бота не может быть пустым")
	}
	if chatID == "" {
		return apperr.Validation(op, "Chat ID не может быть пустым")
	}
	if !strings.Contains(token, ":") {
		return apperr.Validation(op, "неверный формат токена, ожидается 123456789:ABCdefGHIjklMNOpqrsTUVwxyz")
	}
	if !isChatID(chatID) {
		return apperr.Validation(op, "Chat ID должен быть числом (например: 123456789 или -123456789)")
	}
	return nil
}

func isChatID(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
