package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/reportdesk/internal/notify"
)

const telegramSetupInfo = `1. Откройте @BotFather в Telegram и создайте бота командой /newbot.
2. Скопируйте токен вида 123456789:ABCdef... в поле «Токен бота».
3. Добавьте бота в нужный чат или напишите ему сообщение.
4. Узнайте Chat ID у @userinfobot (для групп он начинается с «-»).
5. Нажмите enter: настройки будут сохранены и проверены тестовым сообщением.`

// settingsView edits the Telegram credentials. When pendingReport is set,
// that report is sent once the connection test succeeds.
type settingsView struct {
	app           *App
	token         textinput.Model
	chatID        textinput.Model
	focus         int
	pendingReport int64
}

func (a *App) openSettings(pendingReport int64) (tea.Model, tea.Cmd) {
	creds, err := a.notifier.Credentials()
	if err != nil {
		a.setError("Не удалось прочитать настройки Telegram", err)
	}
	v := &settingsView{
		app:           a,
		token:         newTextInput("123456789:ABCdefGHIjklMNOpqrsTUVwxyz", 128),
		chatID:        newTextInput("123456789 или -123456789", 32),
		pendingReport: pendingReport,
	}
	v.token.EchoMode = textinput.EchoPassword
	v.token.SetValue(creds.BotToken)
	v.chatID.SetValue(creds.ChatID)
	v.token.Focus()
	a.settings = v
	a.returnState = a.state
	a.state = stateSettings
	return a, nil
}

func (v *settingsView) Update(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := v.app
	switch msg.String() {
	case "esc":
		return v.close()
	case "tab", "shift+tab", "up", "down":
		v.focus = 1 - v.focus
		if v.focus == 0 {
			v.chatID.Blur()
			v.token.Focus()
		} else {
			v.token.Blur()
			v.chatID.Focus()
		}
		return a, nil
	case "ctrl+r":
		if v.token.EchoMode == textinput.EchoPassword {
			v.token.EchoMode = textinput.EchoNormal
		} else {
			v.token.EchoMode = textinput.EchoPassword
		}
		return a, nil
	case "enter", "ctrl+s":
		return v.save()
	}
	var cmd tea.Cmd
	if v.focus == 0 {
		v.token, cmd = v.token.Update(msg)
	} else {
		v.chatID, cmd = v.chatID.Update(msg)
	}
	return a, cmd
}

// save validates and stores the credentials, then tests the connection.
func (v *settingsView) save() (tea.Model, tea.Cmd) {
	a := v.app
	creds := notify.Credentials{
		BotToken: strings.TrimSpace(v.token.Value()),
		ChatID:   strings.TrimSpace(v.chatID.Value()),
	}
	if err := a.notifier.SaveCredentials(creds); err != nil {
		a.setError("Ошибка валидации", err)
		return a, nil
	}
	a.logInfo("Настройки Telegram сохранены")
	a.busy = "Проверка соединения с Telegram…"
	return a, a.testConnectionCmd(v.pendingReport)
}

func (v *settingsView) close() (tea.Model, tea.Cmd) {
	a := v.app
	a.settings = nil
	switch a.returnState {
	case stateArchive, stateReportView:
		a.state = a.returnState
		return a, nil
	}
	return a.returnToMainMenu()
}

func (a *App) handleConnectionTested(msg connectionTestedMsg) (tea.Model, tea.Cmd) {
	a.busy = ""
	if msg.err != nil {
		a.setError("Проверка соединения не пройдена", msg.err)
		return a, nil
	}
	a.logInfo("Соединение с Telegram установлено")
	a.setStatus("✅ Соединение установлено! Тестовое сообщение отправлено.")
	if a.settings != nil {
		a.settings.close()
	}
	if msg.pendingReport > 0 {
		a.busy = "Отправка в Telegram…"
		return a, a.sendReportCmd(msg.pendingReport)
	}
	return a, nil
}

func (v *settingsView) View() string {
	label := func(focused bool, text string) string {
		if focused {
			return "▸ " + titleStyle.Render(fmt.Sprintf("%-12s", text))
		}
		return "  " + mutedStyle.Render(fmt.Sprintf("%-12s", text))
	}
	rows := []string{
		titleStyle.Render("Настройки Telegram бота"),
		"",
		boxStyle.Render("📖 Инструкция\n" + telegramSetupInfo),
		"",
		label(v.focus == 0, "Токен бота:") + v.token.View(),
		label(v.focus == 1, "Chat ID:") + v.chatID.View(),
		"",
	}
	if v.pendingReport > 0 {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("После проверки будет отправлен отчёт #%d", v.pendingReport)))
	}
	rows = append(rows, hintStyle.Render("tab — поле · ctrl+r — показать токен · enter — сохранить и проверить · esc — отмена"))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
