package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	menuNewReport = "Новый отчёт"
	menuArchive   = "Архив отчётов"
	menuTelegram  = "Настройки Telegram"
	menuHelp      = "Справка"
	menuExit      = "Выход"
)

// menuItem implements list.Item interface for our menu items
type menuItem struct {
	title string
	desc  string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

func buildMainMenu() []list.Item {
	return []list.Item{
		menuItem{title: menuNewReport, desc: "Заполнить анкету по форме из папки «формы»"},
		menuItem{title: menuArchive, desc: "Просмотр, повторный экспорт, отправка и удаление отчётов"},
		menuItem{title: menuTelegram, desc: "Токен бота и Chat ID для отправки отчётов"},
		menuItem{title: menuHelp, desc: "Клавиши и рабочие папки"},
		menuItem{title: menuExit, desc: "Закрыть программу"},
	}
}

func (a *App) updateMainMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return a, tea.Quit
	case "enter":
		return a.handleMainMenuSelection()
	}
	var cmd tea.Cmd
	a.mainMenu, cmd = a.mainMenu.Update(msg)
	return a, cmd
}

// handleMainMenuSelection processes menu item selection
func (a *App) handleMainMenuSelection() (tea.Model, tea.Cmd) {
	item, ok := a.mainMenu.SelectedItem().(menuItem)
	if !ok {
		return a, nil
	}
	switch item.title {
	case menuNewReport:
		a.logInfo("Меню · новый отчёт")
		return a.beginSetup()
	case menuArchive:
		a.logInfo("Меню · архив отчётов")
		return a.openArchive()
	case menuTelegram:
		a.logInfo("Меню · настройки Telegram")
		return a.openSettings(0)
	case menuHelp:
		a.state = stateHelp
		return a, nil
	case menuExit:
		a.logInfo("Меню · выход")
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) renderHelp() string {
	lines := []string{
		titleStyle.Render("Справка"),
		"",
		"Заполнение отчёта:",
		"  ↑/↓ — выбор вопроса в блоке, y/д — «Да», n/н — «Нет»",
		"  c или enter — комментарий (esc — готово)",
		"  ? — справка по вопросу, o — связанные документы",
		"  → / pgdown — следующий блок, ← / pgup — предыдущий",
		"",
		"Архив: enter — открыть, e — экспорт заново, t — отправить в Telegram,",
		"  x — удалить, r — обновить список",
		"",
		"Формы ищутся в порядке: {форма}_{тип}.xlsx, {форма}_{тип}.xls, {форма}.xlsx, {форма}.xls,",
		"  где тип 1 — месячный, 2 — квартальный (март, июнь, сентябрь, декабрь), 3 — годовой (январь).",
		"",
		"Папки:",
		"  формы   — " + a.config.FormsDir(),
		"  отчеты  — " + a.config.ReportsDir(),
		"  шаблоны — " + a.config.TemplatesDir(),
		"  журнал  — " + a.config.LogsDir(),
		"",
		hintStyle.Render("esc — назад"),
	}
	return strings.Join(lines, "\n")
}
