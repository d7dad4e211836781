package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/reportdesk/internal/apperr"
	"github.com/kingrea/reportdesk/internal/form"
)

const (
	fieldRole = iota
	fieldMonth
	fieldYear
	fieldDate
	fieldCount
)

// setupView collects the role, period and report date for a new report.
type setupView struct {
	app     *App
	catalog []string
	role    int
	month   int
	year    textinput.Model
	date    textinput.Model
	focus   int
}

func newTextInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func newSetupView(app *App, catalog []string) *setupView {
	now := app.now()
	v := &setupView{
		app:     app,
		catalog: catalog,
		month:   int(now.Month()) - 1,
		year:    newTextInput("2024", 4),
		date:    newTextInput("дд.мм.гггг", 10),
	}
	v.year.SetValue(strconv.Itoa(now.Year()))
	v.date.SetValue(now.Format("02.01.2006"))
	return v
}

func (a *App) beginSetup() (tea.Model, tea.Cmd) {
	catalog, err := form.Catalog(a.config.FormsDir())
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		a.setError("Не удалось прочитать папку форм", err)
		return a, nil
	}
	if len(catalog) == 0 {
		a.err = nil
		a.statusMsg = "Не найдены файлы форм в папке «формы». Поместите туда Excel файлы с вопросами."
		a.logWarn("Нет файлов форм в %s", a.config.FormsDir())
		return a, nil
	}
	a.setup = newSetupView(a, catalog)
	a.state = stateSetup
	a.setStatus("Выберите форму и период")
	return a, nil
}

func (v *setupView) setFocus(field int) {
	v.focus = (field + fieldCount) % fieldCount
	v.year.Blur()
	v.date.Blur()
	switch v.focus {
	case fieldYear:
		v.year.Focus()
	case fieldDate:
		v.date.Focus()
	}
}

func (v *setupView) Update(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := v.app
	switch msg.String() {
	case "esc":
		return a.returnToMainMenu()
	case "enter":
		return v.submit()
	case "tab", "down":
		v.setFocus(v.focus + 1)
		return a, nil
	case "shift+tab", "up":
		v.setFocus(v.focus - 1)
		return a, nil
	case "left", "right":
		step := 1
		if msg.String() == "left" {
			step = -1
		}
		switch v.focus {
		case fieldRole:
			v.role = (v.role + step + len(v.catalog)) % len(v.catalog)
			return a, nil
		case fieldMonth:
			v.month = (v.month + step + 12) % 12
			return a, nil
		}
	}

	var cmd tea.Cmd
	switch v.focus {
	case fieldYear:
		v.year, cmd = v.year.Update(msg)
	case fieldDate:
		v.date, cmd = v.date.Update(msg)
	}
	return a, cmd
}

func (v *setupView) period() (form.Period, error) {
	month := form.Months()[v.month]
	year, err := strconv.Atoi(strings.TrimSpace(v.year.Value()))
	if err != nil || year < 1 || year > 9999 {
		return form.Period{}, apperr.Validation("tui.setup", "год должен быть числом, например %d", v.app.now().Year())
	}
	return form.Period{Month: month, Year: year}, nil
}

func (v *setupView) submit() (tea.Model, tea.Cmd) {
	a := v.app
	role := v.catalog[v.role]
	reportDate := strings.TrimSpace(v.date.Value())
	if reportDate == "" || strings.TrimSpace(v.year.Value()) == "" {
		a.setError("Заполните все поля!", apperr.Validation("tui.setup", "не указан год или дата отчёта"))
		return a, nil
	}
	period, err := v.period()
	if err != nil {
		a.setError("Некорректный год", err)
		return a, nil
	}
	a.busy = "Загрузка вопросов…"
	a.logInfo("Загрузка формы %s · %s (%s)", role, period, form.Classify(period.Month).FriendlyName())
	return a, a.loadFormCmd(role, period, reportDate)
}

func (v *setupView) View() string {
	label := func(field int, text string) string {
		style := mutedStyle
		marker := "  "
		if v.focus == field {
			style = titleStyle
			marker = "▸ "
		}
		return marker + style.Render(fmt.Sprintf("%-14s", text))
	}
	month := form.Months()[v.month]
	kind := form.Classify(month)
	rows := []string{
		titleStyle.Render("Новый отчёт"),
		"",
		label(fieldRole, "Форма:") + fmt.Sprintf("◂ %s ▸", v.catalog[v.role]),
		label(fieldMonth, "Месяц:") + fmt.Sprintf("◂ %s ▸", month) + mutedStyle.Render(fmt.Sprintf("  (%s отчёт, файл %s)", kind.FriendlyName(), form.Candidates(v.catalog[v.role], form.Period{Month: month})[0])),
		label(fieldYear, "Год:") + v.year.View(),
		label(fieldDate, "Дата отчёта:") + v.date.View(),
		"",
		hintStyle.Render("tab/↑/↓ — поле · ←/→ — выбор · enter — начать · esc — назад"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) handleFormLoaded(msg formLoadedMsg) (tea.Model, tea.Cmd) {
	a.busy = ""
	if msg.err != nil {
		a.setError("Не удалось загрузить вопросы", msg.err)
		a.log.Warn("form load failed", "role", msg.role, "period", msg.period.String(), "error", msg.err)
		return a, nil
	}
	a.session.Init(msg.role, msg.period, msg.reportDate, msg.result.Questions)
	a.questions = newQuestionsView(a)
	a.state = stateQuestions

	status := fmt.Sprintf("Успешно загружено %d вопросов из %s", len(msg.result.Questions), msg.source.Name)
	if msg.result.Skipped > 0 {
		status += fmt.Sprintf(" · пропущено %d строк без вопросов", msg.result.Skipped)
	}
	a.setStatus("%s", status)
	a.logInfo("Начат отчёт %s · %s · %d вопросов", msg.role, msg.period, len(msg.result.Questions))
	a.log.Info("session started",
		"session_id", a.session.ID,
		"role", msg.role,
		"source", msg.source.Path,
		"questions", len(msg.result.Questions),
		"skipped", msg.result.Skipped,
		"blank", msg.result.Blank,
	)
	return a, nil
}
