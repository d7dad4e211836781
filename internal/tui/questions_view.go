package tui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/reportdesk/internal/apperr"
	"github.com/kingrea/reportdesk/internal/form"
	"github.com/kingrea/reportdesk/internal/session"
)

type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayDocuments
)

const noInformation = "Информация отсутствует"

// questionsView renders the current block and edits its answers.
type questionsView struct {
	app      *App
	selected int
	editing  bool
	comment  textarea.Model
	overlay  overlay
	width    int
}

func newQuestionsView(app *App) *questionsView {
	ta := textarea.New()
	ta.Placeholder = "Комментарий (необязательно)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.Cursor.SetMode(cursor.CursorStatic)
	v := &questionsView{app: app, comment: ta}
	v.selected, _ = app.session.CurrentBlock()
	w, _ := app.contentSize()
	v.resize(w)
	return v
}

func (v *questionsView) resize(width int) {
	v.width = width
	v.comment.SetWidth(max(20, width-4))
}

func (v *questionsView) Update(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := v.app
	key := msg.String()

	if v.editing {
		switch key {
		case "esc", "ctrl+s":
			v.commitComment()
			return a, nil
		}
		var cmd tea.Cmd
		v.comment, cmd = v.comment.Update(msg)
		return a, cmd
	}

	if v.overlay != overlayNone {
		switch key {
		case "esc", "q", "enter", "?":
			v.overlay = overlayNone
		case "f", "а":
			if v.overlay == overlayDocuments {
				v.openTemplates()
			}
		}
		return a, nil
	}

	s := a.session
	start, end := s.CurrentBlock()
	switch key {
	case "up", "k":
		if v.selected > start {
			v.selected--
		}
	case "down", "j":
		if v.selected < end-1 {
			v.selected++
		}
	case "y", "Y", "д", "Д", "1":
		v.decide(form.Yes)
	case "n", "N", "н", "Н", "2":
		v.decide(form.No)
	case "c", "с", "enter":
		return a, v.beginComment()
	case "?":
		v.overlay = overlayHelp
	case "o", "щ":
		v.overlay = overlayDocuments
	case "right", "pgdown", "l":
		return v.next()
	case "left", "pgup", "h":
		s.Retreat()
		v.selected, _ = s.CurrentBlock()
		a.setStatus("Вопросы %s", v.rangeLabel())
	case "ctrl+s":
		if ok, first := s.AllAnswered(); !ok {
			a.setError("Отчёт не завершён", apperr.Validation("tui.questions", "Пожалуйста, ответьте на вопрос %d", first))
			return a, nil
		}
		a.state = stateConfirmSave
	case "esc":
		a.returnState = stateQuestions
		a.state = stateConfirmDiscard
	}
	return a, nil
}

func (v *questionsView) decide(d form.Decision) {
	s := v.app.session
	answer, ok := s.Answer(v.selected)
	if !ok {
		return
	}
	s.SetAnswer(v.selected, d, answer.Comment)
	_, end := s.CurrentBlock()
	if v.selected < end-1 {
		v.selected++
	}
	answered, total := s.Progress()
	v.app.setStatus("Отвечено %d из %d", answered, total)
}

func (v *questionsView) beginComment() tea.Cmd {
	answer, ok := v.app.session.Answer(v.selected)
	if !ok {
		return nil
	}
	v.editing = true
	v.comment.SetValue(answer.Comment)
	return v.comment.Focus()
}

func (v *questionsView) commitComment() {
	s := v.app.session
	answer, ok := s.Answer(v.selected)
	if ok {
		s.SetAnswer(v.selected, answer.Decision, strings.TrimSpace(v.comment.Value()))
	}
	v.comment.Blur()
	v.editing = false
}

// next enforces that the whole block is answered before moving on. On the
// last block it asks for confirmation to save.
func (v *questionsView) next() (tea.Model, tea.Cmd) {
	a := v.app
	s := a.session
	start, end := s.CurrentBlock()
	if pos := s.FirstUnansweredIn(start, end); pos > 0 {
		v.selected = pos - 1
		a.setError("Блок не завершён", apperr.Validation("tui.questions", "Пожалуйста, ответьте на вопрос %d", pos))
		return a, nil
	}
	if !s.Advance() {
		a.setStatus("Все вопросы заполнены")
		a.state = stateConfirmSave
		return a, nil
	}
	v.selected, _ = s.CurrentBlock()
	a.setStatus("Вопросы %s", v.rangeLabel())
	return a, nil
}

func (v *questionsView) rangeLabel() string {
	s := v.app.session
	start, end := s.CurrentBlock()
	return fmt.Sprintf("%d-%d из %d", start+1, end, s.Len())
}

func (v *questionsView) openTemplates() {
	dir := v.app.config.TemplatesDir()
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("explorer", dir)
	case "darwin":
		cmd = exec.Command("open", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}
	if err := cmd.Start(); err != nil {
		v.app.setError("Не удалось открыть папку", apperr.Wrap(apperr.KindIO, "tui.openTemplates", err))
		return
	}
	go func() { _ = cmd.Wait() }()
}

func (v *questionsView) View() string {
	a := v.app
	s := a.session
	start, end := s.CurrentBlock()
	answered, total := s.Progress()

	head := titleStyle.Render(fmt.Sprintf("Отчёт: %s %s", s.Role, s.Period))
	sub := mutedStyle.Render(fmt.Sprintf("Вопросы %s · блок %d из %d · отвечено %d из %d",
		v.rangeLabel(), s.BlockNumber(), s.BlockCount(), answered, total))

	if v.overlay != overlayNone {
		return lipgloss.JoinVertical(lipgloss.Left, head, sub, "", v.renderOverlay())
	}

	rows := []string{head, sub, ""}
	for i := start; i < end; i++ {
		rows = append(rows, v.renderQuestion(i))
	}
	if v.editing {
		rows = append(rows, titleStyle.Render(fmt.Sprintf("Комментарий к вопросу %d", v.selected+1)), v.comment.View(),
			hintStyle.Render("esc — готово"))
	} else {
		nextLabel := "→ далее"
		if s.IsLastBlock() {
			nextLabel = "→ завершить"
		}
		rows = append(rows, hintStyle.Render("↑/↓ — вопрос · y/д — да · n/н — нет · c — комментарий · ? — справка · o — документы · ← назад · "+nextLabel+" · esc — прервать"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *questionsView) renderQuestion(i int) string {
	q, _ := v.app.session.Question(i)
	answer, _ := v.app.session.Answer(i)

	marker := "  "
	style := lipgloss.NewStyle()
	if i == v.selected {
		marker = "▸ "
		style = style.Bold(true)
	}
	decision := mutedStyle.Render("[ не отвечено ]")
	switch answer.Decision {
	case form.Yes:
		decision = okStyle.Render("[ Да ]")
	case form.No:
		decision = errorStyle.Render("[ Нет ]")
	}
	width := max(20, v.width-16)
	text := lipgloss.NewStyle().Width(width).Render(fmt.Sprintf("%d. %s", i+1, q.Text))
	line := lipgloss.JoinHorizontal(lipgloss.Top, marker, style.Render(text), " ", decision)
	if answer.Comment != "" {
		line += "\n    " + mutedStyle.Render("💬 "+answer.Comment)
	}
	return line + "\n"
}

func (v *questionsView) renderOverlay() string {
	q, _ := v.app.session.Question(v.selected)
	orNone := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return noInformation
		}
		return s
	}
	width := max(20, v.width-4)
	wrap := lipgloss.NewStyle().Width(width)
	var lines []string
	switch v.overlay {
	case overlayHelp:
		lines = []string{
			titleStyle.Render(fmt.Sprintf("Справка · вопрос %d", v.selected+1)),
			"",
			titleStyle.Render("ГОСТ ИСО 9001:"),
			wrap.Render(orNone(q.StandardReference)),
			"",
			titleStyle.Render("Руководство по качеству:"),
			wrap.Render(orNone(q.QualityGuidance)),
			"",
			hintStyle.Render("esc — закрыть"),
		}
	case overlayDocuments:
		docs := strings.TrimSpace(q.RelatedDocuments)
		if docs == "" {
			docs = "Для этого вопроса нет связанных документов"
		}
		lines = []string{
			titleStyle.Render("Документы для этого вопроса:"),
			"",
			wrap.Render(docs),
			"",
			mutedStyle.Render("Папка шаблонов: " + v.app.config.TemplatesDir()),
			hintStyle.Render("f — открыть папку шаблонов · esc — закрыть"),
		}
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) updateConfirmSave(key string) (tea.Model, tea.Cmd) {
	switch {
	case isYes(key):
		a.busy = "Сохранение отчёта…"
		return a, a.finalizeCmd()
	case isNo(key):
		a.state = stateQuestions
		a.setStatus("Сохранение отменено")
	}
	return a, nil
}

func (a *App) updateConfirmDiscard(key string) (tea.Model, tea.Cmd) {
	switch {
	case isYes(key):
		a.logWarn("Заполнение отчёта %s · %s прервано", a.session.Role, a.session.Period)
		a.setStatus("Заполнение прервано, ответы не сохранены")
		return a.returnToMainMenu()
	case isNo(key):
		a.state = a.returnState
	}
	return a, nil
}

func (a *App) renderConfirmSave() string {
	s := a.session
	return a.renderConfirm("Завершение отчёта",
		fmt.Sprintf("Все вопросы заполнены (%d).\n\nСохранить отчёт «%s %s» в базу данных и экспортировать в Excel?", s.Len(), s.Role, s.Period))
}

func (a *App) handleFinalized(msg finalizedMsg) (tea.Model, tea.Cmd) {
	a.busy = ""
	if msg.err != nil {
		headline := "Ошибка при сохранении"
		if msg.result.Orphaned {
			headline = fmt.Sprintf("Документ %s создан, но отчёт не записан в базу", msg.result.FileName)
		}
		a.setError(headline, msg.err)
		a.state = stateQuestions
		return a, nil
	}
	a.logInfo("Отчёт сохранён · ID %d · %s", msg.result.ReportID, msg.result.FileName)
	a.returnToMainMenu()
	a.session = session.New(a.config.PageSize())
	a.setStatus("Отчёт сохранён! Файл: %s · папка: %s", msg.result.FileName, a.config.ReportsDir())
	return a, nil
}
