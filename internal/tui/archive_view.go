package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/reportdesk/internal/archive"
	"github.com/kingrea/reportdesk/internal/store"
)

// reportItem implements list.Item for a stored report header.
type reportItem struct {
	report store.Report
}

func (i reportItem) Title() string {
	return fmt.Sprintf("#%d · %s", i.report.ID, archive.Title(i.report))
}

func (i reportItem) Description() string {
	parts := []string{"Создан: " + archive.CreatedLabel(i.report)}
	if i.report.ReportDate != "" {
		parts = append(parts, "дата отчёта: "+i.report.ReportDate)
	}
	return strings.Join(parts, " · ")
}

func (i reportItem) FilterValue() string { return archive.Title(i.report) }

func (a *App) openArchive() (tea.Model, tea.Cmd) {
	a.state = stateArchive
	a.viewed = nil
	a.busy = "Загрузка архива…"
	return a, a.loadArchiveCmd()
}

func (a *App) handleArchiveLoaded(msg archiveLoadedMsg) (tea.Model, tea.Cmd) {
	a.busy = ""
	if msg.err != nil {
		a.setError("Не удалось загрузить архив", msg.err)
		return a, nil
	}
	a.reports = msg.reports
	items := make([]list.Item, len(msg.reports))
	for i, r := range msg.reports {
		items[i] = reportItem{report: r}
	}
	cmd := a.archiveList.SetItems(items)
	if len(items) == 0 {
		a.setStatus("Нет сохранённых отчётов")
	}
	return a, cmd
}

func (a *App) selectedReport() (store.Report, bool) {
	item, ok := a.archiveList.SelectedItem().(reportItem)
	if !ok {
		return store.Report{}, false
	}
	return item.report, true
}

func (a *App) updateArchive(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc", "q":
		return a.returnToMainMenu()
	case "r", "к":
		return a.openArchive()
	case "enter", "v", "м", "t", "е", "e", "у", "x", "ч", "delete":
		selected, ok := a.selectedReport()
		if !ok {
			a.setStatus("Выберите отчёт из списка")
			return a, nil
		}
		return a.reportAction(key, selected)
	}
	var cmd tea.Cmd
	a.archiveList, cmd = a.archiveList.Update(msg)
	return a, cmd
}

// reportAction runs an action shared by the archive list and the report
// viewer.
func (a *App) reportAction(key string, r store.Report) (tea.Model, tea.Cmd) {
	switch key {
	case "enter", "v", "м":
		a.busy = "Загрузка отчёта…"
		return a, a.loadReportCmd(r.ID)
	case "t", "е":
		if !a.notifier.Configured() {
			a.setStatus("Telegram не настроен, заполните токен бота и Chat ID")
			return a.openSettings(r.ID)
		}
		a.busy = "Отправка в Telegram…"
		a.logInfo("Отправка отчёта #%d в Telegram", r.ID)
		return a, a.sendReportCmd(r.ID)
	case "e", "у":
		a.busy = "Экспорт…"
		return a, a.reexportCmd(r.ID)
	case "x", "ч", "delete":
		copied := r
		a.pendingDelete = &copied
		a.returnState = a.state
		a.state = stateConfirmDelete
	}
	return a, nil
}

func (a *App) handleReportLoaded(msg reportLoadedMsg) (tea.Model, tea.Cmd) {
	a.busy = ""
	if msg.err != nil {
		a.setError("Не удалось открыть отчёт", msg.err)
		return a, nil
	}
	a.viewed = msg.report
	a.viewer.SetContent(formatReportBody(msg.report, a.viewer.Width))
	a.viewer.GotoTop()
	a.state = stateReportView
	return a, nil
}

func (a *App) updateReportView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc", "q", "backspace":
		a.viewed = nil
		a.state = stateArchive
		return a, nil
	case "t", "е", "e", "у", "x", "ч", "delete":
		if a.viewed != nil {
			return a.reportAction(key, *a.viewed)
		}
	}
	var cmd tea.Cmd
	a.viewer, cmd = a.viewer.Update(msg)
	return a, cmd
}

func (a *App) updateConfirmDelete(key string) (tea.Model, tea.Cmd) {
	switch {
	case isYes(key):
		if a.pendingDelete == nil {
			a.state = stateArchive
			return a, nil
		}
		a.busy = "Удаление…"
		return a, a.deleteReportCmd(a.pendingDelete.ID)
	case isNo(key):
		a.pendingDelete = nil
		a.state = a.returnState
	}
	return a, nil
}

func (a *App) handleReportDeleted(msg reportDeletedMsg) (tea.Model, tea.Cmd) {
	a.busy = ""
	a.pendingDelete = nil
	if msg.err != nil {
		a.setError("Ошибка при удалении", msg.err)
		a.state = stateArchive
		return a, nil
	}
	a.logInfo("Отчёт #%d удалён", msg.id)
	a.setStatus("Отчёт удалён")
	return a.openArchive()
}

func (a *App) handleReportSent(msg reportSentMsg) (tea.Model, tea.Cmd) {
	a.busy = ""
	if msg.err != nil {
		a.setError("Ошибка отправки в Telegram", msg.err)
		return a, nil
	}
	a.logInfo("Отчёт #%d отправлен в Telegram (%d сообщ.)", msg.id, msg.messages)
	if msg.messages > 1 {
		a.setStatus("✅ Отчёт отправлен в Telegram (%d сообщений)", msg.messages)
	} else {
		a.setStatus("✅ Отчёт успешно отправлен в Telegram")
	}
	return a, nil
}

func (a *App) handleReexported(msg reexportedMsg) (tea.Model, tea.Cmd) {
	a.busy = ""
	if msg.err != nil {
		a.setError("Ошибка экспорта", msg.err)
		return a, nil
	}
	a.logInfo("Отчёт #%d экспортирован заново · %s", msg.result.ReportID, msg.result.FileName)
	a.setStatus("Отчёт экспортирован: %s", msg.result.FilePath)
	return a, nil
}

func (a *App) renderArchive() string {
	hint := hintStyle.Render("enter — открыть · e — экспорт · t — Telegram · x — удалить · r — обновить · esc — назад")
	if len(a.reports) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Архив отчётов"), "", mutedStyle.Render("Нет сохранённых отчётов"), "", hint)
	}
	return lipgloss.JoinVertical(lipgloss.Left, a.archiveList.View(), hint)
}

func (a *App) renderReportView() string {
	if a.viewed == nil {
		return ""
	}
	r := a.viewed
	head := titleStyle.Render(archive.Title(*r))
	info := mutedStyle.Render(fmt.Sprintf("Дата отчёта: %s · создан: %s · файл: %s", r.ReportDate, archive.CreatedLabel(*r), r.FilePath))
	hint := hintStyle.Render("↑/↓ — прокрутка · e — экспорт · t — Telegram · x — удалить · esc — к архиву")
	return lipgloss.JoinVertical(lipgloss.Left, head, info, "", a.viewer.View(), hint)
}

func (a *App) renderConfirmDelete() string {
	if a.pendingDelete == nil {
		return ""
	}
	return a.renderConfirm("Подтверждение",
		fmt.Sprintf("Вы уверены, что хотите удалить отчёт:\n%s?", archive.Title(*a.pendingDelete)))
}

func formatReportBody(r *store.Report, width int) string {
	rule := strings.Repeat("-", max(10, min(80, width)))
	wrap := lipgloss.NewStyle().Width(max(20, width))
	var b strings.Builder
	for i, ans := range r.Answers {
		b.WriteString(wrap.Render(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d. %s", i+1, ans.QuestionText))))
		b.WriteString("\n")
		b.WriteString("Ответ: " + ans.Decision + "\n")
		if ans.Comment != "" {
			b.WriteString(wrap.Render("Комментарий: "+ans.Comment) + "\n")
		}
		b.WriteString(rule + "\n")
	}
	return b.String()
}
