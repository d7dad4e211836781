package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/reportdesk/internal/form"
	"github.com/kingrea/reportdesk/internal/report"
	"github.com/kingrea/reportdesk/internal/store"
)

type storeReadyMsg struct{ err error }

type formLoadedMsg struct {
	role       string
	period     form.Period
	reportDate string
	source     form.Source
	result     form.LoadResult
	err        error
}

type finalizedMsg struct {
	result report.Result
	err    error
}

type archiveLoadedMsg struct {
	reports []store.Report
	err     error
}

type reportLoadedMsg struct {
	report *store.Report
	err    error
}

type reportDeletedMsg struct {
	id  int64
	err error
}

type reportSentMsg struct {
	id       int64
	messages int
	err      error
}

type reexportedMsg struct {
	result report.Result
	err    error
}

type connectionTestedMsg struct {
	pendingReport int64
	err           error
}

func (a *App) initStoreCmd() tea.Cmd {
	st := a.store
	return func() tea.Msg {
		return storeReadyMsg{err: st.Init(context.Background())}
	}
}

func (a *App) loadFormCmd(role string, period form.Period, reportDate string) tea.Cmd {
	formsDir := a.config.FormsDir()
	return func() tea.Msg {
		msg := formLoadedMsg{role: role, period: period, reportDate: reportDate}
		src, err := form.Resolve(formsDir, role, period)
		if err != nil {
			msg.err = err
			return msg
		}
		msg.source = src
		msg.result, msg.err = form.Load(src.Path)
		return msg
	}
}

func (a *App) finalizeCmd() tea.Cmd {
	persister, s := a.persister, a.session
	return func() tea.Msg {
		res, err := persister.Finalize(context.Background(), s)
		return finalizedMsg{result: res, err: err}
	}
}

func (a *App) loadArchiveCmd() tea.Cmd {
	reader := a.archive
	return func() tea.Msg {
		reports, err := reader.ListAll(context.Background())
		return archiveLoadedMsg{reports: reports, err: err}
	}
}

func (a *App) loadReportCmd(id int64) tea.Cmd {
	reader := a.archive
	return func() tea.Msg {
		r, err := reader.GetByID(context.Background(), id)
		return reportLoadedMsg{report: r, err: err}
	}
}

func (a *App) deleteReportCmd(id int64) tea.Cmd {
	reader := a.archive
	return func() tea.Msg {
		return reportDeletedMsg{id: id, err: reader.DeleteByID(context.Background(), id)}
	}
}

func (a *App) sendReportCmd(id int64) tea.Cmd {
	notifier := a.notifier
	return func() tea.Msg {
		n, err := notifier.SendReport(context.Background(), id)
		return reportSentMsg{id: id, messages: n, err: err}
	}
}

func (a *App) reexportCmd(id int64) tea.Cmd {
	persister := a.persister
	return func() tea.Msg {
		res, err := persister.Reexport(context.Background(), id)
		return reexportedMsg{result: res, err: err}
	}
}

func (a *App) testConnectionCmd(pendingReport int64) tea.Cmd {
	notifier := a.notifier
	return func() tea.Msg {
		return connectionTestedMsg{pendingReport: pendingReport, err: notifier.TestConnection(context.Background())}
	}
}

func (a *App) handleStoreReady(msg storeReadyMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.setError("База данных недоступна", msg.err)
		a.log.Error("database init failed", "error", msg.err)
		return a, nil
	}
	a.logInfo("База данных готова")
	return a, nil
}
