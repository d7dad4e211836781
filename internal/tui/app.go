// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for reportdesk.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: the application state (App)
// 2. Update: a function that updates state based on messages
// 3. View: a function that renders state to a string
//
// Slow work (loading spreadsheets, database access, Telegram calls) runs in
// tea.Cmds and reports back through the *Msg types in commands.go.

package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/reportdesk/internal/apperr"
	"github.com/kingrea/reportdesk/internal/archive"
	"github.com/kingrea/reportdesk/internal/config"
	"github.com/kingrea/reportdesk/internal/export"
	"github.com/kingrea/reportdesk/internal/logbook"
	"github.com/kingrea/reportdesk/internal/logging"
	"github.com/kingrea/reportdesk/internal/notify"
	"github.com/kingrea/reportdesk/internal/report"
	"github.com/kingrea/reportdesk/internal/session"
	"github.com/kingrea/reportdesk/internal/store"
)

// appState represents which "screen" we're on
type appState int

const (
	stateMainMenu       appState = iota // Main menu
	stateSetup                          // Role, period and report date
	stateQuestions                      // Answering a block of questions
	stateConfirmSave                    // All answered, waiting for y/n
	stateConfirmDiscard                 // Leaving an unfinished questionnaire
	stateArchive                        // Stored reports list
	stateReportView                     // One stored report
	stateConfirmDelete                  // Deleting a stored report
	stateSettings                       // Telegram credentials
	stateHelp                           // Key reference and folders
)

const logPanelLines = 6

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogger attaches the diagnostic logger shared with the services.
func WithLogger(log *logging.Logger) AppOption {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

// WithClock overrides the clock used for default year and report date.
func WithClock(now func() time.Time) AppOption {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state   appState
	config  *config.Config
	log     *logging.Logger
	logbook *logbook.Logbook
	now     func() time.Time

	store     *store.Store
	persister *report.Persister
	archive   *archive.Reader
	notifier  *notify.Telegram

	session   *session.Session
	setup     *setupView
	questions *questionsView
	settings  *settingsView

	// UI components
	mainMenu    list.Model
	archiveList list.Model
	viewer      viewport.Model

	reports       []store.Report
	viewed        *store.Report
	pendingDelete *store.Report
	returnState   appState

	statusMsg string
	err       error
	busy      string

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp wires the services for cfg and returns the model. The work
// directory must already be initialised.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	app := &App{
		state:  stateMainMenu,
		config: cfg,
		log:    logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), logbook.FileName))
	if err != nil {
		return nil, fmt.Errorf("open journey log: %w", err)
	}
	app.logbook = lb

	app.store = store.New(cfg.DatabasePath(), app.log)
	app.persister = report.NewPersister(export.NewWriter(cfg.ReportsDir(), app.log), app.store, app.log)
	app.archive = archive.NewReader(app.store, app.log)
	app.notifier = notify.NewTelegram(app.archive, cfg.TelegramCredentialsPath(),
		notify.WithAPIBase(cfg.TelegramAPIBase()),
		notify.WithTimeout(cfg.TelegramTimeout()),
		notify.WithLogger(app.log),
	)
	app.session = session.New(cfg.PageSize())

	app.mainMenu = newList("📋 СИСТЕМА ОТЧЁТОВ", buildMainMenu())
	app.archiveList = newList("Архив отчётов", nil)
	app.viewer = viewport.New(80, 20)

	app.logInfo("Программа запущена · рабочая папка: %s", cfg.WorkDir)
	return app, nil
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)
	return l
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// setStatus shows an informational line and clears any previous error.
func (a *App) setStatus(format string, args ...any) {
	a.err = nil
	a.statusMsg = fmt.Sprintf(format, args...)
}

// setError shows err as the status line and records it in the journey log.
func (a *App) setError(context string, err error) {
	a.err = err
	a.statusMsg = context
	a.logError("%s: %s", context, apperr.Message(err))
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.initStoreCmd()
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case storeReadyMsg:
		return a.handleStoreReady(msg)
	case formLoadedMsg:
		return a.handleFormLoaded(msg)
	case finalizedMsg:
		return a.handleFinalized(msg)
	case archiveLoadedMsg:
		return a.handleArchiveLoaded(msg)
	case reportLoadedMsg:
		return a.handleReportLoaded(msg)
	case reportDeletedMsg:
		return a.handleReportDeleted(msg)
	case reportSentMsg:
		return a.handleReportSent(msg)
	case reexportedMsg:
		return a.handleReexported(msg)
	case connectionTestedMsg:
		return a.handleConnectionTested(msg)

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return a, tea.Quit
		}
		if a.busy != "" {
			return a, nil
		}
		switch a.state {
		case stateMainMenu:
			return a.updateMainMenu(msg)
		case stateSetup:
			return a.setup.Update(msg)
		case stateQuestions:
			return a.questions.Update(msg)
		case stateConfirmSave:
			return a.updateConfirmSave(key)
		case stateConfirmDiscard:
			return a.updateConfirmDiscard(key)
		case stateArchive:
			return a.updateArchive(msg)
		case stateReportView:
			return a.updateReportView(msg)
		case stateConfirmDelete:
			return a.updateConfirmDelete(key)
		case stateSettings:
			return a.settings.Update(msg)
		case stateHelp:
			if key == "esc" || key == "q" || key == "enter" {
				return a.returnToMainMenu()
			}
		}
	}
	return a, nil
}

func (a *App) resize() {
	w, h := a.contentSize()
	a.mainMenu.SetSize(w, h)
	a.archiveList.SetSize(w, h)
	a.viewer.Width = w
	a.viewer.Height = max(5, h-4)
	if a.questions != nil {
		a.questions.resize(w)
	}
}

func (a *App) contentSize() (int, int) {
	width := a.width
	if width <= 0 {
		width = 100
	}
	height := a.height
	if height <= 0 {
		height = 40
	}
	return max(20, width-6), max(8, height-logPanelLines-10)
}

// returnToMainMenu transitions back to the main menu
func (a *App) returnToMainMenu() (tea.Model, tea.Cmd) {
	a.state = stateMainMenu
	a.setup = nil
	a.questions = nil
	a.settings = nil
	a.viewed = nil
	a.pendingDelete = nil
	return a, nil
}

// View renders the current state to a string.
func (a *App) View() string {
	var content string
	switch a.state {
	case stateMainMenu:
		content = a.mainMenu.View()
	case stateSetup:
		content = a.setup.View()
	case stateQuestions:
		content = a.questions.View()
	case stateConfirmSave:
		content = a.renderConfirmSave()
	case stateConfirmDiscard:
		content = a.renderConfirm("Прервать заполнение отчёта?", "Введённые ответы не будут сохранены.")
	case stateArchive:
		content = a.renderArchive()
	case stateReportView:
		content = a.renderReportView()
	case stateConfirmDelete:
		content = a.renderConfirmDelete()
	case stateSettings:
		content = a.settings.View()
	case stateHelp:
		content = a.renderHelp()
	}

	header := headerStyle.Render("📋 Система отчётов") + "  " + mutedStyle.Render(a.config.WorkDir)
	parts := []string{header, content, a.renderStatus()}
	if panel := a.renderLogPanel(); panel != "" {
		parts = append(parts, panel)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) renderStatus() string {
	if a.busy != "" {
		return hintStyle.Render("⏳ " + a.busy)
	}
	if a.err != nil {
		line := apperr.Message(a.err)
		if a.statusMsg != "" {
			line = a.statusMsg + ": " + line
		}
		return errorStyle.Render(line)
	}
	if a.statusMsg != "" {
		return okStyle.Render(a.statusMsg)
	}
	return ""
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	head := titleStyle.Render(fmt.Sprintf("ЖУРНАЛ · %s · %d записей", filepath.Base(a.logbook.Path()), total))
	body := hintStyle.Render(strings.Join(lines, "\n"))
	return boxStyle.Render(head + "\n" + body)
}

func (a *App) renderConfirm(question, detail string) string {
	lines := []string{titleStyle.Render(question)}
	if detail != "" {
		lines = append(lines, "", detail)
	}
	lines = append(lines, "", hintStyle.Render("y / д — да · n / н / esc — нет"))
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func isYes(key string) bool {
	switch key {
	case "y", "Y", "д", "Д", "enter":
		return true
	}
	return false
}

func isNo(key string) bool {
	switch key {
	case "n", "N", "н", "Н", "esc":
		return true
	}
	return false
}
