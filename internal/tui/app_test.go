package tui

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/xuri/excelize/v2"

	"github.com/kingrea/reportdesk/internal/config"
	"github.com/kingrea/reportdesk/internal/store"
)

var testNow = time.Date(2024, 3, 31, 10, 0, 0, 0, time.Local)

func newTestApp(t *testing.T) *App {
	t.Helper()
	workDir := t.TempDir()
	if err := config.InitWorkDir(workDir); err != nil {
		t.Fatalf("init work dir: %v", err)
	}
	cfg, err := config.NewConfig(workDir)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	app, err := NewApp(cfg, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return runCommands(t, app, app.Init())
}

func writeForm(t *testing.T, app *App, name string, questions int) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{"Вопрос", "ГОСТ", "Руководство", "Документы"}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= questions; i++ {
		row := []any{fmt.Sprintf("Вопрос %d", i), fmt.Sprintf("п. %d", i), "", ""}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(filepath.Join(app.config.FormsDir(), name)); err != nil {
		t.Fatalf("save form: %v", err)
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, app *App, keys ...string) *App {
	t.Helper()
	for _, k := range keys {
		model, cmd := app.Update(keyMsg(k))
		app = runCommands(t, model, cmd)
	}
	return app
}

// runCommands executes cmd and feeds the app's own result messages back
// into Update until no further work is scheduled.
func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	for cmd != nil {
		msg := cmd()
		switch msg := msg.(type) {
		case tea.BatchMsg:
			for _, c := range msg {
				app = runCommands(t, app, c)
			}
			return app
		case storeReadyMsg, formLoadedMsg, finalizedMsg, archiveLoadedMsg, reportLoadedMsg,
			reportDeletedMsg, reportSentMsg, reexportedMsg, connectionTestedMsg:
			nextModel, nextCmd := app.Update(msg)
			app, ok = nextModel.(*App)
			if !ok {
				t.Fatalf("unexpected model type: %T", nextModel)
			}
			cmd = nextCmd
		default:
			return app
		}
	}
	return app
}

func seedReport(t *testing.T, app *App, role string) int64 {
	t.Helper()
	id, err := app.store.SaveReport(context.Background(), &store.Report{
		Role:       role,
		Month:      "Март",
		Year:       2024,
		ReportDate: "31.03.2024",
		Answers: []store.Answer{
			{QuestionText: "Вопрос 1", Decision: "Да"},
			{QuestionText: "Вопрос 2", Decision: "Нет", Comment: "нет записи"},
		},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func TestQuestionnaireIsSavedAndExported(t *testing.T) {
	app := newTestApp(t)
	writeForm(t, app, "Инженер.xlsx", 7)

	app = press(t, app, "enter")
	if app.state != stateSetup {
		t.Fatalf("expected setup screen, got %d (%s)", app.state, app.statusMsg)
	}
	app = press(t, app, "enter")
	if app.state != stateQuestions || app.session.Len() != 7 {
		t.Fatalf("questions not loaded: state=%d err=%v", app.state, app.err)
	}
	if app.session.Period.Month != "Март" || app.session.Period.Year != 2024 || app.session.ReportDate != "31.03.2024" {
		t.Fatalf("unexpected session header %+v", app.session)
	}

	app = press(t, app, "right")
	if app.session.Cursor() != 0 || app.err == nil {
		t.Fatalf("unanswered block must not advance")
	}

	app = press(t, app, "y", "y", "y", "y", "д", "right")
	if app.session.Cursor() != 5 {
		t.Fatalf("expected second block, cursor=%d err=%v", app.session.Cursor(), app.err)
	}
	app = press(t, app, "n", "y", "c", "замечание", "esc", "right")
	if app.state != stateConfirmSave {
		t.Fatalf("expected save confirmation, got %d (%v)", app.state, app.err)
	}

	app = press(t, app, "y")
	if app.state != stateMainMenu {
		t.Fatalf("expected main menu after save, got %d (%v)", app.state, app.err)
	}
	if !strings.Contains(app.statusMsg, "Отчёт сохранён") {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}

	reports, err := app.archive.ListAll(context.Background())
	if err != nil || len(reports) != 1 {
		t.Fatalf("expected one stored report: %v %d", err, len(reports))
	}
	stored, err := app.archive.GetByID(context.Background(), reports[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(stored.Answers) != 7 || stored.Answers[5].Decision != "Нет" || stored.Answers[6].Comment != "замечание" {
		t.Fatalf("unexpected answers %+v", stored.Answers)
	}
	if stored.Answers[0].StandardReference != "п. 1" {
		t.Fatalf("reference fields not stored: %+v", stored.Answers[0])
	}
	if _, err := os.Stat(stored.FilePath); err != nil {
		t.Fatalf("exported document missing: %v", err)
	}
}

func TestEscapeDiscardsQuestionnaire(t *testing.T) {
	app := newTestApp(t)
	writeForm(t, app, "Мастер_2.xlsx", 3)

	app = press(t, app, "enter", "enter", "y", "esc")
	if app.state != stateConfirmDiscard {
		t.Fatalf("expected discard confirmation, got %d", app.state)
	}
	app = press(t, app, "n")
	if app.state != stateQuestions {
		t.Fatalf("declining must return to questions, got %d", app.state)
	}
	app = press(t, app, "esc", "y")
	if app.state != stateMainMenu {
		t.Fatalf("expected main menu, got %d", app.state)
	}
	reports, _ := app.archive.ListAll(context.Background())
	if len(reports) != 0 {
		t.Fatalf("discarded session must not be stored")
	}
}

func TestNewReportWithoutForms(t *testing.T) {
	app := newTestApp(t)
	app = press(t, app, "enter")
	if app.state != stateMainMenu {
		t.Fatalf("expected to stay on main menu, got %d", app.state)
	}
	if !strings.Contains(app.statusMsg, "Не найдены файлы форм") {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
}

func TestArchiveViewAndDelete(t *testing.T) {
	app := newTestApp(t)
	first := seedReport(t, app, "Инженер")
	seedReport(t, app, "Мастер")

	app = press(t, app, "down", "enter")
	if app.state != stateArchive || len(app.reports) != 2 {
		t.Fatalf("archive not loaded: state=%d reports=%d err=%v", app.state, len(app.reports), app.err)
	}

	app = press(t, app, "down", "enter")
	if app.state != stateReportView || app.viewed == nil || app.viewed.ID != first {
		t.Fatalf("expected viewer for report %d, got state=%d", first, app.state)
	}
	if !strings.Contains(app.View(), "Инженер - Март 2024") {
		t.Fatalf("viewer does not show the report title")
	}

	app = press(t, app, "x")
	if app.state != stateConfirmDelete {
		t.Fatalf("expected delete confirmation, got %d", app.state)
	}
	app = press(t, app, "y")
	if app.state != stateArchive || len(app.reports) != 1 || app.reports[0].ID == first {
		t.Fatalf("report not deleted: state=%d reports=%+v err=%v", app.state, app.reports, app.err)
	}
}

func TestArchiveReexport(t *testing.T) {
	app := newTestApp(t)
	seedReport(t, app, "Инженер")

	app = press(t, app, "down", "enter", "e")
	if app.err != nil {
		t.Fatalf("re-export failed: %v", app.err)
	}
	entries, err := os.ReadDir(app.config.ReportsDir())
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one exported file, got %d (%v)", len(entries), err)
	}
}

type telegramServer struct {
	mu    sync.Mutex
	texts []string
}

func (s *telegramServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	s.mu.Lock()
	s.texts = append(s.texts, r.PostForm.Get("text"))
	s.mu.Unlock()
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func TestSendFromArchiveAsksForCredentials(t *testing.T) {
	tg := &telegramServer{}
	srv := httptest.NewServer(tg)
	defer srv.Close()
	t.Setenv(config.EnvTelegramAPI, srv.URL)

	app := newTestApp(t)
	id := seedReport(t, app, "Инженер")

	app = press(t, app, "down", "enter", "t")
	if app.state != stateSettings || app.settings == nil || app.settings.pendingReport != id {
		t.Fatalf("expected settings with pending report, got state=%d", app.state)
	}

	app = press(t, app, "no-colon", "tab", "-100", "enter")
	if app.err == nil || app.state != stateSettings {
		t.Fatalf("invalid token must be rejected")
	}

	app = press(t, app, "tab")
	app.settings.token.SetValue("123:abc")
	app = press(t, app, "enter")
	if app.err != nil {
		t.Fatalf("send failed: %v", app.err)
	}
	if app.state != stateArchive {
		t.Fatalf("expected to return to the archive, got %d", app.state)
	}
	if len(tg.texts) != 2 || !strings.HasPrefix(tg.texts[1], "📋 Инженер - Март 2024") {
		t.Fatalf("expected test message then report, got %q", tg.texts)
	}
	if !strings.Contains(app.statusMsg, "отправлен") {
		t.Fatalf("unexpected status %q", app.statusMsg)
	}
}

func TestViewRendersEveryScreen(t *testing.T) {
	app := newTestApp(t)
	writeForm(t, app, "Инженер.xlsx", 2)
	if !strings.Contains(app.View(), "Новый отчёт") {
		t.Fatalf("main menu missing")
	}
	app = press(t, app, "enter")
	if !strings.Contains(app.View(), "Инженер") {
		t.Fatalf("setup view missing role")
	}
	app = press(t, app, "enter", "?")
	if !strings.Contains(app.View(), "п. 1") {
		t.Fatalf("help overlay missing standard reference")
	}
	app = press(t, app, "esc", "o")
	if !strings.Contains(app.View(), "нет связанных документов") {
		t.Fatalf("documents overlay missing")
	}
	app = press(t, app, "esc", "esc", "y", "down", "down", "down", "enter")
	if app.state != stateHelp || !strings.Contains(app.View(), app.config.FormsDir()) {
		t.Fatalf("help screen missing folders")
	}
}
