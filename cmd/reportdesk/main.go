// cmd/reportdesk/main.go
//
// Entry point for reportdesk. Without a subcommand it opens the terminal UI;
// the subcommands expose the archive, Telegram and backup operations for
// scripts.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/reportdesk/internal/apperr"
	"github.com/kingrea/reportdesk/internal/archive"
	"github.com/kingrea/reportdesk/internal/config"
	"github.com/kingrea/reportdesk/internal/export"
	"github.com/kingrea/reportdesk/internal/form"
	"github.com/kingrea/reportdesk/internal/logging"
	"github.com/kingrea/reportdesk/internal/notify"
	"github.com/kingrea/reportdesk/internal/report"
	"github.com/kingrea/reportdesk/internal/store"
	"github.com/kingrea/reportdesk/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// fail maps a workflow error to an exit code: 2 for input the user can fix,
// 4 for Telegram failures, 1 for everything else.
func fail(err error) error {
	if err == nil {
		return nil
	}
	code := 1
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound:
		code = 2
	case apperr.KindNetwork:
		code = 4
	}
	return &exitErr{code: code, msg: apperr.Message(err)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Ошибка:", ee.msg)
			stop()
			os.Exit(ee.code)
		}
		// cobra already printed the error
		stop()
		os.Exit(1)
	}
}

// services is everything a command needs, built once per invocation.
type services struct {
	cfg       *config.Config
	log       *logging.Logger
	store     *store.Store
	archive   *archive.Reader
	persister *report.Persister
	notifier  *notify.Telegram
}

func (s *services) close() {
	_ = s.log.Close()
}

// cli holds the state shared by the command tree.
type cli struct {
	out     io.Writer
	workDir string
}

// open resolves and initialises the work directory, then wires the services.
func (c *cli) open(ctx context.Context) (*services, error) {
	workDir := c.workDir
	if workDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, codeError(3, "не удалось определить путь к программе: %s", err)
		}
		workDir, err = config.ResolveWorkDir(filepath.Dir(exe))
		if err != nil {
			return nil, codeError(3, "рабочая папка: %s", err)
		}
	}
	if err := config.InitWorkDir(workDir); err != nil {
		return nil, codeError(3, "не удалось создать рабочую папку: %s", err)
	}
	cfg, err := config.NewConfig(workDir)
	if err != nil {
		return nil, codeError(3, "настройки: %s", err)
	}
	log, err := logging.New(cfg.LogsDir(), cfg.Settings.Debug)
	if err != nil {
		return nil, codeError(3, "%s", err)
	}

	st := store.New(cfg.DatabasePath(), log)
	if err := st.Init(ctx); err != nil {
		_ = log.Close()
		return nil, fail(err)
	}
	reader := archive.NewReader(st, log)
	return &services{
		cfg:       cfg,
		log:       log,
		store:     st,
		archive:   reader,
		persister: report.NewPersister(export.NewWriter(cfg.ReportsDir(), log), st, log),
		notifier: notify.NewTelegram(reader, cfg.TelegramCredentialsPath(),
			notify.WithAPIBase(cfg.TelegramAPIBase()),
			notify.WithTimeout(cfg.TelegramTimeout()),
			notify.WithLogger(log),
		),
	}, nil
}

// run adapts fn to cobra's RunE, opening the services around it.
func (c *cli) run(fn func(ctx context.Context, svc *services, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := c.open(ctx)
		if err != nil {
			return err
		}
		defer svc.close()
		return fn(ctx, svc, args)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:           "reportdesk",
		Short:         "Заполнение, хранение и отправка отчётов по формам",
		Long:          "reportdesk проводит пользователя по анкете из Excel формы, сохраняет ответы в локальную базу, экспортирует отчёт в Excel и отправляет его в Telegram.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          c.run(runTUI),
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.workDir, "workdir", "", "Рабочая папка (по умолчанию "+config.HomeEnv+" или папка программы)")

	root.AddCommand(c.formsCmd(), c.archiveCmd(), c.telegramCmd(), c.dbCmd())
	return root
}

func runTUI(_ context.Context, svc *services, _ []string) error {
	app, err := tui.NewApp(svc.cfg, tui.WithLogger(svc.log))
	if err != nil {
		return codeError(1, "%s", err)
	}
	svc.log.Info("tui started", "workdir", svc.cfg.WorkDir, "version", version)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return codeError(1, "ошибка интерфейса: %s", err)
	}
	return nil
}

func (c *cli) formsCmd() *cobra.Command {
	var month string
	var year int
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Показать формы и файл вопросов для периода",
		Args:  cobra.NoArgs,
		RunE: c.run(func(_ context.Context, svc *services, _ []string) error {
			if month == "" {
				month = form.Months()[time.Now().Month()-1]
			}
			if year == 0 {
				year = time.Now().Year()
			}
			if form.MonthIndex(month) == 0 {
				return fail(apperr.Validation("forms", "неизвестный месяц %q", month))
			}
			period := form.Period{Month: month, Year: year}
			roles, err := form.Catalog(svc.cfg.FormsDir())
			if err != nil && !errors.Is(err, apperr.ErrNotFound) {
				return fail(err)
			}
			if len(roles) == 0 {
				fmt.Fprintf(c.out, "Не найдены файлы форм в %s\n", svc.cfg.FormsDir())
				return nil
			}
			fmt.Fprintf(c.out, "Период: %s (%s отчёт)\n", period, form.Classify(month).FriendlyName())
			for _, role := range roles {
				src, err := form.Resolve(svc.cfg.FormsDir(), role, period)
				if err != nil {
					fmt.Fprintf(c.out, "%s\t—\t%s\n", role, apperr.Message(err))
					continue
				}
				res, err := form.Load(src.Path)
				if err != nil {
					fmt.Fprintf(c.out, "%s\t%s\t%s\n", role, src.Name, apperr.Message(err))
					continue
				}
				fmt.Fprintf(c.out, "%s\t%s\t%d вопросов\n", role, src.Name, len(res.Questions))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&month, "month", "", "Месяц отчёта (по умолчанию текущий)")
	cmd.Flags().IntVar(&year, "year", 0, "Год отчёта (по умолчанию текущий)")
	return cmd
}

func (c *cli) archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Работа с сохранёнными отчётами",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Список отчётов, новые первыми",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, svc *services, _ []string) error {
			reports, err := svc.archive.ListAll(ctx)
			if err != nil {
				return fail(err)
			}
			if len(reports) == 0 {
				fmt.Fprintln(c.out, "Нет сохранённых отчётов")
				return nil
			}
			for _, r := range reports {
				fmt.Fprintf(c.out, "%d\t%s\t%s\t%s\n", r.ID, archive.Title(r), archive.CreatedLabel(r), r.ReportDate)
			}
			return nil
		}),
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Показать отчёт с ответами",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, svc *services, args []string) error {
			id, err := archive.ParseID(args[0])
			if err != nil {
				return fail(err)
			}
			r, err := svc.archive.GetByID(ctx, id)
			if err != nil {
				return fail(err)
			}
			fmt.Fprintln(c.out, notify.FormatReport(r))
			if r.FilePath != "" {
				fmt.Fprintf(c.out, "\nФайл: %s\n", r.FilePath)
			}
			return nil
		}),
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Удалить отчёт вместе с ответами",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, svc *services, args []string) error {
			id, err := archive.ParseID(args[0])
			if err != nil {
				return fail(err)
			}
			if !yes {
				return codeError(2, "удаление отчёта %d необратимо, повторите с --yes", id)
			}
			if err := svc.archive.DeleteByID(ctx, id); err != nil {
				return fail(err)
			}
			fmt.Fprintf(c.out, "Отчёт %d удалён\n", id)
			return nil
		}),
	}
	del.Flags().BoolVar(&yes, "yes", false, "Подтвердить удаление")

	exp := &cobra.Command{
		Use:   "export <id>",
		Short: "Повторно экспортировать отчёт в Excel",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, svc *services, args []string) error {
			id, err := archive.ParseID(args[0])
			if err != nil {
				return fail(err)
			}
			res, err := svc.persister.Reexport(ctx, id)
			if err != nil {
				return fail(err)
			}
			fmt.Fprintln(c.out, res.FilePath)
			return nil
		}),
	}

	cmd.AddCommand(list, show, del, exp)
	return cmd
}

func (c *cli) telegramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Настройка и отправка в Telegram",
	}

	var token, chatID string
	configure := &cobra.Command{
		Use:   "configure",
		Short: "Сохранить токен бота и Chat ID",
		Args:  cobra.NoArgs,
		RunE: c.run(func(_ context.Context, svc *services, _ []string) error {
			creds := notify.Credentials{BotToken: token, ChatID: chatID}
			if err := svc.notifier.SaveCredentials(creds); err != nil {
				return fail(err)
			}
			fmt.Fprintf(c.out, "Настройки сохранены в %s\n", svc.cfg.TelegramCredentialsPath())
			return nil
		}),
	}
	configure.Flags().StringVar(&token, "token", "", "Токен бота от @BotFather")
	configure.Flags().StringVar(&chatID, "chat-id", "", "Chat ID получателя")

	test := &cobra.Command{
		Use:   "test",
		Short: "Отправить тестовое сообщение",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, svc *services, _ []string) error {
			if err := svc.notifier.TestConnection(ctx); err != nil {
				return fail(err)
			}
			fmt.Fprintln(c.out, "Соединение установлено, тестовое сообщение отправлено")
			return nil
		}),
	}

	send := &cobra.Command{
		Use:   "send <id>",
		Short: "Отправить отчёт в Telegram",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, svc *services, args []string) error {
			id, err := archive.ParseID(args[0])
			if err != nil {
				return fail(err)
			}
			n, err := svc.notifier.SendReport(ctx, id)
			if err != nil {
				return fail(err)
			}
			fmt.Fprintf(c.out, "Отчёт %d отправлен (%s)\n", id, pluralMessages(n))
			return nil
		}),
	}

	cmd.AddCommand(configure, test, send)
	return cmd
}

func (c *cli) dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Обслуживание базы данных",
	}
	backup := &cobra.Command{
		Use:   "backup",
		Short: "Сделать резервную копию базы в папку backups",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, svc *services, _ []string) error {
			path, err := svc.store.Backup(ctx, svc.cfg.BackupsDir())
			if err != nil {
				return fail(err)
			}
			fmt.Fprintln(c.out, path)
			return nil
		}),
	}
	cmd.AddCommand(backup)
	return cmd
}

func pluralMessages(n int) string {
	if n == 1 {
		return "1 сообщение"
	}
	return strconv.Itoa(n) + " сообщ."
}
