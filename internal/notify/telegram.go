// Package notify pushes stored reports to a Telegram chat through the Bot
// API sendMessage method.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kingrea/reportdesk/internal/apperr"
	"github.com/kingrea/reportdesk/internal/logging"
	"github.com/kingrea/reportdesk/internal/store"
)

const (
	// DefaultAPIBase is the public Bot API endpoint.
	DefaultAPIBase = "https://api.telegram.org"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 15 * time.Second

	maxResponseBytes = 1 << 20
)

// ErrTimeout marks a request that did not complete within the timeout.
var ErrTimeout = errors.New("превышено время ожидания ответа Telegram")

// APIError is a rejected request: a non-2xx status or ok=false.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram api: http %d", e.StatusCode)
	}
	return fmt.Sprintf("telegram api: http %d: %s", e.StatusCode, e.Description)
}

// ReportSource loads a report with its answers.
type ReportSource interface {
	GetByID(ctx context.Context, id int64) (*store.Report, error)
}

// Option configures a Telegram notifier.
type Option func(*Telegram)

// WithAPIBase points the notifier at another Bot API root.
func WithAPIBase(base string) Option {
	return func(t *Telegram) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			t.apiBase = base
		}
	}
}

// WithTimeout sets the per-request bound.
func WithTimeout(d time.Duration) Option {
	return func(t *Telegram) {
		if d > 0 {
			t.client.Timeout = d
		}
	}
}

// WithLogger attaches a diagnostic logger.
func WithLogger(log *logging.Logger) Option {
	return func(t *Telegram) {
		if log != nil {
			t.log = log
		}
	}
}

// Telegram sends reports and test messages. Credentials are read from disk
// on every call so edits made in the settings screen apply immediately.
type Telegram struct {
	client          *http.Client
	apiBase         string
	credentialsPath string
	reports         ReportSource
	log             *logging.Logger
}

// NewTelegram builds a notifier that reads credentials from credentialsPath
// and reports from source.
func NewTelegram(source ReportSource, credentialsPath string, opts ...Option) *Telegram {
	t := &Telegram{
		client:          &http.Client{Timeout: DefaultTimeout},
		apiBase:         DefaultAPIBase,
		credentialsPath: credentialsPath,
		reports:         source,
		log:             logging.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With("component", "telegram")
	return t
}

// Credentials returns the stored credentials.
func (t *Telegram) Credentials() (Credentials, error) {
	return LoadCredentials(t.credentialsPath)
}

// SaveCredentials validates and stores new credentials.
func (t *Telegram) SaveCredentials(creds Credentials) error {
	if err := ValidateCredentials(creds.BotToken, creds.ChatID); err != nil {
		return err
	}
	if err := SaveCredentials(t.credentialsPath, creds); err != nil {
		return err
	}
	t.log.Info("telegram credentials saved", "chat_id", creds.ChatID)
	return nil
}

// Configured reports whether usable credentials are on disk.
func (t *Telegram) Configured() bool {
	creds, err := t.Credentials()
	return err == nil && creds.Configured()
}

// SendReport delivers report id and returns how many messages were sent.
// Parts go out in order and sending stops at the first failure.
func (t *Telegram) SendReport(ctx context.Context, id int64) (int, error) {
	const op = "notify.SendReport"
	creds, err := t.requireCredentials(op)
	if err != nil {
		return 0, err
	}
	report, err := t.reports.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	messages := Messages(FormatReport(report))
	for i, text := range messages {
		if err := t.send(ctx, op, creds, text); err != nil {
			t.log.Error("send failed", "report_id", id, "part", i+1, "parts", len(messages), "error", err)
			if len(messages) > 1 {
				return i, apperr.New(apperr.KindNetwork, op, "часть %d из %d не отправлена: %w", i+1, len(messages), err)
			}
			return i, err
		}
	}
	t.log.Info("report sent", "report_id", id, "messages", len(messages))
	return len(messages), nil
}

// TestConnection sends TestMessage and translates the common rejections.
func (t *Telegram) TestConnection(ctx context.Context) error {
	const op = "notify.TestConnection"
	creds, err := t.requireCredentials(op)
	if err != nil {
		return err
	}
	err = t.send(ctx, op, creds, TestMessage)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return apperr.New(apperr.KindNetwork, op, "неверный токен бота, получите новый у @BotFather: %w", apiErr)
		case http.StatusBadRequest:
			return apperr.New(apperr.KindNetwork, op, "неверный Chat ID %s, проверьте его у @userinfobot: %w", creds.ChatID, apiErr)
		}
	}
	if err != nil {
		return err
	}
	t.log.Info("telegram connection verified")
	return nil
}

func (t *Telegram) requireCredentials(op string) (Credentials, error) {
	creds, err := t.Credentials()
	if err != nil {
		return Credentials{}, err
	}
	if !creds.Configured() {
		return Credentials{}, apperr.Validation(op, "Telegram не настроен, заполните токен бота и Chat ID в настройках")
	}
	return creds, nil
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) send(ctx context.Context, op string, creds Credentials, text string) error {
	endpoint := t.apiBase + "/bot" + creds.BotToken + "/sendMessage"
	form := url.Values{"chat_id": {creds.ChatID}, "text": {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return apperr.Wrap(apperr.KindNetwork, op, stripURL(err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperr.Wrap(apperr.KindNetwork, op, ErrTimeout)
		}
		return apperr.Wrap(apperr.KindNetwork, op, stripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return apperr.Wrap(apperr.KindNetwork, op, ErrTimeout)
		}
		return apperr.Wrap(apperr.KindNetwork, op, err)
	}
	var parsed sendResponse
	decodeErr := json.Unmarshal(body, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || decodeErr != nil || !parsed.OK {
		desc := parsed.Description
		if desc == "" && decodeErr != nil {
			desc = "некорректный ответ сервера"
		}
		return apperr.Wrap(apperr.KindNetwork, op, &APIError{StatusCode: resp.StatusCode, Description: desc})
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// stripURL drops the request URL, which embeds the bot token, from
// transport errors.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
