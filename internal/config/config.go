// internal/config/config.go
//
// This package handles configuration and the working directory layout.
// Every installation gets a working directory holding the question forms,
// generated reports, templates, the SQLite database and logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// WorkDirName is the folder created under ~/Documents when the
	// executable's own directory is not writable.
	WorkDirName = "Система отчетов"

	// HomeEnv overrides working directory resolution.
	HomeEnv = "REPORTDESK_HOME"

	// Environment overrides applied on top of reportdesk.yaml.
	EnvPageSize        = "REPORTDESK_PAGE_SIZE"
	EnvDebug           = "REPORTDESK_DEBUG"
	EnvTelegramTimeout = "REPORTDESK_TELEGRAM_TIMEOUT"
	EnvTelegramAPI     = "REPORTDESK_TELEGRAM_API"

	FormsDirName     = "формы"
	ReportsDirName   = "отчеты"
	TemplatesDirName = "шаблоны"
	BackupsDirName   = "backups"
	LogsDirName      = "logs"

	ConfigFileName   = "reportdesk.yaml"
	DatabaseFileName = "reports.db"
	TelegramFileName = "telegram_config.json"

	defaultPageSize        = 5
	defaultTelegramAPI     = "https://api.telegram.org"
	defaultTelegramTimeout = 15
)

const defaultSettingsYAML = `# reportdesk configuration
version: 1

# Questions shown per block while filling a report.
page_size: 5

# Write debug entries to logs/reportdesk.log.
debug: false

telegram:
  api_base: https://api.telegram.org
  # Seconds to wait for the Telegram API before giving up.
  timeout_seconds: 15
`

// TelegramSettings configures the notifier transport. Credentials live in
// telegram_config.json, not here.
type TelegramSettings struct {
	APIBase        string `yaml:"api_base"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Settings models reportdesk.yaml.
type Settings struct {
	Version  int              `yaml:"version"`
	PageSize int              `yaml:"page_size"`
	Debug    bool             `yaml:"debug"`
	Telegram TelegramSettings `yaml:"telegram"`
}

// Config holds the runtime configuration. It is built once at startup and
// passed to every component that needs a path or a setting.
type Config struct {
	// WorkDir is the root of the working directory.
	WorkDir string

	Settings Settings
}

// ResolveWorkDir picks the working directory: the HomeEnv override, then
// exeDir when it is writable, then ~/Documents/WorkDirName.
func ResolveWorkDir(exeDir string) (string, error) {
	if home := strings.TrimSpace(os.Getenv(HomeEnv)); home != "" {
		return filepath.Abs(home)
	}
	if exeDir != "" && writable(exeDir) {
		return filepath.Clean(exeDir), nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(userHome, "Documents", WorkDirName), nil
}

func writable(dir string) bool {
	probe, err := os.CreateTemp(dir, ".reportdesk-probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return true
}

// InitWorkDir creates the working directory structure.
//
// Structure created:
// <workdir>/
// ├── формы/      <- question spreadsheets (Role.xlsx, Role_1.xlsx, ...)
// ├── отчеты/     <- generated reports
// ├── шаблоны/    <- document templates referenced by questions
// ├── backups/    <- database backups
// ├── logs/       <- reportdesk.log and journey.log
// └── reportdesk.yaml
func InitWorkDir(workDir string) error {
	dirs := []string{
		workDir,
		filepath.Join(workDir, FormsDirName),
		filepath.Join(workDir, ReportsDirName),
		filepath.Join(workDir, TemplatesDirName),
		filepath.Join(workDir, BackupsDirName),
		filepath.Join(workDir, LogsDirName),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureSettingsFile(filepath.Join(workDir, ConfigFileName))
}

// NewConfig loads reportdesk.yaml and .env from workDir and applies
// environment overrides.
func NewConfig(workDir string) (*Config, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", workDir, err)
	}
	cfg := &Config{WorkDir: abs, Settings: defaultSettings()}
	if err := loadDotEnv(filepath.Join(abs, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	cfg.Settings.applyEnvOverrides()
	cfg.Settings.applyDefaults()
	if err := cfg.Settings.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// FormsDir returns the directory holding question spreadsheets.
func (c *Config) FormsDir() string { return filepath.Join(c.WorkDir, FormsDirName) }

// ReportsDir returns the directory generated reports are written to.
func (c *Config) ReportsDir() string { return filepath.Join(c.WorkDir, ReportsDirName) }

// TemplatesDir returns the directory with templates referenced by questions.
func (c *Config) TemplatesDir() string { return filepath.Join(c.WorkDir, TemplatesDirName) }

// BackupsDir returns the database backup directory.
func (c *Config) BackupsDir() string { return filepath.Join(c.WorkDir, BackupsDirName) }

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string { return filepath.Join(c.WorkDir, LogsDirName) }

// DatabasePath returns the SQLite file location.
func (c *Config) DatabasePath() string { return filepath.Join(c.WorkDir, DatabaseFileName) }

// TelegramCredentialsPath returns the JSON file holding bot token and chat id.
func (c *Config) TelegramCredentialsPath() string {
	return filepath.Join(c.WorkDir, TelegramFileName)
}

// SettingsPath returns the on-disk location of reportdesk.yaml.
func (c *Config) SettingsPath() string { return filepath.Join(c.WorkDir, ConfigFileName) }

// PageSize returns the configured block size.
func (c *Config) PageSize() int { return c.Settings.PageSize }

// TelegramTimeout returns the bounded wait for Telegram API calls.
func (c *Config) TelegramTimeout() time.Duration {
	return time.Duration(c.Settings.Telegram.TimeoutSeconds) * time.Second
}

// TelegramAPIBase returns the Telegram Bot API root URL.
func (c *Config) TelegramAPIBase() string { return c.Settings.Telegram.APIBase }

func (c *Config) loadSettings() error {
	path := c.SettingsPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	parsed := defaultSettings()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.Settings = parsed
	return nil
}

func defaultSettings() Settings {
	return Settings{
		Version:  1,
		PageSize: defaultPageSize,
		Telegram: TelegramSettings{
			APIBase:        defaultTelegramAPI,
			TimeoutSeconds: defaultTelegramTimeout,
		},
	}
}

func (s *Settings) applyDefaults() {
	if s.Version == 0 {
		s.Version = 1
	}
	if s.PageSize == 0 {
		s.PageSize = defaultPageSize
	}
	s.Telegram.APIBase = strings.TrimRight(strings.TrimSpace(s.Telegram.APIBase), "/")
	if s.Telegram.APIBase == "" {
		s.Telegram.APIBase = defaultTelegramAPI
	}
	if s.Telegram.TimeoutSeconds == 0 {
		s.Telegram.TimeoutSeconds = defaultTelegramTimeout
	}
}

func (s *Settings) applyEnvOverrides() {
	if value := strings.TrimSpace(os.Getenv(EnvPageSize)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			s.PageSize = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv(EnvDebug)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			s.Debug = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv(EnvTelegramTimeout)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			s.Telegram.TimeoutSeconds = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv(EnvTelegramAPI)); value != "" {
		s.Telegram.APIBase = value
	}
}

func (s Settings) validate() error {
	if s.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if s.PageSize < 1 || s.PageSize > 50 {
		return fmt.Errorf("page_size must be between 1 and 50, got %d", s.PageSize)
	}
	if s.Telegram.TimeoutSeconds < 1 || s.Telegram.TimeoutSeconds > 120 {
		return fmt.Errorf("telegram.timeout_seconds must be between 1 and 120, got %d", s.Telegram.TimeoutSeconds)
	}
	if !strings.HasPrefix(s.Telegram.APIBase, "http://") && !strings.HasPrefix(s.Telegram.APIBase, "https://") {
		return fmt.Errorf("telegram.api_base must be an http(s) URL")
	}
	return nil
}

// loadDotEnv reads KEY=VALUE pairs into the process environment without
// overriding variables that are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func ensureSettingsFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultSettingsYAML), 0o644)
}
