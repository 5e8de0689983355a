package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// IndexConfig points at the optional external task-index service.
type IndexConfig struct {
	// Command is the argv of an MCP index service spoken to over stdio.
	// Empty means no service is configured.
	Command []string `mapstructure:"command"`
	// DB is the database path used by the bundled indexer; empty derives
	// <vault>/.calctl/index.db.
	DB string `mapstructure:"db"`
}

// Settings holds the application configuration. Folder values are vault-
// relative prefixes with path separators trimmed.
type Settings struct {
	Vault          string      `mapstructure:"vault"`
	TasksFolder    string      `mapstructure:"tasks_folder"`
	NotesFolder    string      `mapstructure:"notes_folder"`
	Folder         string      `mapstructure:"folder"`
	DateFormat     string      `mapstructure:"date_format"`
	OverdueColor   string      `mapstructure:"overdue_color"`
	CurrentColor   string      `mapstructure:"current_color"`
	CompletedColor string      `mapstructure:"completed_color"`
	ShowCompleted  bool        `mapstructure:"show_completed"`
	Language       string      `mapstructure:"language"`
	Theme          string      `mapstructure:"theme"`
	MarkdownStyle  string      `mapstructure:"markdown_style"`
	Editor         string      `mapstructure:"editor"`
	OpenWith       string      `mapstructure:"open_with"`
	Index          IndexConfig `mapstructure:"index"`

	path string
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Validate checks the loaded settings before anything touches the vault.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Vault, validation.Required),
		validation.Field(&s.DateFormat, validation.Required),
		validation.Field(&s.Language, validation.In("en", "de")),
		validation.Field(&s.OpenWith, validation.In("editor", "obsidian")),
		validation.Field(&s.OverdueColor, validation.Match(hexColor)),
		validation.Field(&s.CurrentColor, validation.Match(hexColor)),
		validation.Field(&s.CompletedColor, validation.Match(hexColor)),
	)
}

// InScanScope reports whether a vault-relative note path falls under the
// configured scan folder. An empty folder scans the whole vault.
func (s *Settings) InScanScope(rel string) bool {
	if s.NotesFolder == "" {
		return true
	}
	return rel == s.NotesFolder || strings.HasPrefix(rel, s.NotesFolder+"/")
}

// Path returns the config file this Settings round-trips through.
func (s *Settings) Path() string {
	return s.path
}

// DefaultDataDir returns the default data directory (~/.calctl/).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".calctl")
	}
	return filepath.Join(home, ".calctl")
}

// DefaultVault returns the default note vault location (~/notes).
func DefaultVault() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "notes"
	}
	return filepath.Join(home, "notes")
}

// Load reads configuration from file, environment variables, and defaults.
// The legacy single "folder" key is migrated into tasks_folder and
// notes_folder on first load and persisted best-effort.
func Load(configPath string) (*Settings, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("vault", DefaultVault())
	v.SetDefault("tasks_folder", "")
	v.SetDefault("notes_folder", "")
	v.SetDefault("folder", "")
	v.SetDefault("date_format", "YYYY-MM")
	v.SetDefault("overdue_color", "#e06c75")
	v.SetDefault("current_color", "#61afef")
	v.SetDefault("completed_color", "#5c6370")
	v.SetDefault("show_completed", true)
	v.SetDefault("language", "en")
	v.SetDefault("theme", "default-dark")
	v.SetDefault("markdown_style", "")
	v.SetDefault("editor", "")
	v.SetDefault("open_with", "editor")
	v.SetDefault("index.command", []string{})
	v.SetDefault("index.db", "")

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// XDG support
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "calctl"))
		}
		v.AddConfigPath(DefaultDataDir())
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}

	// Environment variables: CALCTL_VAULT, CALCTL_DATE_FORMAT, etc.
	v.SetEnvPrefix("CALCTL")
	v.AutomaticEnv()

	// Read config file (ignore not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if configPath != "" {
				return nil, err
			}
		}
	}

	cfg := &Settings{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.path = v.ConfigFileUsed()
	if cfg.path == "" {
		if configPath != "" {
			cfg.path = configPath
		} else {
			cfg.path = filepath.Join(DefaultDataDir(), "config.toml")
		}
	}

	cfg.TasksFolder = trimFolder(cfg.TasksFolder)
	cfg.NotesFolder = trimFolder(cfg.NotesFolder)
	cfg.Folder = trimFolder(cfg.Folder)

	// One-time migration of the legacy single-folder setting.
	if cfg.TasksFolder == "" && cfg.NotesFolder == "" && cfg.Folder != "" {
		cfg.TasksFolder = cfg.Folder
		cfg.NotesFolder = cfg.Folder
		cfg.Folder = ""
		// Best-effort persist; a read-only config dir shouldn't break startup.
		_ = Save(cfg)
	}

	return cfg, nil
}

// Save writes the settings back to their config file. Mutations round-trip
// immediately; there is no batching.
func Save(cfg *Settings) error {
	if err := os.MkdirAll(filepath.Dir(cfg.path), 0o755); err != nil {
		return err
	}

	v := viper.New()
	v.Set("vault", cfg.Vault)
	v.Set("tasks_folder", cfg.TasksFolder)
	v.Set("notes_folder", cfg.NotesFolder)
	v.Set("date_format", cfg.DateFormat)
	v.Set("overdue_color", cfg.OverdueColor)
	v.Set("current_color", cfg.CurrentColor)
	v.Set("completed_color", cfg.CompletedColor)
	v.Set("show_completed", cfg.ShowCompleted)
	v.Set("language", cfg.Language)
	v.Set("theme", cfg.Theme)
	v.Set("markdown_style", cfg.MarkdownStyle)
	v.Set("editor", cfg.Editor)
	v.Set("open_with", cfg.OpenWith)
	v.Set("index.command", cfg.Index.Command)
	v.Set("index.db", cfg.Index.DB)

	return v.WriteConfigAs(cfg.path)
}

// trimFolder strips leading and trailing path separators from a configured
// folder prefix.
func trimFolder(p string) string {
	return strings.Trim(p, "/\\")
}
