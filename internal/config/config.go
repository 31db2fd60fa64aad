package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultBaseURL = "https://dummyjson.com"

type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Search SearchConfig `mapstructure:"search"`
	UI     UIConfig     `mapstructure:"ui"`
	Media  MediaConfig  `mapstructure:"media"`
	Keys   KeyConfig    `mapstructure:"keys"`
	Log    LogConfig    `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	PageSize  int           `mapstructure:"page_size"`
	// AllowLocal permits localhost and private network base URLs.
	AllowLocal bool `mapstructure:"allow_local"`
}

type SearchConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	HistoryEnabled bool          `mapstructure:"history_enabled"`
	HistoryPath    string        `mapstructure:"history_path"`
	HistoryLimit   int           `mapstructure:"history_limit"`
}

type UIConfig struct {
	Colors UIColors     `mapstructure:"colors"`
	Detail DetailConfig `mapstructure:"detail"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type DetailConfig struct {
	WordWrapMaxWidth int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth int `mapstructure:"word_wrap_min_width"`
	// ExpandSections opens every collapsible section by default.
	ExpandSections bool `mapstructure:"expand_sections"`
}

type MediaConfig struct {
	Darwin        Viewers `mapstructure:"darwin"`
	Linux         Viewers `mapstructure:"linux"`
	Windows       Viewers `mapstructure:"windows"`
	DefaultOpener string  `mapstructure:"default_opener"`
	// ViewersFile points at extra viewer definitions merged over the built-in ones.
	ViewersFile string `mapstructure:"viewers_file"`
}

type Viewers struct {
	Image   []string `mapstructure:"image"`
	Browser []string `mapstructure:"browser"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

// KeyBindings holds key names. Search, Refresh and ClearHistory are combined
// with the modifier; the rest are used as is.
type KeyBindings struct {
	Quit          string `mapstructure:"quit"`
	Search        string `mapstructure:"search"`
	Refresh       string `mapstructure:"refresh"`
	ClearHistory  string `mapstructure:"clear_history"`
	Open          string `mapstructure:"open"`
	OpenImage     string `mapstructure:"open_image"`
	ToggleSection string `mapstructure:"toggle_section"`
	Back          string `mapstructure:"back"`
	Help          string `mapstructure:"help"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".userdir")

	return &Config{
		API: APIConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   10 * time.Second,
			UserAgent: "userdir/1.0 (https://github.com/pders01/userdir)",
			PageSize:  30,
		},
		Search: SearchConfig{
			Debounce:       500 * time.Millisecond,
			HistoryEnabled: true,
			HistoryPath:    filepath.Join(dataDir, "history.db"),
			HistoryLimit:   200,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Detail: DetailConfig{
				WordWrapMaxWidth: 100,
				WordWrapMinWidth: 40,
				ExpandSections:   true,
			},
		},
		Media: MediaConfig{
			Darwin: Viewers{
				Image:   []string{"open"},
				Browser: []string{"open"},
			},
			Linux: Viewers{
				Image:   []string{"feh", "eog", "xdg-open"},
				Browser: []string{"xdg-open", "firefox", "chromium"},
			},
			Windows: Viewers{
				Image:   []string{"start"},
				Browser: []string{"start"},
			},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:          "q",
				Search:        "s",
				Refresh:       "r",
				ClearHistory:  "d",
				Open:          "enter",
				OpenImage:     "o",
				ToggleSection: "tab",
				Back:          "esc",
				Help:          "?",
			},
		},
		Log: LogConfig{
			Level: "off",
			Path:  filepath.Join(dataDir, "userdir.log"),
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// settings flattens cfg into dotted viper keys. Durations are written as
// strings so saved files stay readable.
func settings(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"api.base_url":    cfg.API.BaseURL,
		"api.timeout":     cfg.API.Timeout.String(),
		"api.user_agent":  cfg.API.UserAgent,
		"api.page_size":   cfg.API.PageSize,
		"api.allow_local": cfg.API.AllowLocal,

		"search.debounce":        cfg.Search.Debounce.String(),
		"search.history_enabled": cfg.Search.HistoryEnabled,
		"search.history_path":    cfg.Search.HistoryPath,
		"search.history_limit":   cfg.Search.HistoryLimit,

		"ui.colors.primary":             cfg.UI.Colors.Primary,
		"ui.colors.secondary":           cfg.UI.Colors.Secondary,
		"ui.colors.accent":              cfg.UI.Colors.Accent,
		"ui.colors.background":          cfg.UI.Colors.Background,
		"ui.colors.surface":             cfg.UI.Colors.Surface,
		"ui.colors.text":                cfg.UI.Colors.Text,
		"ui.colors.muted":               cfg.UI.Colors.Muted,
		"ui.colors.error":               cfg.UI.Colors.Error,
		"ui.colors.success":             cfg.UI.Colors.Success,
		"ui.detail.word_wrap_max_width": cfg.UI.Detail.WordWrapMaxWidth,
		"ui.detail.word_wrap_min_width": cfg.UI.Detail.WordWrapMinWidth,
		"ui.detail.expand_sections":     cfg.UI.Detail.ExpandSections,

		"media.darwin.image":    cfg.Media.Darwin.Image,
		"media.darwin.browser":  cfg.Media.Darwin.Browser,
		"media.linux.image":     cfg.Media.Linux.Image,
		"media.linux.browser":   cfg.Media.Linux.Browser,
		"media.windows.image":   cfg.Media.Windows.Image,
		"media.windows.browser": cfg.Media.Windows.Browser,
		"media.default_opener":  cfg.Media.DefaultOpener,
		"media.viewers_file":    cfg.Media.ViewersFile,

		"keys.modifier":                cfg.Keys.Modifier,
		"keys.bindings.quit":           cfg.Keys.Bindings.Quit,
		"keys.bindings.search":         cfg.Keys.Bindings.Search,
		"keys.bindings.refresh":        cfg.Keys.Bindings.Refresh,
		"keys.bindings.clear_history":  cfg.Keys.Bindings.ClearHistory,
		"keys.bindings.open":           cfg.Keys.Bindings.Open,
		"keys.bindings.open_image":     cfg.Keys.Bindings.OpenImage,
		"keys.bindings.toggle_section": cfg.Keys.Bindings.ToggleSection,
		"keys.bindings.back":           cfg.Keys.Bindings.Back,
		"keys.bindings.help":           cfg.Keys.Bindings.Help,

		"log.level": cfg.Log.Level,
		"log.path":  cfg.Log.Path,
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "userdir", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	// every leaf key needs a default so env overrides such as
	// USERDIR_API_BASE_URL resolve
	for k, val := range settings(defaultConfig()) {
		v.SetDefault(k, val)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("USERDIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be positive, got %d", c.API.PageSize)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("search.debounce must not be negative, got %s", c.Search.Debounce)
	}
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Search.HistoryPath = expandPath(cfg.Search.HistoryPath)
	cfg.Log.Path = expandPath(cfg.Log.Path)
	cfg.Media.ViewersFile = expandPath(cfg.Media.ViewersFile)
}

func Save(config *Config, path string) error {
	v := viper.New()
	for k, val := range settings(config) {
		v.Set(k, val)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
