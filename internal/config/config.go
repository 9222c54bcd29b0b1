package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Background            string `toml:"background"`
	CursorBackground      string `toml:"cursor_background"`
	EditBackground        string `toml:"edit_background"`
	IndexMarkerBackground string `toml:"index_marker_background"`
	LegendBackground      string `toml:"legend_background"`
	LegendHighlight       string `toml:"legend_highlight"`
	BorderColor           string `toml:"border_color"`
	SelectionBackground   string `toml:"selection_background"`
	MatchBackground       string `toml:"match_background"`
	BookmarkColor         string `toml:"bookmark_color"`
	ErrorColor            string `toml:"error_color"`
	DisabledColor         string `toml:"disabled_color"`
	EntropyLow            string `toml:"entropy_low"`
	EntropyHigh           string `toml:"entropy_high"`
	Bit16Background       string `toml:"bit16_background"`
	Bit32Background       string `toml:"bit32_background"`
	Bit64Background       string `toml:"bit64_background"`
	Bit128Background      string `toml:"bit128_background"`
}

type Engine struct {
	PageLength   uint32 `toml:"page_length"`
	BlockSize    uint32 `toml:"block_size"`
	IOTimeout    string `toml:"io_timeout"`
	HistoryLimit int    `toml:"history_limit"`
}

// Timeout parses IOTimeout, falling back to 5s.
func (e Engine) Timeout() time.Duration {
	d, err := time.ParseDuration(e.IOTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

type Log struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	Level   string `toml:"level"`
}

type Store struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Config struct {
	Theme  Theme  `toml:"theme"`
	Engine Engine `toml:"engine"`
	Log    Log    `toml:"log"`
	Store  Store  `toml:"store"`
}

func DefaultConfig() *Config {
	return &Config{
		Theme: Theme{
			Background:            "#000000",
			CursorBackground:      "#0000FF",
			EditBackground:        "#FFFF00",
			IndexMarkerBackground: "#000080",
			LegendBackground:      "#0000FF",
			LegendHighlight:       "#FF0000",
			BorderColor:           "#0000FF",
			SelectionBackground:   "#FFAA00",
			MatchBackground:       "#00AA00",
			BookmarkColor:         "#FF00FF",
			ErrorColor:            "#FF0000",
			DisabledColor:         "#666666",
			EntropyLow:            "#004400",
			EntropyHigh:           "#FF4400",
			Bit16Background:       "#004400",
			Bit32Background:       "#440044",
			Bit64Background:       "#004444",
			Bit128Background:      "#444400",
		},
		Engine: Engine{
			PageLength:   256,
			BlockSize:    10240,
			IOTimeout:    "5s",
			HistoryLimit: 50,
		},
		Log: Log{
			Level: "info",
		},
		Store: Store{
			Enabled: true,
		},
	}
}

func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "hexlens")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "hexlens.toml")
}

func Load() (*Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads path over the defaults. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.PageLength == 0 || c.Engine.PageLength%16 != 0 {
		return fmt.Errorf("engine.page_length must be a positive multiple of 16, got %d", c.Engine.PageLength)
	}
	if c.Engine.BlockSize == 0 {
		return fmt.Errorf("engine.block_size must be positive")
	}
	if _, err := time.ParseDuration(c.Engine.IOTimeout); err != nil {
		return fmt.Errorf("engine.io_timeout: %w", err)
	}
	return nil
}

func (c *Config) Save() error {
	return c.SaveFile(ConfigPath())
}

func (c *Config) SaveFile(path string) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

type Styles struct {
	Background      lipgloss.Style
	Cursor          lipgloss.Style
	Edit            lipgloss.Style
	IndexMarker     lipgloss.Style
	Legend          lipgloss.Style
	LegendHighlight lipgloss.Style
	Border          lipgloss.Style
	Selection       lipgloss.Style
	Match           lipgloss.Style
	Bookmark        lipgloss.Style
	Error           lipgloss.Style
	Warning         lipgloss.Style
	Disabled        lipgloss.Style
	Normal          lipgloss.Style
	DecoderLabel    lipgloss.Style
	DecoderValue    lipgloss.Style
	HelpTitle       lipgloss.Style
	HelpKey         lipgloss.Style
	HelpDesc        lipgloss.Style
	EntropyLow      lipgloss.Style
	EntropyHigh     lipgloss.Style
	Dialog          lipgloss.Style
	Bit16           lipgloss.Style
	Bit32           lipgloss.Style
	Bit64           lipgloss.Style
	Bit128          lipgloss.Style
}

func NewStyles(theme *Theme) *Styles {
	return &Styles{
		Background: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.Background)),
		Cursor: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.CursorBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		Edit: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.EditBackground)).
			Foreground(lipgloss.Color("#000000")),
		IndexMarker: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.IndexMarkerBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		Legend: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.LegendBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		LegendHighlight: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.LegendBackground)).
			Foreground(lipgloss.Color(theme.LegendHighlight)).
			Bold(true),
		Border: lipgloss.NewStyle().
			BorderForeground(lipgloss.Color(theme.BorderColor)),
		Selection: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.SelectionBackground)).
			Foreground(lipgloss.Color("#000000")),
		Match: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.MatchBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		Bookmark: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.BookmarkColor)).
			Bold(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.ErrorColor)),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.EditBackground)).
			Bold(true),
		Disabled: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.DisabledColor)),
		Normal: lipgloss.NewStyle(),
		DecoderLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")),
		DecoderValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")),
		HelpTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")),
		HelpKey: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.LegendHighlight)).
			Bold(true),
		HelpDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")),
		EntropyLow: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.EntropyLow)),
		EntropyHigh: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.EntropyHigh)),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(theme.BorderColor)).
			Padding(1, 2),
		Bit16: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.Bit16Background)).
			Foreground(lipgloss.Color("#FFFFFF")),
		Bit32: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.Bit32Background)).
			Foreground(lipgloss.Color("#FFFFFF")),
		Bit64: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.Bit64Background)).
			Foreground(lipgloss.Color("#FFFFFF")),
		Bit128: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.Bit128Background)).
			Foreground(lipgloss.Color("#FFFFFF")),
	}
}
