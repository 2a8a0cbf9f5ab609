package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server    ServerConfig
	Selectors SelectorsConfig
	Log       LogConfig
}

// ServerConfig locates the quote site.
type ServerConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	PagePath   string        `mapstructure:"page_path"`
	FilterPath string        `mapstructure:"filter_path"`
	PingPath   string        `mapstructure:"ping_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SelectorsConfig names the page elements the filter widgets bind to.
type SelectorsConfig struct {
	Widget   string `mapstructure:"widget"`
	Search   string `mapstructure:"search"`
	Options  string `mapstructure:"options"`
	Selected string `mapstructure:"selected"`
	Results  string `mapstructure:"results"`
	Apply    string `mapstructure:"apply"`
	CSRFMeta string `mapstructure:"csrf_meta"`
}

// LogConfig controls the slog output. The terminal belongs to the UI, so
// logs go to a file.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

const envPrefix = "QUOTEFILTER"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", "http://localhost:4000")
	v.SetDefault("server.page_path", "/")
	v.SetDefault("server.filter_path", "/filtered-quotes")
	v.SetDefault("server.ping_path", "/ping")
	v.SetDefault("server.timeout", "15s")
	v.SetDefault("selectors.widget", "multiselect-dropdown")
	v.SetDefault("selectors.search", "multiselect-search")
	v.SetDefault("selectors.options", "multiselect-options")
	v.SetDefault("selectors.selected", "multiselect-selected")
	v.SetDefault("selectors.results", "quotes-table-body")
	v.SetDefault("selectors.apply", "apply-filters")
	v.SetDefault("selectors.csrf_meta", "csrf-token")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", defaultLogFile())
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "quotefilter", "quotefilter.log")
}

// DefaultPath is where Load looks when neither an explicit path nor
// QUOTEFILTER_CONFIG is set.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "quotefilter", "config.toml")
}

// Path resolves which config file Load reads: explicit, then
// QUOTEFILTER_CONFIG, then DefaultPath.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(envPrefix + "_CONFIG"); env != "" {
		return env
	}
	return DefaultPath()
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Defaults is the built-in configuration with env overrides applied. No
// file is read.
func Defaults() (Config, error) {
	return decode(newViper())
}

// Load reads configuration from file and env. Env var overrides use prefix
// QUOTEFILTER_. An explicit path takes precedence over QUOTEFILTER_CONFIG.
func Load(path string) (Config, error) {
	v := newViper()

	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// a missing default file is fine, a missing explicit one is not
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// Validate checks the settings every command depends on.
func (c Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("server.base_url: missing host")
	}
	if c.Server.Timeout < 0 {
		return errors.New("server.timeout: must not be negative")
	}
	required := map[string]string{
		"server.filter_path":  c.Server.FilterPath,
		"selectors.widget":    c.Selectors.Widget,
		"selectors.search":    c.Selectors.Search,
		"selectors.options":   c.Selectors.Options,
		"selectors.selected":  c.Selectors.Selected,
		"selectors.results":   c.Selectors.Results,
		"selectors.apply":     c.Selectors.Apply,
		"selectors.csrf_meta": c.Selectors.CSRFMeta,
	}
	var missing []string
	for key, val := range required {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

type fileServer struct {
	BaseURL    string `toml:"base_url"`
	PagePath   string `toml:"page_path"`
	FilterPath string `toml:"filter_path"`
	PingPath   string `toml:"ping_path"`
	Timeout    string `toml:"timeout"`
}

type fileSelectors struct {
	Widget   string `toml:"widget"`
	Search   string `toml:"search"`
	Options  string `toml:"options"`
	Selected string `toml:"selected"`
	Results  string `toml:"results"`
	Apply    string `toml:"apply"`
	CSRFMeta string `toml:"csrf_meta"`
}

type fileLog struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type configFile struct {
	Server    fileServer    `toml:"server"`
	Selectors fileSelectors `toml:"selectors"`
	Log       fileLog       `toml:"log"`
}

const fileHeader = `# quotefilter configuration
# Every key can be overridden with QUOTEFILTER_<SECTION>_<KEY>, e.g. QUOTEFILTER_SERVER_BASE_URL.

`

// Encode renders cfg as a TOML config file.
func Encode(cfg Config) ([]byte, error) {
	f := configFile{
		Server: fileServer{
			BaseURL:    cfg.Server.BaseURL,
			PagePath:   cfg.Server.PagePath,
			FilterPath: cfg.Server.FilterPath,
			PingPath:   cfg.Server.PingPath,
			Timeout:    cfg.Server.Timeout.String(),
		},
		Selectors: fileSelectors(cfg.Selectors),
		Log:       fileLog(cfg.Log),
	}
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes cfg to path (resolved as by Path), creating the config directory if needed. An
// existing file is only replaced when overwrite is set.
func Save(cfg Config, path string, overwrite bool) error {
	path = Path(path)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
