package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/user/malscan-report/pkg/export"
	"github.com/user/malscan-report/pkg/logging"
)

const envPrefix = "MALSCAN_"

type DocumentConfig struct {
	SettleDelay   time.Duration `yaml:"settle_delay"`
	ReadyTimeout  time.Duration `yaml:"ready_timeout"`
	ViewportWidth int           `yaml:"viewport_width"`
	ChromePath    string        `yaml:"chrome_path,omitempty"`
	NoSandbox     bool          `yaml:"no_sandbox"`
}

type Config struct {
	BackendURL string `yaml:"backend_url"`
	Token      string `yaml:"token,omitempty"`
	// Privileged unlocks the cross-session history listing.
	Privileged bool   `yaml:"privileged"`
	Taxonomy   string `yaml:"taxonomy"`
	OutputDir  string `yaml:"output_dir"`

	Document DocumentConfig        `yaml:"document"`
	Tabular  export.TabularOptions `yaml:"tabular"`
}

func Default() *Config {
	doc := export.DefaultDocumentOptions()
	return &Config{
		BackendURL: "http://localhost:8000",
		Taxonomy:   "report",
		OutputDir:  ".",
		Document: DocumentConfig{
			SettleDelay:   doc.SettleDelay,
			ReadyTimeout:  doc.ReadyTimeout,
			ViewportWidth: 1200,
		},
	}
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".malscan-report")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// LoadConfig reads the config file, then applies .env and MALSCAN_*
// environment overrides. A missing file yields the defaults.
func LoadConfig() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}
	loadDotEnv()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads the config file without environment overrides.
func LoadFile() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600: the file may hold the backend token
	return os.WriteFile(path, data, 0600)
}

func loadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			logging.Debugf("loaded environment from %s", path)
			return
		}
	}
}

type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(p func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func boolField(p func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*p(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*p(c) = b
			return nil
		},
	}
}

func durationField(p func(c *Config) *time.Duration) field {
	return field{
		get: func(c *Config) string { return p(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			if d < 0 {
				return fmt.Errorf("negative duration %s", d)
			}
			*p(c) = d
			return nil
		},
	}
}

var fields = map[string]field{
	"backend_url": stringField(func(c *Config) *string { return &c.BackendURL }),
	"token":       stringField(func(c *Config) *string { return &c.Token }),
	"privileged":  boolField(func(c *Config) *bool { return &c.Privileged }),
	"taxonomy":    stringField(func(c *Config) *string { return &c.Taxonomy }),
	"output_dir":  stringField(func(c *Config) *string { return &c.OutputDir }),

	"document.settle_delay":  durationField(func(c *Config) *time.Duration { return &c.Document.SettleDelay }),
	"document.ready_timeout": durationField(func(c *Config) *time.Duration { return &c.Document.ReadyTimeout }),
	"document.chrome_path":   stringField(func(c *Config) *string { return &c.Document.ChromePath }),
	"document.no_sandbox":    boolField(func(c *Config) *bool { return &c.Document.NoSandbox }),
	"document.viewport_width": {
		get: func(c *Config) string { return strconv.Itoa(c.Document.ViewportWidth) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			if n <= 0 {
				return fmt.Errorf("viewport width must be positive")
			}
			c.Document.ViewportWidth = n
			return nil
		},
	},

	"tabular.excel_bom":         boolField(func(c *Config) *bool { return &c.Tabular.ExcelBOM }),
	"tabular.sanitize_formulas": boolField(func(c *Config) *bool { return &c.Tabular.SanitizeFormulas }),
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the string form of a key.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return f.get(c), nil
}

// Set parses value into key.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// EnvName maps a key to its override variable: document.settle_delay
// becomes MALSCAN_DOCUMENT_SETTLE_DELAY.
func EnvName(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ApplyEnv overrides every key whose variable is set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, key := range Keys() {
		v, ok := lookup(EnvName(key))
		if !ok {
			continue
		}
		if err := c.Set(key, v); err != nil {
			return fmt.Errorf("%s: %w", EnvName(key), err)
		}
	}
	return nil
}

// DocumentOptions converts the document settings for the exporter.
func (c *Config) DocumentOptions() export.DocumentOptions {
	opts := export.DefaultDocumentOptions()
	opts.SettleDelay = c.Document.SettleDelay
	if c.Document.ReadyTimeout > 0 {
		opts.ReadyTimeout = c.Document.ReadyTimeout
	}
	return opts
}

// BrowserOptions converts the document settings for the capture browser.
func (c *Config) BrowserOptions() export.BrowserOptions {
	return export.BrowserOptions{
		ChromePath:    c.Document.ChromePath,
		ViewportWidth: c.Document.ViewportWidth,
		NoSandbox:     c.Document.NoSandbox,
	}
}
