package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Spec    string        `koanf:"spec"`
	BaseURL string        `koanf:"base-url"`
	Token   string        `koanf:"token"`
	Execute bool          `koanf:"execute"`
	Scope   string        `koanf:"scope"`
	History HistoryConfig `koanf:"history"`
	Oracle  OracleConfig  `koanf:"oracle"`
	Index   IndexConfig   `koanf:"index"`
	Request RequestConfig `koanf:"request"`
	Retry   RetryConfig   `koanf:"retry"`
	Debug   bool          `koanf:"debug"`
}

type HistoryConfig struct {
	Cap          int `koanf:"cap"`
	ContextTurns int `koanf:"context-turns"`
}

type OracleConfig struct {
	APIKey         string        `koanf:"api-key"`
	Model          string        `koanf:"model"`
	EmbeddingModel string        `koanf:"embedding-model"`
	Timeout        time.Duration `koanf:"timeout"`
}

type IndexConfig struct {
	Limit int `koanf:"limit"`
}

type RequestConfig struct {
	Timeout   time.Duration `koanf:"timeout"`
	Preflight bool          `koanf:"preflight"`
}

type RetryConfig struct {
	MaxAttempts       int           `koanf:"max-attempts"`
	Delay             time.Duration `koanf:"delay"`
	RetryableStatuses []int         `koanf:"retryable-statuses"`
	// FixablePatterns lists response-body substrings marking a 400 as worth a
	// corrected retry. Deliberately configuration: the phrasing depends on
	// the target API.
	FixablePatterns []string      `koanf:"fixable-patterns"`
	FollowupTTL     time.Duration `koanf:"followup-ttl"`
}

func defaults() map[string]any {
	return map[string]any{
		"execute":                  false,
		"history.cap":              20,
		"history.context-turns":    3,
		"oracle.model":             "gemini-2.0-flash",
		"oracle.embedding-model":   "gemini-embedding-001",
		"oracle.timeout":           "30s",
		"index.limit":              5,
		"request.timeout":          "30s",
		"retry.max-attempts":       3,
		"retry.delay":              "1s",
		"retry.retryable-statuses": []int{429, 502, 503, 504},
		"retry.fixable-patterns": []string{
			"is required",
			"required field",
			"missing required",
			"slug",
			"обов'язкове поле",
			"відсутнє поле",
		},
		"retry.followup-ttl": "30m",
	}
}

// BindFlags binds the engine flags to a command.
func BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: parley.yaml)")
	flags.StringP("spec", "s", "", "OpenAPI spec file path")
	flags.String("base-url", "", "API base URL (overrides the spec's server URL)")
	flags.String("token", "", "Bearer token for API calls")
	flags.Bool("execute", false, "Perform real API calls instead of previews")
	flags.String("scope", "", "Restrict operations to one tag")
	flags.Bool("debug", false, "Verbose logging")
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		configFile, _ = cmd.PersistentFlags().GetString("config")
	}
	if configFile == "" {
		if _, err := os.Stat("parley.yaml"); err == nil {
			configFile = "parley.yaml"
		}
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	flagsMap := buildFlagsMap(cmd)
	if len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("PARLEY_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)

	getString := func(name string) string {
		if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
			return v
		}
		if v, err := cmd.PersistentFlags().GetString(name); err == nil && v != "" {
			return v
		}
		return ""
	}

	flagChanged := func(name string) bool {
		return cmd.Flags().Changed(name) || cmd.PersistentFlags().Changed(name)
	}

	getBool := func(name string) bool {
		if v, err := cmd.Flags().GetBool(name); err == nil {
			return v
		}
		if v, err := cmd.PersistentFlags().GetBool(name); err == nil {
			return v
		}
		return false
	}

	if v := getString("spec"); v != "" {
		m["spec"] = v
	}
	if v := getString("base-url"); v != "" {
		m["base-url"] = v
	}
	if v := getString("token"); v != "" {
		m["token"] = v
	}
	if v := getString("scope"); v != "" {
		m["scope"] = v
	}
	if flagChanged("execute") {
		m["execute"] = getBool("execute")
	}
	if flagChanged("debug") {
		m["debug"] = getBool("debug")
	}

	return m
}

func (c *Config) Validate() error {
	if c.Spec == "" {
		return fmt.Errorf("spec file is required")
	}
	if c.History.Cap <= 0 {
		return fmt.Errorf("history cap must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max-attempts must be positive")
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry delay must not be negative")
	}
	for _, status := range c.Retry.RetryableStatuses {
		if status == 401 || status == 403 {
			return fmt.Errorf("status %d is never retryable", status)
		}
		if status < 100 || status > 599 {
			return fmt.Errorf("invalid retryable status: %d", status)
		}
	}
	if c.Index.Limit <= 0 {
		return fmt.Errorf("index limit must be positive")
	}
	return nil
}
