// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Sections map 1:1 onto the
// yaml config file; CLI flags and SNAP2MEALIE_* env vars override via viper.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Locator   LocatorConfig   `mapstructure:"locator" yaml:"locator"`
	Chat      ChatConfig      `mapstructure:"chat" yaml:"chat"`
	Assembly  AssemblyConfig  `mapstructure:"assembly" yaml:"assembly"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`
	Mealie    MealieConfig    `mapstructure:"mealie" yaml:"mealie"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance that hosts the
// chat UI.
type BrowserConfig struct {
	ChatURL           string        `mapstructure:"chat_url" yaml:"chat_url"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// ReadyTimeout bounds the wait for a usable chat input after navigation.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`
	ThumbnailDir string        `mapstructure:"thumbnail_dir" yaml:"thumbnail_dir"`
	Args         []string      `mapstructure:"args" yaml:"args"`
}

// LocatorConfig describes how interactive elements of the chat UI are found.
// The selectors track the host application's DOM and are expected to need
// adjustment across its releases; that is why they are configuration, not code.
type LocatorConfig struct {
	// HostElement is the custom element carrying the chat widget's shadow root.
	HostElement string `mapstructure:"host_element" yaml:"host_element"`
	// InputSelector is the narrow, high-confidence selector used inside the
	// shadow boundary.
	InputSelector string `mapstructure:"input_selector" yaml:"input_selector"`
	// FallbackInputSelector is the broad light-DOM selector used when the host
	// element is absent or yields nothing.
	FallbackInputSelector string `mapstructure:"fallback_input_selector" yaml:"fallback_input_selector"`
	SubmitSelector        string `mapstructure:"submit_selector" yaml:"submit_selector"`
	// DecoyFieldNames lists `name` attributes of hidden state fields the host
	// application renders that must never be selected as the chat input.
	DecoyFieldNames []string      `mapstructure:"decoy_field_names" yaml:"decoy_field_names"`
	ShadowWait      time.Duration `mapstructure:"shadow_wait" yaml:"shadow_wait"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ChatConfig tunes prompt submission and completion detection.
type ChatConfig struct {
	SubmitTimeout   time.Duration `mapstructure:"submit_timeout" yaml:"submit_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PostSubmitDelay time.Duration `mapstructure:"post_submit_delay" yaml:"post_submit_delay"`
}

// AssemblyConfig tunes the recipe assembly run.
type AssemblyConfig struct {
	// Language is the code the model is asked to respond in.
	Language string `mapstructure:"language" yaml:"language"`
	// StepProbe enables the per-step instruction flow driven by the step-count
	// probe; when disabled (or when the probe fails) a single bulk instructions
	// prompt is used.
	StepProbe bool `mapstructure:"step_probe" yaml:"step_probe"`
	// MaxSteps caps how many per-step prompts the probe may trigger.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
	// OutputFile, when set, receives the final sink payload as JSON.
	OutputFile string `mapstructure:"output_file" yaml:"output_file"`
}

// ArtifactsConfig controls best-effort diagnostic dumps.
type ArtifactsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// MealieConfig holds the recipe sink connection details.
type MealieConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Token   string        `mapstructure:"token" yaml:"-"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "snap2mealie")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.chat_url", "https://duck.ai/chat")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "45s")
	v.SetDefault("browser.ready_timeout", "15s")
	v.SetDefault("browser.thumbnail_dir", "thumbnails")

	// -- Locator --
	v.SetDefault("locator.host_element", "duck-chat")
	v.SetDefault("locator.input_selector", `textarea[name="user-prompt"]`)
	v.SetDefault("locator.fallback_input_selector", `textarea, input[type="text"], [contenteditable="true"]`)
	v.SetDefault("locator.submit_selector", `button[type="submit"]`)
	v.SetDefault("locator.decoy_field_names", []string{"state"})
	v.SetDefault("locator.shadow_wait", "10s")
	v.SetDefault("locator.poll_interval", "250ms")

	// -- Chat --
	v.SetDefault("chat.submit_timeout", "60s")
	v.SetDefault("chat.poll_interval", "500ms")
	v.SetDefault("chat.post_submit_delay", "4s")

	// -- Assembly --
	v.SetDefault("assembly.language", "en")
	v.SetDefault("assembly.step_probe", false)
	v.SetDefault("assembly.max_steps", 30)
	v.SetDefault("assembly.output_file", "final_recipe.json")

	// -- Artifacts --
	v.SetDefault("artifacts.enabled", true)
	v.SetDefault("artifacts.dir", "debug")

	// -- Mealie --
	v.SetDefault("mealie.base_url", "")
	v.SetDefault("mealie.timeout", "30s")
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("mealie.token", "SNAP2MEALIE_MEALIE_TOKEN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the token if Unmarshal didn't pick it up.
	if cfg.Mealie.Token == "" {
		cfg.Mealie.Token = os.Getenv("SNAP2MEALIE_MEALIE_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.ChatURL == "" {
		return fmt.Errorf("browser.chat_url is a required configuration field")
	}
	if c.Locator.HostElement == "" && c.Locator.FallbackInputSelector == "" {
		return fmt.Errorf("locator requires at least one of host_element or fallback_input_selector")
	}
	if c.Chat.SubmitTimeout <= 0 {
		return fmt.Errorf("chat.submit_timeout must be a positive duration")
	}
	if c.Chat.PollInterval <= 0 {
		return fmt.Errorf("chat.poll_interval must be a positive duration")
	}
	if c.Assembly.MaxSteps <= 0 {
		return fmt.Errorf("assembly.max_steps must be greater than 0")
	}
	return nil
}
