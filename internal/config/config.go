// Package config loads and validates the copilot's runtime configuration.
//
// Unlike the Mattermost plugin this project is descended from, there is no
// host server to push configuration at us, so viper reads it once at process
// start from flags, environment variables (CAC_-prefixed) and an optional
// config file, the same precedence cobra/viper CLI tools in this corpus use.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every externally tunable knob named or implied by the
// specification: timeouts (§5), decision thresholds (§4.5), the LLM reviewer
// endpoint (§4.5), and server bind address (§6).
type Config struct {
	// Site and run shape.
	BaseURL      string `mapstructure:"base_url"`
	MaxOrders    int    `mapstructure:"max_orders"`
	StoreDir     string `mapstructure:"store_dir"`
	ListenAddr   string `mapstructure:"listen_addr"`
	DebugLogging bool   `mapstructure:"debug_logging"`

	// §5 suspension-point timeouts.
	ElementTimeout   time.Duration `mapstructure:"element_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ModalTimeout     time.Duration `mapstructure:"modal_timeout"`
	CartUpdateWindow time.Duration `mapstructure:"cart_update_window"`
	PopupDismissRounds int         `mapstructure:"popup_dismiss_rounds"`

	// §4.7 keep-alive / janitor.
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`
	StaleRunMaxAge    time.Duration `mapstructure:"stale_run_max_age"`

	// §4.5 decision tuning.
	ConservativeMode   bool    `mapstructure:"conservative_mode"`
	MinPruneConfidence float64 `mapstructure:"min_prune_confidence"`
	LLMReviewEnabled   bool    `mapstructure:"llm_review_enabled"`
	LLMConfidenceFloor float64 `mapstructure:"llm_confidence_floor"`
	LLMEndpoint        string  `mapstructure:"llm_endpoint"`
	LLMAPIKey          string  `mapstructure:"llm_api_key"`

	// Rate limiting on the protocol surface (§6, supplemented).
	RateLimitMaxRequests int           `mapstructure:"rate_limit_max_requests"`
	RateLimitWindow      time.Duration `mapstructure:"rate_limit_window"`
}

// Clone returns a shallow copy, mirroring the hot-swappable-config idiom of
// the plugin this project descends from.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Defaults returns the configuration with every default from §5's timeout
// table and sane fallbacks for everything else.
func Defaults() *Config {
	return &Config{
		BaseURL:            "https://www.auchan.pt",
		MaxOrders:          50,
		StoreDir:           "./data",
		ListenAddr:         ":8088",
		ElementTimeout:     3 * time.Second,
		NavigationTimeout:  15 * time.Second,
		ModalTimeout:       5 * time.Second,
		CartUpdateWindow:   3 * time.Second,
		PopupDismissRounds: 3,
		KeepAliveInterval:  20 * time.Second,
		StaleRunMaxAge:     24 * time.Hour,
		ConservativeMode:   false,
		MinPruneConfidence: 0.7,
		LLMReviewEnabled:   false,
		LLMConfidenceFloor: 0.75,
		RateLimitMaxRequests: 100,
		RateLimitWindow:      time.Minute,
	}
}

// Load builds a Config from defaults, an optional file, and CAC_-prefixed
// environment variables, in that precedence order (file overrides defaults,
// env overrides file) — the same layering viper gives stormdb's CLI.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	def := Defaults()
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("max_orders", def.MaxOrders)
	v.SetDefault("store_dir", def.StoreDir)
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("debug_logging", def.DebugLogging)
	v.SetDefault("element_timeout", def.ElementTimeout)
	v.SetDefault("navigation_timeout", def.NavigationTimeout)
	v.SetDefault("modal_timeout", def.ModalTimeout)
	v.SetDefault("cart_update_window", def.CartUpdateWindow)
	v.SetDefault("popup_dismiss_rounds", def.PopupDismissRounds)
	v.SetDefault("keep_alive_interval", def.KeepAliveInterval)
	v.SetDefault("stale_run_max_age", def.StaleRunMaxAge)
	v.SetDefault("conservative_mode", def.ConservativeMode)
	v.SetDefault("min_prune_confidence", def.MinPruneConfidence)
	v.SetDefault("llm_review_enabled", def.LLMReviewEnabled)
	v.SetDefault("llm_confidence_floor", def.LLMConfidenceFloor)
	v.SetDefault("llm_endpoint", def.LLMEndpoint)
	v.SetDefault("llm_api_key", def.LLMAPIKey)
	v.SetDefault("rate_limit_max_requests", def.RateLimitMaxRequests)
	v.SetDefault("rate_limit_window", def.RateLimitWindow)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", configFile, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and well-formed.
// Mirrors the plugin's configuration.IsValid() shape: return an error for
// the caller to decide whether it's fatal, rather than logging internally.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.MaxOrders <= 0 {
		return fmt.Errorf("max_orders must be positive, got %d", c.MaxOrders)
	}
	if c.StoreDir == "" {
		return fmt.Errorf("store_dir is required")
	}
	if c.MinPruneConfidence < 0 || c.MinPruneConfidence > 1 {
		return fmt.Errorf("min_prune_confidence must be in [0,1], got %f", c.MinPruneConfidence)
	}
	if c.LLMReviewEnabled && c.LLMEndpoint == "" {
		return fmt.Errorf("llm_review_enabled is set but llm_endpoint is empty")
	}
	if c.PopupDismissRounds <= 0 {
		return fmt.Errorf("popup_dismiss_rounds must be positive, got %d", c.PopupDismissRounds)
	}
	return nil
}
