package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/stwalsh4118/dmrb/internal/aggregator"
	"github.com/stwalsh4118/dmrb/internal/deriver"
	"github.com/stwalsh4118/dmrb/internal/refresh"
	"github.com/stwalsh4118/dmrb/internal/source"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Source    SourceConfig
	Redis     RedisConfig
	Refresh   RefreshConfig
	Rules     RulesConfig
	Dashboard DashboardConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	RequestTimeout time.Duration
}

// SourceConfig says where the workbook comes from and how long it is cached.
// SOURCE_URL wins over SOURCE_FILE when both are set.
type SourceConfig struct {
	URL       string
	File      string
	UnitSheet string
	TaskSheet string
	Timeout   time.Duration
	CacheTTL  time.Duration
	Retries   int
}

// RedisConfig holds the optional shared cache. An empty Addr selects the
// in-process cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RefreshConfig holds the cache warm-up schedule. An empty Schedule disables it.
type RefreshConfig struct {
	Schedule string
}

// RulesConfig holds the unit classification vocabulary and thresholds.
type RulesConfig struct {
	ReadyStatuses      []string
	InTurnStatuses     []string
	BlockedKeywords    []string
	ThresholdFresh     int
	ThresholdIdle      int
	ThresholdAging     int
	ThresholdCritical  int
	InvertSuppliedDTBR bool
}

// DashboardConfig holds reporting settings.
type DashboardConfig struct {
	Timezone         string
	TotalUnits       int
	MovingWindowDays int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	return LoadWithOverrides(nil)
}

// LoadWithOverrides is Load with explicit values that win over the
// environment, keyed by environment variable name. The CLI uses it for flags.
func LoadWithOverrides(overrides map[string]interface{}) (*Config, error) {
	v := viper.New()

	defaultRules := deriver.DefaultRulesConfig()
	defaultAgg := aggregator.DefaultConfig()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	v.SetDefault("SOURCE_URL", "")
	v.SetDefault("SOURCE_FILE", "")
	v.SetDefault("SOURCE_TIMEOUT", "30s")
	v.SetDefault("SOURCE_RETRIES", 2)
	v.SetDefault("SOURCE_CACHE_TTL", "5m")
	v.SetDefault("UNIT_SHEET", "Unit")
	v.SetDefault("TASK_SHEET", "Task")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("REFRESH_SCHEDULE", "*/5 * * * *")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("TOTAL_UNITS", defaultAgg.TotalUnits)
	v.SetDefault("MOVING_WINDOW_DAYS", defaultAgg.MovingWindowDays)

	v.SetDefault("THRESHOLD_FRESH", defaultRules.Thresholds.Fresh)
	v.SetDefault("THRESHOLD_IDLE", defaultRules.Thresholds.Idle)
	v.SetDefault("THRESHOLD_AGING", defaultRules.Thresholds.Aging)
	v.SetDefault("THRESHOLD_CRITICAL", defaultRules.Thresholds.Critical)
	v.SetDefault("LIFECYCLE_READY", strings.Join(defaultRules.ReadyStatuses, ","))
	v.SetDefault("LIFECYCLE_IN_TURN", strings.Join(defaultRules.InTurnStatuses, ","))
	v.SetDefault("BLOCKED_KEYWORDS", strings.Join(defaultRules.BlockedKeywords, ","))
	v.SetDefault("INVERT_SUPPLIED_DTBR", defaultRules.InvertSuppliedDaysToReady)

	v.AutomaticEnv()
	for key, value := range overrides {
		v.Set(key, value)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			Env:            v.GetString("ENV"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		},
		Source: SourceConfig{
			URL:       strings.TrimSpace(v.GetString("SOURCE_URL")),
			File:      strings.TrimSpace(v.GetString("SOURCE_FILE")),
			UnitSheet: v.GetString("UNIT_SHEET"),
			TaskSheet: v.GetString("TASK_SHEET"),
			Timeout:   v.GetDuration("SOURCE_TIMEOUT"),
			CacheTTL:  v.GetDuration("SOURCE_CACHE_TTL"),
			Retries:   v.GetInt("SOURCE_RETRIES"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Refresh: RefreshConfig{
			Schedule: strings.TrimSpace(v.GetString("REFRESH_SCHEDULE")),
		},
		Rules: RulesConfig{
			ReadyStatuses:      parseList(v.GetString("LIFECYCLE_READY")),
			InTurnStatuses:     parseList(v.GetString("LIFECYCLE_IN_TURN")),
			BlockedKeywords:    parseList(v.GetString("BLOCKED_KEYWORDS")),
			ThresholdFresh:     v.GetInt("THRESHOLD_FRESH"),
			ThresholdIdle:      v.GetInt("THRESHOLD_IDLE"),
			ThresholdAging:     v.GetInt("THRESHOLD_AGING"),
			ThresholdCritical:  v.GetInt("THRESHOLD_CRITICAL"),
			InvertSuppliedDTBR: v.GetBool("INVERT_SUPPLIED_DTBR"),
		},
		Dashboard: DashboardConfig{
			Timezone:         v.GetString("TIMEZONE"),
			TotalUnits:       v.GetInt("TOTAL_UNITS"),
			MovingWindowDays: v.GetInt("MOVING_WINDOW_DAYS"),
		},
		CORS: CORSConfig{
			Origins: parseList(v.GetString("CORS_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be non-negative")
	}

	if c.Source.URL == "" && c.Source.File == "" {
		return fmt.Errorf("one of SOURCE_URL or SOURCE_FILE is required")
	}
	if c.Source.URL != "" && !strings.HasPrefix(c.Source.URL, "http://") && !strings.HasPrefix(c.Source.URL, "https://") {
		return fmt.Errorf("SOURCE_URL must be an http(s) URL")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT must be positive")
	}
	if c.Source.Retries < 0 {
		return fmt.Errorf("SOURCE_RETRIES must be non-negative")
	}
	if c.Source.CacheTTL < 0 {
		return fmt.Errorf("SOURCE_CACHE_TTL must be non-negative")
	}
	if strings.TrimSpace(c.Source.UnitSheet) == "" {
		return fmt.Errorf("UNIT_SHEET is required")
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("REDIS_DB must be non-negative")
	}

	if c.Refresh.Schedule != "" {
		if _, err := refresh.ParseSchedule(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("REFRESH_SCHEDULE is not a valid cron expression: %w", err)
		}
	}

	if _, err := time.LoadLocation(c.Dashboard.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a known time zone", c.Dashboard.Timezone)
	}
	if c.Dashboard.TotalUnits < 0 {
		return fmt.Errorf("TOTAL_UNITS must be non-negative")
	}
	if c.Dashboard.MovingWindowDays < 0 {
		return fmt.Errorf("MOVING_WINDOW_DAYS must be non-negative")
	}

	if _, err := deriver.NewRules(c.DeriverRules()); err != nil {
		return fmt.Errorf("THRESHOLD_* and LIFECYCLE_* settings are inconsistent: %w", err)
	}
	if err := c.AggregatorConfig().Validate(); err != nil {
		return err
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

// DeriverRules converts the rule settings for deriver.NewRules.
func (c *Config) DeriverRules() deriver.RulesConfig {
	return deriver.RulesConfig{
		Thresholds: deriver.Thresholds{
			Fresh:    c.Rules.ThresholdFresh,
			Idle:     c.Rules.ThresholdIdle,
			Aging:    c.Rules.ThresholdAging,
			Critical: c.Rules.ThresholdCritical,
		},
		ReadyStatuses:             c.Rules.ReadyStatuses,
		InTurnStatuses:            c.Rules.InTurnStatuses,
		BlockedKeywords:           c.Rules.BlockedKeywords,
		InvertSuppliedDaysToReady: c.Rules.InvertSuppliedDTBR,
	}
}

// AggregatorConfig derives the KPI settings. The SLA bound is the fresh
// threshold and the at-risk bound is the aging threshold.
func (c *Config) AggregatorConfig() aggregator.Config {
	agg := aggregator.DefaultConfig()
	agg.TotalUnits = c.Dashboard.TotalUnits
	agg.MovingWindowDays = c.Dashboard.MovingWindowDays
	agg.SLADays = c.Rules.ThresholdFresh
	agg.AtRiskDays = c.Rules.ThresholdAging
	return agg
}

// WorkbookOptions names the sheets to parse.
func (c *Config) WorkbookOptions() source.WorkbookOptions {
	return source.WorkbookOptions{UnitSheet: c.Source.UnitSheet, TaskSheet: c.Source.TaskSheet}
}

// Location returns the time zone that defines "today". Validate guarantees it
// loads; UTC is returned otherwise.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Dashboard.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseList splits a comma-separated string into trimmed, non-empty entries.
func parseList(list string) []string {
	if list == "" {
		return []string{}
	}

	parts := strings.Split(list, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
