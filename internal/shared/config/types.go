package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	Timezone       string   `mapstructure:"timezone"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
	RefreshExpDays   int    `mapstructure:"refresh_exp_days"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type EmailConfig struct {
	SMTPHost     string   `mapstructure:"smtp_host"`
	SMTPPort     int      `mapstructure:"smtp_port"`
	SMTPUser     string   `mapstructure:"smtp_user"`
	SMTPPassword string   `mapstructure:"smtp_password"`
	FromAddress  string   `mapstructure:"from_address"`
	FromName     string   `mapstructure:"from_name"`
	SecurityTo   []string `mapstructure:"security_to"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// RateLimitConfig controls the per-credential request limiter and the
// violation-driven auto-blacklist.
type RateLimitConfig struct {
	RequestsPerMinute  int `mapstructure:"requests_per_minute"`
	ViolationThreshold int `mapstructure:"violation_threshold"`
	ViolationWindowMin int `mapstructure:"violation_window_minutes"`
	BlacklistHours     int `mapstructure:"blacklist_hours"`
}

func (r *RateLimitConfig) ViolationWindow() time.Duration {
	return time.Duration(r.ViolationWindowMin) * time.Minute
}

func (r *RateLimitConfig) BlacklistDuration() time.Duration {
	return time.Duration(r.BlacklistHours) * time.Hour
}

// PipelineConfig holds the ingestion and attendance-derivation tuning knobs.
type PipelineConfig struct {
	DuplicateWindowMinutes int     `mapstructure:"duplicate_window_minutes"`
	MinQualityScore        int     `mapstructure:"min_quality_score"`
	MaxPunchesPerDay       int     `mapstructure:"max_punches_per_day"`
	BreakDeductionHours    float64 `mapstructure:"break_deduction_hours"`
	BreakThresholdHours    float64 `mapstructure:"break_threshold_hours"`
	StandardWorkdayHours   float64 `mapstructure:"standard_workday_hours"`
	ReprocessBatchSize     int     `mapstructure:"reprocess_batch_size"`
	ReprocessIntervalSec   int     `mapstructure:"reprocess_interval_seconds"`
}

// CredentialConfig holds device credential lifecycle settings.
type CredentialConfig struct {
	DefaultTTLDays    int `mapstructure:"default_ttl_days"`
	ExpiryWarningDays int `mapstructure:"expiry_warning_days"`
}
