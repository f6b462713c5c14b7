package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/repository"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Username string  `yaml:"username"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebhookConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	ReturnURL string `yaml:"return_url"` // where the gateway redirects the payer after checkout
}

type AdminConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Password   string        `yaml:"password"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type YookassaConfig struct {
	ShopID    string `yaml:"shop_id"`
	SecretKey string `yaml:"secret_key"`
	Currency  string `yaml:"currency"`
}

type PaymentConfig struct {
	Yookassa YookassaConfig `yaml:"yookassa"`
}

type RemnawaveConfig struct {
	APIURL              string `yaml:"api_url"`
	Username            string `yaml:"username"`
	Password            string `yaml:"password"`
	SquadUUID           string `yaml:"squad_uuid"` // default provisioning group
	SubscriptionBaseURL string `yaml:"subscription_base_url"`
}

type ProviderConfig struct {
	Remnawave RemnawaveConfig `yaml:"remnawave"`
}

type TrialConfig struct {
	Days        int `yaml:"days"` // 0 = disabled
	DataLimitGB int `yaml:"data_limit_gb"`
}

type ReferralConfig struct {
	BonusDays int `yaml:"bonus_days"` // 0 = disabled
}

type CleanupConfig struct {
	ExpiredDays int           `yaml:"expired_days"` // 0 = disabled
	Interval    time.Duration `yaml:"interval"`
}

type PlanEntry struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Price        float64 `yaml:"price"` // major currency units (rubles)
	DurationDays int     `yaml:"duration_days"`
	DataLimitGB  int     `yaml:"data_limit_gb"`
	SquadUUID    string  `yaml:"squad_uuid"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Admin    AdminConfig    `yaml:"admin"`
	Payment  PaymentConfig  `yaml:"payment"`
	Provider ProviderConfig `yaml:"provider"`
	Trial    TrialConfig    `yaml:"trial"`
	Referral ReferralConfig `yaml:"referral"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`
	Plans    []PlanEntry    `yaml:"plans"`

	Runtime RuntimeConfig `yaml:"-"`

	plans []*model.Plan
}

var _ repository.PlanCatalog = (*Config)(nil)

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Webhook.Host == "" {
		cfg.Webhook.Host = "0.0.0.0"
	}
	if cfg.Webhook.Port == 0 {
		cfg.Webhook.Port = 8000
	}
	if cfg.Payment.Yookassa.Currency == "" {
		cfg.Payment.Yookassa.Currency = "RUB"
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Cleanup.Interval <= 0 {
		cfg.Cleanup.Interval = 24 * time.Hour
	}
	if len(cfg.Plans) == 0 {
		cfg.Plans = []PlanEntry{
			{ID: "monthly", Name: "1 month", Price: 199, DurationDays: 30},
			{ID: "3months", Name: "3 months", Price: 499, DurationDays: 90},
			{ID: "yearly", Name: "12 months", Price: 1499, DurationDays: 365},
		}
	}

	// minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Provider.Remnawave.APIURL == "" {
		return nil, errors.New("provider.remnawave.api_url is required")
	}
	if cfg.Payment.Yookassa.ShopID == "" || cfg.Payment.Yookassa.SecretKey == "" {
		return nil, errors.New("payment.yookassa credentials are required")
	}

	if err := cfg.buildCatalog(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (c *Config) buildCatalog() error {
	c.plans = c.plans[:0]
	for _, e := range c.Plans {
		p, err := model.NewPlan(e.ID, e.Name, Kopeks(e.Price), e.DurationDays, e.DataLimitGB, e.SquadUUID)
		if err != nil {
			return fmt.Errorf("plan %q: %w", e.ID, err)
		}
		c.plans = append(c.plans, p)
	}
	return nil
}

// ByID resolves a plan id against the static catalog.
func (c *Config) ByID(id string) (*model.Plan, bool) {
	for _, p := range c.plans {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (c *Config) All() []*model.Plan {
	out := make([]*model.Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// Kopeks converts a major-unit price to minor units.
func Kopeks(price float64) int64 {
	return int64(math.Round(price * 100))
}
