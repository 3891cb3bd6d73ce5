package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	JWTSecret      string
	JWTTTL         time.Duration
	JWTRememberTTL time.Duration

	RabbitURL       string
	SweepInterval   time.Duration
	UpstreamTimeout time.Duration
	Location        *time.Location

	Tenants []TenantConfig
}

// TenantConfig todo lo que aísla a una tienda de la otra.
type TenantConfig struct {
	Name     string
	Brand    string
	MongoURI string
	MongoDB  string
	Loyalty  bool

	SMTP       SMTPConfig
	SalesEmail string
	K2         K2Config
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	SSL      bool
}

type K2Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Till         string
	CallbackURL  string
}

// Enabled sin credenciales el STK queda deshabilitado para el tenant.
func (k K2Config) Enabled() bool {
	return k.BaseURL != "" && k.ClientID != "" && k.ClientSecret != ""
}

type tenantDefaults struct {
	name    string
	brand   string
	loyalty bool
}

var tenants = []tenantDefaults{
	{name: "arobisca", brand: "Arobisca", loyalty: false},
	{name: "playbox", brand: "Playbox", loyalty: true},
}

func Load() (*Config, error) {
	// .env es opcional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("no se pudo leer .env")
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		RabbitURL: getEnv("RABBIT_URL", ""),
	}

	var err error
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.JWTRememberTTL, err = getDuration("JWT_REMEMBER_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("NOTIFICATION_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	tz := getEnv("TIMEZONE", "Africa/Nairobi")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	for _, d := range tenants {
		t, err := loadTenant(d)
		if err != nil {
			return nil, err
		}
		cfg.Tenants = append(cfg.Tenants, t)
	}
	return cfg, nil
}

func loadTenant(d tenantDefaults) (TenantConfig, error) {
	prefix := strings.ToUpper(d.name) + "_"
	key := func(k string) string { return prefix + k }

	t := TenantConfig{
		Name:       d.name,
		Brand:      d.brand,
		MongoURI:   getEnv(key("MONGO_URI"), "mongodb://localhost:27017"),
		MongoDB:    getEnv(key("MONGO_DB"), d.name),
		SalesEmail: getEnv(key("SALES_EMAIL"), ""),
		SMTP: SMTPConfig{
			Host:     getEnv(key("SMTP_HOST"), ""),
			User:     getEnv(key("SMTP_USER"), ""),
			Password: getEnv(key("SMTP_PASSWORD"), ""),
			From:     getEnv(key("SMTP_FROM"), ""),
		},
		K2: K2Config{
			BaseURL:      getEnv(key("K2_BASE_URL"), ""),
			ClientID:     getEnv(key("K2_CLIENT_ID"), ""),
			ClientSecret: getEnv(key("K2_CLIENT_SECRET"), ""),
			Till:         getEnv(key("K2_TILL"), ""),
			CallbackURL:  getEnv(key("K2_CALLBACK_URL"), ""),
		},
	}

	var err error
	if t.SMTP.Port, err = getInt(key("SMTP_PORT"), 587); err != nil {
		return t, err
	}
	if t.SMTP.SSL, err = getBool(key("SMTP_SSL"), false); err != nil {
		return t, err
	}
	if t.Loyalty, err = getBool(key("LOYALTY"), d.loyalty); err != nil {
		return t, err
	}
	return t, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
