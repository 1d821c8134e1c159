package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Email       EmailConfig       `mapstructure:"email"`
	App         AppConfig         `mapstructure:"app"`
	Workers     WorkersConfig     `mapstructure:"workers"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	Issuer             string        `mapstructure:"issuer"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	BootstrapTicketTTL time.Duration `mapstructure:"bootstrap_ticket_ttl"`
}

type CredentialsConfig struct {
	PasswordValidityMonths  int           `mapstructure:"password_validity_months"`
	ResetTokenTTL           time.Duration `mapstructure:"reset_token_ttl"`
	TemporaryPasswordLength int           `mapstructure:"temporary_password_length"`
}

type RateLimitConfig struct {
	AuthPerMinute int `mapstructure:"auth_per_minute"`
	AuthBurst     int `mapstructure:"auth_burst"`
	// TrustedProxies lists the addresses or CIDRs whose forwarding headers
	// name the client. Empty means the connection address is always used.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type EmailConfig struct {
	Provider    string        `mapstructure:"provider"`
	FromAddress string        `mapstructure:"from_address"`
	FromName    string        `mapstructure:"from_name"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Brevo       BrevoConfig   `mapstructure:"brevo"`
}

type BrevoConfig struct {
	APIURL string `mapstructure:"api_url"`
	APIKey string `mapstructure:"api_key"`
}

type AppConfig struct {
	BaseURL                 string `mapstructure:"base_url"`
	ConcealAccountExistence bool   `mapstructure:"conceal_account_existence"`
}

type WorkersConfig struct {
	HousekeepingInterval time.Duration `mapstructure:"housekeeping_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.url", "file:./data/releaseguard.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("jwt.issuer", "releaseguard")
	v.SetDefault("jwt.access_token_ttl", 12*time.Hour)
	v.SetDefault("jwt.bootstrap_ticket_ttl", 30*time.Minute)

	v.SetDefault("credentials.password_validity_months", 3)
	v.SetDefault("credentials.reset_token_ttl", time.Hour)
	v.SetDefault("credentials.temporary_password_length", 10)

	v.SetDefault("rate_limit.auth_per_minute", 10)
	v.SetDefault("rate_limit.auth_burst", 10)
	v.SetDefault("rate_limit.trusted_proxies", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("email.provider", "log")
	v.SetDefault("email.from_name", "ReleaseGuard")
	v.SetDefault("email.timeout", 10*time.Second)
	v.SetDefault("email.brevo.api_url", "https://api.brevo.com")

	v.SetDefault("app.base_url", "http://localhost:3000")

	v.SetDefault("workers.housekeeping_interval", 15*time.Minute)
}

func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
