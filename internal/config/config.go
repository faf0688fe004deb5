package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/fullpos/poscloud/params"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultListenAddr      = ":4000"
	DefaultAccessTokenTTL  = params.AccessTokenExpiration
	DefaultRefreshTokenTTL = params.RefreshTokenExpiration
)

type MySQLConfig struct {
	Dsn             string   `mapstructure:"dsn"`
	TablePrefix     string   `mapstructure:"tablePrefix"`
	Replicas        []string `mapstructure:"replicas"`
	MaxIdleConns    int      `mapstructure:"maxIdleConns"`
	MaxOpenConns    int      `mapstructure:"maxOpenConns"`
	ConnMaxIdleTime int      `mapstructure:"connMaxIdleTime"`
	ConnMaxLifetime int      `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	URL         string `mapstructure:"url"`
	PoolSize    int    `mapstructure:"poolSize"`
	ClusterMode bool   `mapstructure:"clusterMode"`
}

type JWTConfig struct {
	Secret          string        `mapstructure:"secret"`
	AccessTokenTTL  time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `mapstructure:"refreshTokenTTL"`
}

type OverrideConfig struct {
	APIKey           string        `mapstructure:"apiKey"`
	AllowPublicCloud bool          `mapstructure:"allowPublicCloud"`
	Issuer           string        `mapstructure:"issuer"`
	VerifyRateLimit  int           `mapstructure:"verifyRateLimit"`
	VerifyRateSpan   time.Duration `mapstructure:"verifyRateSpan"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`
}

type MailConfig struct {
	Backend string     `mapstructure:"backend"`
	From    string     `mapstructure:"from"`
	Notify  bool       `mapstructure:"notify"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

type Config struct {
	Debug        bool           `mapstructure:"debug"`
	ListenAddr   string         `mapstructure:"listenAddr"`
	AllowOrigins []string       `mapstructure:"allowOrigins"`
	MySQL        MySQLConfig    `mapstructure:"mysql"`
	Redis        RedisConfig    `mapstructure:"redis"`
	JWT          JWTConfig      `mapstructure:"jwt"`
	Override     OverrideConfig `mapstructure:"override"`
	Mail         MailConfig     `mapstructure:"mail"`
}

func (c *Config) Sanitize() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.JWT.AccessTokenTTL <= 0 {
		c.JWT.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.JWT.RefreshTokenTTL <= 0 {
		c.JWT.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.Override.Issuer == "" {
		c.Override.Issuer = params.OverrideIssuer
	}
	if c.Override.VerifyRateLimit <= 0 {
		c.Override.VerifyRateLimit = params.OverrideVerifyRateLimit
	}
	if c.Override.VerifyRateSpan <= 0 {
		c.Override.VerifyRateSpan = params.OverrideVerifyRateSpan
	}
	c.Override.APIKey = strings.TrimSpace(c.Override.APIKey)
	return nil
}

// LoadConfig reads the YAML file and lets environment variables override any
// key (mysql.dsn -> MYSQL_DSN). A .env file next to the binary is loaded first.
func LoadConfig(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(filename)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
