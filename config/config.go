// Package config loads the server configuration from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/erikbos/moontv-server/database"
)

// EnvPrefix is the prefix of environment variables, e.g. MOONTV_LISTEN_PORT.
const EnvPrefix = "MOONTV"

type (
	Config struct {
		Listen Listen `mapstructure:"listen"`
		Owner  Owner  `mapstructure:"owner"`
		// JWTSecret signs login tokens, defaults to the owner password
		JWTSecret string        `mapstructure:"jwtsecret"`
		TokenTTL  time.Duration `mapstructure:"tokenttl"`
		// MaxUploadSize is the largest accepted backup upload in bytes
		MaxUploadSize int64           `mapstructure:"maxuploadsize"`
		LogLevel      string          `mapstructure:"loglevel"`
		Storage       database.Config `mapstructure:"storage"`
	}

	Listen struct {
		Port    int    `mapstructure:"port"`
		TLSCert string `mapstructure:"tlscert"`
		TLSKey  string `mapstructure:"tlskey"`
	}

	// Owner is the site owner. The owner is not stored in the storage backend.
	Owner struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	}
)

// legacyEnv are environment variable names of earlier deployments.
var legacyEnv = map[string][]string{
	"owner.username":       {"USERNAME"},
	"owner.password":       {"PASSWORD"},
	"storage.type":         {"NEXT_PUBLIC_STORAGE_TYPE", "STORAGE_TYPE"},
	"storage.redis.url":    {"REDIS_URL", "KVROCKS_URL", "UPSTASH_URL"},
	"storage.postgres.dsn": {"DATABASE_URL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen.port", 3000)
	v.SetDefault("listen.tlscert", "")
	v.SetDefault("listen.tlskey", "")
	v.SetDefault("owner.username", "")
	v.SetDefault("owner.password", "")
	v.SetDefault("jwtsecret", "")
	v.SetDefault("tokenttl", 24*time.Hour)
	v.SetDefault("maxuploadsize", 256<<20)
	v.SetDefault("loglevel", "info")

	v.SetDefault("storage.type", "localstorage")
	v.SetDefault("storage.sqlite.dsn", "moontv.db")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.redis.url", "")
	v.SetDefault("storage.redis.addr", "")
	v.SetDefault("storage.redis.username", "")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.accesskey", "")
	v.SetDefault("storage.s3.secretkey", "")
	v.SetDefault("storage.s3.bucket", "moontv")
	v.SetDefault("storage.s3.usessl", true)
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.projectid", "")
	v.SetDefault("storage.gcs.credentialsfile", "")
}

// Load reads the configuration. Values are taken, in increasing priority,
// from defaults, the config file, environment variables and flags. A .env
// file in the working directory is loaded into the environment first.
// configFile may be empty.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envNames := append([]string{key, envName(key)}, names...)
		if err := v.BindEnv(envNames...); err != nil {
			return nil, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"port":         "listen.port",
	"tls-cert":     "listen.tlscert",
	"tls-key":      "listen.tlskey",
	"log-level":    "loglevel",
	"storage-type": "storage.type",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ErrNoSigningKey is returned when login tokens cannot be signed.
var ErrNoSigningKey = errors.New("jwtsecret or owner password must be set to sign login tokens")

// SigningKey returns the key that signs login tokens.
func (c *Config) SigningKey() (string, error) {
	if c.JWTSecret == "" {
		return "", ErrNoSigningKey
	}
	return c.JWTSecret, nil
}

func (c *Config) validate() error {
	if _, err := c.Storage.Kind(); err != nil {
		return err
	}
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("invalid listen port %d", c.Listen.Port)
	}
	if (c.Listen.TLSCert == "") != (c.Listen.TLSKey == "") {
		return errors.New("tlscert and tlskey must be set together")
	}
	if c.JWTSecret == "" {
		c.JWTSecret = c.Owner.Password
	}
	return nil
}
