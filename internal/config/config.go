package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"tweeter/internal/storage"
)

// Config represents the main application configuration
type Config struct {
	Server    ServerConfig   `mapstructure:"server"`
	Database  storage.Config `mapstructure:"database"`
	Session   SessionConfig  `mapstructure:"session"`
	Auth      AuthConfig     `mapstructure:"auth"`
	Log       LogConfig      `mapstructure:"log"`
	Templates DirConfig      `mapstructure:"templates"`
	Static    DirConfig      `mapstructure:"static"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type SessionConfig struct {
	Backend  string        `mapstructure:"backend"` // "cookie" or "jwt"
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // optional extra sink
}

type DirConfig struct {
	Dir string `mapstructure:"dir"`
}

// DevSecret is the fallback session secret. Anything deployed must override it.
const DevSecret = "development-secret-change-me"

////////////////////////////////////////////////////////////////////////////////

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.type", storage.TypeSQLite)
	v.SetDefault("database.path", "/tmp/tweeter.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("session.backend", "cookie")
	v.SetDefault("session.secret", DevSecret)
	v.SetDefault("session.token_ttl", 24*time.Hour)

	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("templates.dir", "templates")
	v.SetDefault("static.dir", "static")
}

// Load reads defaults, then the YAML file at path if one is given, then
// TWEETER_* environment variables (TWEETER_DATABASE_PATH overrides
// database.path).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("tweeter")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
