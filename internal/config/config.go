package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the process configuration. Domain and APIs form the routing
// document; the remaining sections configure the process around it.
type Config struct {
	Domain   string         `mapstructure:"domain"`
	APIs     []APIConfig    `mapstructure:"apis" validate:"dive"`
	Server   ServerConfig   `mapstructure:"server"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Log      LogConfig      `mapstructure:"log"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Store    StoreConfig    `mapstructure:"store"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Version  VersionConfig  `mapstructure:"version"`

	// Multi is set when the loaded document carries an apis list.
	Multi bool `mapstructure:"-"`
	// File is the config file that was read, empty if none.
	File string `mapstructure:"-"`
}

// APIConfig is one routing entry.
type APIConfig struct {
	Name          string `mapstructure:"name" validate:"required"`
	Endpoint      string `mapstructure:"endpoint" validate:"required,url"`
	CustomModelID string `mapstructure:"custom_model_id" validate:"required"`
	TargetModelID string `mapstructure:"target_model_id" validate:"required"`
	StreamMode    string `mapstructure:"stream_mode" validate:"stream_mode"`
	Active        bool   `mapstructure:"active"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	HTTPMode bool   `mapstructure:"http_mode"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// DefaultsConfig is the single backend used when no routing document is
// present, and the fallback when a document has no entries.
type DefaultsConfig struct {
	TargetAPI   string `mapstructure:"target_api" validate:"required,url"`
	CustomModel string `mapstructure:"custom_model" validate:"required"`
	TargetModel string `mapstructure:"target_model" validate:"required"`
	StreamMode  string `mapstructure:"stream_mode" validate:"stream_mode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
}

type AuditConfig struct {
	Sink  string           `mapstructure:"sink" validate:"oneof=file redis both"`
	File  string           `mapstructure:"file"`
	Redis AuditRedisConfig `mapstructure:"redis"`
}

type AuditRedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
	MaxLen   int64  `mapstructure:"max_len"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type VersionConfig struct {
	Check bool   `mapstructure:"check"`
	URL   string `mapstructure:"url"`
}

// ListenPort resolves the port: 443 for TLS, 8443 in http mode.
func (s ServerConfig) ListenPort() int {
	if s.Port != 0 {
		return s.Port
	}
	if s.HTTPMode {
		return 8443
	}
	return 443
}

// Certificates returns the TLS key pair paths, defaulting to ca/<domain>.
func (c *Config) Certificates() (cert, key string) {
	cert, key = c.Server.CertFile, c.Server.KeyFile
	if cert == "" {
		cert = filepath.Join("ca", c.Domain+".crt")
	}
	if key == "" {
		key = filepath.Join("ca", c.Domain+".key")
	}
	return cert, key
}

// LogLevel is the configured level, forced to debug in debug mode.
func (c *Config) LogLevel() string {
	if c.Server.Debug {
		return "debug"
	}
	return c.Log.Level
}

// RegisterFlags defines the command line surface on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Routing document path (default ./config.yaml)")
	fs.String("target-api", "", "Target API base URL")
	fs.String("custom-model", "", "Model ID exposed to clients")
	fs.String("target-model", "", "Model ID sent to the target API")
	fs.String("stream-mode", "", "Force stream mode (true|false)")
	fs.Bool("debug", false, "Enable debug mode and the audit trail")
	fs.String("cert", "", "Certificate file path")
	fs.String("key", "", "Private key file path")
	fs.Bool("http-mode", false, "Serve plain HTTP, for use behind a reverse proxy")
	fs.Int("port", 0, "Server port (default 443, or 8443 in http mode)")
}

var flagKeys = map[string]string{
	"target-api":   "defaults.target_api",
	"custom-model": "defaults.custom_model",
	"target-model": "defaults.target_model",
	"stream-mode":  "defaults.stream_mode",
	"debug":        "server.debug",
	"cert":         "server.cert_file",
	"key":          "server.key_file",
	"http-mode":    "server.http_mode",
	"port":         "server.port",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("domain", "api.openai.com")

	v.SetDefault("server.port", 0)
	v.SetDefault("server.env", "production")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.http_mode", false)
	v.SetDefault("server.cert_file", "")
	v.SetDefault("server.key_file", "")

	v.SetDefault("defaults.target_api", "https://api.openai.com")
	v.SetDefault("defaults.custom_model", "gpt-4")
	v.SetDefault("defaults.target_model", "gpt-4")
	v.SetDefault("defaults.stream_mode", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("audit.sink", "file")
	v.SetDefault("audit.file", "debug_request.log")
	v.SetDefault("audit.redis.addr", "")
	v.SetDefault("audit.redis.password", "")
	v.SetDefault("audit.redis.db", 0)
	v.SetDefault("audit.redis.key", "relay:audit")
	v.SetDefault("audit.redis.max_len", 10000)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.dsn", "relay.db")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "model-relay")

	v.SetDefault("version.check", false)
	v.SetDefault("version.url", "")
}

// Loader reads and re-reads the configuration. Flags win over the
// environment, which wins over the file, which wins over defaults.
type Loader struct {
	v        *viper.Viper
	validate *Validator
}

// NewLoader prepares viper for the given flags. fs may be nil.
func NewLoader(fs *pflag.FlagSet) (*Loader, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := os.Getenv("CONFIG_FILE")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", flag, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	return &Loader{v: v, validate: NewValidator()}, nil
}

// Load reads the file (if any) and returns a validated Config.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	cfg.File = l.v.ConfigFileUsed()
	cfg.Multi = l.v.InConfig("apis")

	if err := l.validate.Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
