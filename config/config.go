package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/stowage"
	stowagehttp "github.com/sagarc03/stowage/http"
	"github.com/sagarc03/stowage/keybackend"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for stowage.
type Config struct {
	Store   StoreConfig            `mapstructure:"store" yaml:"store"`
	Server  ServerConfig           `mapstructure:"server" yaml:"server"`
	Auth    AuthConfig             `mapstructure:"auth" yaml:"auth"`
	Gateway GatewayConfig          `mapstructure:"gateway" yaml:"gateway"`
	CORS    stowagehttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Log     LogConfig              `mapstructure:"log" yaml:"log"`
}

// StoreConfig selects the backend and holds its settings.
type StoreConfig struct {
	Backend            string            `mapstructure:"backend" yaml:"backend" validate:"required,oneof=filesystem object s3 minio memory"`
	RootPath           string            `mapstructure:"root_path" yaml:"root_path" validate:"required_if=Backend filesystem"`
	Bucket             string            `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Buckets            map[string]string `mapstructure:"buckets" yaml:"buckets,omitempty"`
	Namespace          string            `mapstructure:"namespace" yaml:"namespace,omitempty"`
	URLExpires         time.Duration     `mapstructure:"url_expires" yaml:"url_expires" validate:"min=0,max=168h"`
	AllowUnscopedClear bool              `mapstructure:"allow_unscoped_clear" yaml:"allow_unscoped_clear"`
	UploadConcurrency  int               `mapstructure:"upload_concurrency" yaml:"upload_concurrency" validate:"min=1"`

	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	Secure    bool   `mapstructure:"secure" yaml:"secure"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size" yaml:"max_upload_size" validate:"min=0"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Read  string                `mapstructure:"read" yaml:"read" validate:"required,oneof=public private"`
	Write string                `mapstructure:"write" yaml:"write" validate:"required,oneof=public private"`
	AWS   AWSConfig             `mapstructure:"aws" yaml:"aws"`
	Keys  keybackend.KeysConfig `mapstructure:"keys" yaml:"keys"`
}

// AWSConfig holds the scope AWS Signature V4 requests must be signed for.
type AWSConfig struct {
	Region  string `mapstructure:"region" yaml:"region" validate:"required"`
	Service string `mapstructure:"service" yaml:"service" validate:"required"`
}

// GatewayConfig tells filesystem stores where the gateway is reachable and
// which access key signs their URLs. An empty AccessKey picks the first
// configured key.
type GatewayConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// Options converts the store settings. Gateway signing keys are not set.
func (c StoreConfig) Options() stowage.Options {
	opts := stowage.Options{
		RootPath:           c.RootPath,
		URLExpires:         c.URLExpires,
		AllowUnscopedClear: c.AllowUnscopedClear,
		Client: stowage.ClientConfig{
			Endpoint:  c.Endpoint,
			Region:    c.Region,
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Secure:    c.Secure,
			PathStyle: c.PathStyle,
		},
	}

	if len(c.Buckets) > 0 {
		opts.Bucket = stowage.BucketPerPrefix(c.Buckets)
	} else if c.Bucket != "" {
		opts.Bucket = stowage.SingleBucket(c.Bucket)
	}

	if c.Namespace != "" {
		opts.Namespace = stowage.StaticNamespace(c.Namespace)
	}

	return opts
}

// SecretStore loads the configured access keys.
func (c *Config) SecretStore() (*keybackend.MapSecretStore, error) {
	return keybackend.NewSecretStore(c.Auth.Keys)
}

// Options returns store options including the gateway signing pair, when
// any access key is configured.
func (c *Config) Options() (stowage.Options, error) {
	opts := c.Store.Options()
	opts.Gateway.Endpoint = c.Gateway.Endpoint

	secrets, err := c.SecretStore()
	if err != nil {
		return stowage.Options{}, err
	}

	pair, err := secrets.SigningPair(c.Gateway.AccessKey)
	switch {
	case errors.Is(err, keybackend.ErrNoKeys):
		return opts, nil
	case err != nil:
		return stowage.Options{}, err
	}

	opts.Gateway.AccessKey = pair.AccessKey
	opts.Gateway.SecretKey = pair.SecretKey
	return opts, nil
}

const redacted = "********"

// Redacted returns a copy with every secret masked.
func (c Config) Redacted() Config {
	if c.Store.SecretKey != "" {
		c.Store.SecretKey = redacted
	}

	inline := make([]keybackend.KeyPair, len(c.Auth.Keys.Inline))
	for i, p := range c.Auth.Keys.Inline {
		inline[i] = keybackend.KeyPair{AccessKey: p.AccessKey, SecretKey: redacted}
	}
	c.Auth.Keys.Inline = inline

	return c
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"backend":   "store.backend",
	"root-path": "store.root_path",
	"bucket":    "store.bucket",
	"namespace": "store.namespace",
	"endpoint":  "store.endpoint",
	"region":    "store.region",
	"log-level": "log.level",
	"port":      "server.port",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey, ok := flagToViperKey[f.Name]
		if !ok {
			return
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Every key
// has a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", "filesystem")
	v.SetDefault("store.root_path", "./data")
	v.SetDefault("store.bucket", "")
	v.SetDefault("store.namespace", "")
	v.SetDefault("store.url_expires", stowage.DefaultURLExpires)
	v.SetDefault("store.allow_unscoped_clear", false)
	v.SetDefault("store.upload_concurrency", 8)
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.region", "")
	v.SetDefault("store.access_key", "")
	v.SetDefault("store.secret_key", "")
	v.SetDefault("store.secure", false)
	v.SetDefault("store.path_style", false)

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("auth.read", "public")
	v.SetDefault("auth.write", "public")
	v.SetDefault("auth.aws.region", "us-east-1")
	v.SetDefault("auth.aws.service", "s3")
	v.SetDefault("auth.keys.file", "")

	v.SetDefault("gateway.endpoint", "http://localhost:5708")
	v.SetDefault("gateway.access_key", "")

	v.SetDefault("cors.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("stowage")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("STOWAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
