// Package config loads runtime settings. Values are layered: built-in
// defaults, then an optional YAML file, then a .env file and the process
// environment. Command-line flags are applied by the caller on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yuzeguitarist/text2qr/internal/app"
	"github.com/yuzeguitarist/text2qr/internal/qr"
)

var (
	ErrReadFile      = errors.New("failed to read config file")
	ErrParsingConfig = errors.New("failed to parse configuration")
	ErrInvalid       = errors.New("invalid configuration")
)

// Truthy is a boolean that accepts true, 1, t, yes and y in any case.
type Truthy bool

func (t *Truthy) UnmarshalText(b []byte) error {
	*t = Truthy(app.IsTruthy(string(b)))
	return nil
}

func (t *Truthy) UnmarshalYAML(n *yaml.Node) error {
	*t = Truthy(app.IsTruthy(n.Value))
	return nil
}

type Config struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	Debug           Truthy        `yaml:"debug" env:"IS_DEBUG"`
	LogFormat       string        `yaml:"log_format" env:"LOG_FORMAT"` // json or text; empty picks by Debug
	MaxTextLength   int           `yaml:"max_text_length" env:"MAX_TEXT_LENGTH"`
	QR              QR            `yaml:"qr"`
	CSRFKey         string        `yaml:"csrf_key" env:"CSRF_KEY"`
	SessionKey      string        `yaml:"session_key" env:"SESSION_KEY"`
	CookieSecure    Truthy        `yaml:"cookie_secure" env:"COOKIE_SECURE"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	TLS             TLS           `yaml:"tls"`
}

type QR struct {
	Level         string `yaml:"level" env:"QR_LEVEL"`
	ModuleSize    int    `yaml:"module_size" env:"QR_MODULE_SIZE"`
	LevelFallback Truthy `yaml:"level_fallback" env:"QR_LEVEL_FALLBACK"`
}

type TLS struct {
	CertFile   string `yaml:"cert_file" env:"TLS_CERT_FILE"`
	KeyFile    string `yaml:"key_file" env:"TLS_KEY_FILE"`
	SelfSigned Truthy `yaml:"self_signed" env:"TLS_SELF_SIGNED"`
}

func Default() *Config {
	return &Config{
		Host:          app.DefaultHost,
		Port:          app.DefaultPort,
		MaxTextLength: app.DefaultMaxTextLength,
		QR: QR{
			Level:         qr.Medium.String(),
			ModuleSize:    qr.DefaultModuleSize,
			LevelFallback: true,
		},
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load builds the configuration. path may be empty, in which case no YAML
// file is read. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadFlaskEnv(); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrReadFile, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(ErrParsingConfig, fmt.Errorf("%s: %w", path, err))
	}
	return nil
}

// flaskEnv holds the listen variables of the Flask deployment this app
// replaces. HOST and PORT take precedence over them.
type flaskEnv struct {
	Host string `env:"FLASK_RUN_HOST"`
	Port int    `env:"FLASK_RUN_PORT"`
}

func (c *Config) loadFlaskEnv() error {
	var fe flaskEnv
	if err := env.Parse(&fe); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	if fe.Host != "" {
		c.Host = fe.Host
	}
	if fe.Port != 0 {
		c.Port = fe.Port
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.LogFormat {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format %q: want json or text", c.LogFormat))
	}
	if c.MaxTextLength < 0 {
		errs = append(errs, fmt.Errorf("max_text_length %d is negative", c.MaxTextLength))
	}
	if _, err := qr.ParseLevel(c.QR.Level); err != nil {
		errs = append(errs, fmt.Errorf("qr.level: %w", err))
	}
	if c.QR.ModuleSize < 1 || c.QR.ModuleSize > qr.MaxModuleSize {
		errs = append(errs, fmt.Errorf("qr.module_size %d: want 1..%d", c.QR.ModuleSize, qr.MaxModuleSize))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout %s must be positive", c.ShutdownTimeout))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("tls.cert_file and tls.key_file must be set together"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalid}, errs...)...)
}

func (c *Config) IsDebug() bool { return bool(c.Debug) }

// TLSEnabled reports whether the form is served over HTTPS.
func (c *Config) TLSEnabled() bool {
	return c.TLS.CertFile != "" || bool(c.TLS.SelfSigned)
}

// Addr is the listen address in host:port form.
func (c *Config) Addr() string { return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) }

// SetListen overrides host and port from a host:port string.
func (c *Config) SetListen(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return errors.Join(ErrInvalid, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return errors.Join(ErrInvalid, fmt.Errorf("port %q: %w", port, err))
	}
	c.Host, c.Port = host, p
	return c.Validate()
}

// Encoder builds the QR encoder described by the configuration.
func (c *Config) Encoder() (*qr.Encoder, error) {
	level, err := qr.ParseLevel(c.QR.Level)
	if err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}
	return qr.New(
		qr.WithLevel(level),
		qr.WithModuleSize(c.QR.ModuleSize),
		qr.WithMaxLength(c.MaxTextLength),
		qr.WithFallback(bool(c.QR.LevelFallback)),
	), nil
}
