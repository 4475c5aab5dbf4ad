package sitegen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/labstack/gommon/log"

	"github.com/utilitygods/sitegen/og"
	"github.com/utilitygods/sitegen/sink"
)

// maxConfigSize limits the config file to 1MB.
const maxConfigSize = 1 << 20

// Environment variables that override secrets from the config file.
const (
	EnvAdminPassword = "SITEGEN_ADMIN_PASSWORD"
	EnvSessionSecret = "SITEGEN_SESSION_SECRET"
	EnvS3AccessKey   = "SITEGEN_S3_ACCESS_KEY"
	EnvS3SecretKey   = "SITEGEN_S3_SECRET_KEY"
)

// Sink kinds.
const (
	SinkFS = "fs"
	SinkS3 = "s3"
)

// SiteConfig holds all configuration for a site.
type SiteConfig struct {
	Name string `yaml:"name"` // default "utilitygods"
	URL  string `yaml:"url"`  // canonical URL (default "http://localhost:4321")

	ContentDir   string `yaml:"contentDir"`   // default "src/content"
	OutputDir    string `yaml:"outputDir"`    // default "dist"
	DatabasePath string `yaml:"databasePath"` // default "data/og.db"
	Addr         string `yaml:"addr"`         // default ":4321"

	Fonts    FontConfig `yaml:"fonts"`
	Workers  int        `yaml:"workers"` // 0 picks a count from GOMAXPROCS
	FailFast bool       `yaml:"failFast"`
	Sink     SinkConfig `yaml:"sink"`

	Admin AdminConfig `yaml:"admin"`

	CollectionCacheTTL Duration `yaml:"collectionCacheTTL"` // default 5m
}

// FontConfig selects the fonts previews are drawn with.
type FontConfig struct {
	Family  string   `yaml:"family"`  // default "Roboto"
	Regular string   `yaml:"regular"` // URL of the weight 400 font
	Bold    string   `yaml:"bold"`    // URL of the weight 700 font
	Timeout Duration `yaml:"timeout"` // per download, default 15s
	Cache   *bool    `yaml:"cache"`   // keep downloaded fonts for the process lifetime (default true)
}

// SinkConfig says where batch output goes.
type SinkConfig struct {
	Kind string            `yaml:"kind"` // "fs" (default) or "s3"
	S3   sink.BucketConfig `yaml:"s3"`
}

// AdminConfig guards the admin dashboard.
type AdminConfig struct {
	Password      string `yaml:"password"`
	SessionSecret string `yaml:"sessionSecret"`
	CookieSecure  bool   `yaml:"cookieSecure"`
}

// Duration is a time.Duration written as "300ms", "15s" or "5m" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "utilitygods"
	}
	if c.URL == "" {
		c.URL = "http://localhost:4321"
	}
	if c.ContentDir == "" {
		c.ContentDir = "src/content"
	}
	if c.OutputDir == "" {
		c.OutputDir = "dist"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/og.db"
	}
	if c.Addr == "" {
		c.Addr = ":4321"
	}
	if c.Fonts.Family == "" {
		c.Fonts.Family = og.RobotoRegular.Family
	}
	if c.Fonts.Regular == "" {
		c.Fonts.Regular = og.RobotoRegular.URL
	}
	if c.Fonts.Bold == "" {
		c.Fonts.Bold = og.RobotoBold.URL
	}
	if c.Fonts.Timeout == 0 {
		c.Fonts.Timeout = Duration(og.DefaultFontTimeout)
	}
	if c.Fonts.Cache == nil {
		on := true
		c.Fonts.Cache = &on
	}
	if c.Sink.Kind == "" {
		c.Sink.Kind = SinkFS
	}
	if c.CollectionCacheTTL == 0 {
		c.CollectionCacheTTL = Duration(5 * time.Minute)
	}
}

// Validate reports the first problem with the configuration.
func (c SiteConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrConfigInvalid)
	}
	if c.Fonts.Timeout < 0 {
		return fmt.Errorf("%w: fonts.timeout must not be negative", ErrConfigInvalid)
	}
	if c.CollectionCacheTTL < 0 {
		return fmt.Errorf("%w: collectionCacheTTL must not be negative", ErrConfigInvalid)
	}
	switch c.Sink.Kind {
	case "", SinkFS:
	case SinkS3:
		if err := c.Sink.S3.Validate(); err != nil {
			return fmt.Errorf("%w: sink.s3: %w", ErrConfigInvalid, err)
		}
	default:
		return fmt.Errorf("%w: unknown sink kind %q", ErrConfigInvalid, c.Sink.Kind)
	}
	return nil
}

// FontSources returns the regular and bold font sources.
func (c SiteConfig) FontSources() (og.FontSource, og.FontSource) {
	regular := og.FontSource{URL: c.Fonts.Regular, Family: c.Fonts.Family, Weight: 400, Style: "normal"}
	bold := og.FontSource{URL: c.Fonts.Bold, Family: c.Fonts.Family, Weight: 700, Style: "normal"}
	return regular, bold
}

// LoadConfig reads a YAML config file. Unknown keys are rejected. Secrets
// set in the environment replace the file's values.
func LoadConfig(path string) (SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return SiteConfig{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return SiteConfig{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return SiteConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML config data and applies environment overrides.
func ParseConfig(data []byte) (SiteConfig, error) {
	if len(data) > maxConfigSize {
		return SiteConfig{}, fmt.Errorf("%w: %d bytes (max %d)", ErrConfigParse, len(data), maxConfigSize)
	}
	var cfg SiteConfig
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
			return SiteConfig{}, fmt.Errorf("%w: %w", ErrConfigParse, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

func (c *SiteConfig) applyEnv() {
	c.Admin.Password = EnvOr(EnvAdminPassword, c.Admin.Password)
	c.Admin.SessionSecret = EnvOr(EnvSessionSecret, c.Admin.SessionSecret)
	c.Sink.S3.AccessKey = EnvOr(EnvS3AccessKey, c.Sink.S3.AccessKey)
	c.Sink.S3.SecretKey = EnvOr(EnvS3SecretKey, c.Sink.S3.SecretKey)
}

// Option configures additional App behavior.
type Option func(*App)

// WithViews replaces the default views. Nil fields keep their defaults.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithLogger sets the logger shared by the server and batch runs.
func WithLogger(l *log.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithFontLoader replaces the HTTP font loader.
func WithFontLoader(l og.FontLoader) Option {
	return func(a *App) {
		a.fonts = l
	}
}

// WithSink replaces the sink built from SiteConfig.Sink.
func WithSink(s sink.Sink) Option {
	return func(a *App) {
		a.Sink = s
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
