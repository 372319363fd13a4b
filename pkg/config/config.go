package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for staticpush
type Config struct {
	Workspace          string                       `mapstructure:"workspace"`
	Repos              []string                     `mapstructure:"repos"`
	Environment        string                       `mapstructure:"environment"`
	Concurrency        int                          `mapstructure:"concurrency"`
	FileTypesWhitelist []string                     `mapstructure:"file_types_whitelist"`
	JS                 JSConfig                     `mapstructure:"js"`
	CSS                CSSConfig                    `mapstructure:"css"`
	Environments       map[string]EnvironmentConfig `mapstructure:"environments"`
}

// JSConfig holds javascript bundling options
type JSConfig struct {
	Minify JSMinifyConfig `mapstructure:"minify"`
}

// JSMinifyConfig mirrors the minifier's output/compressor/mangle option groups
type JSMinifyConfig struct {
	Compress bool                 `mapstructure:"compress"`
	Mangle   bool                 `mapstructure:"mangle"`
	Output   JSMinifyOutputConfig `mapstructure:"output"`
}

// JSMinifyOutputConfig controls how minified code is printed
type JSMinifyOutputConfig struct {
	Comments string `mapstructure:"comments"` // "none", "inline", "eof"
	Charset  string `mapstructure:"charset"`  // "ascii", "utf8"
}

// CSSConfig holds stylesheet bundling options
type CSSConfig struct {
	Clean CSSCleanConfig `mapstructure:"clean"`
}

// CSSCleanConfig gates the single compaction pass over a concatenated bundle
type CSSCleanConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// EnvironmentConfig holds per-environment settings
type EnvironmentConfig struct {
	Store *StoreConfig `mapstructure:"store"`
}

// StoreConfig describes the remote object store of one environment
type StoreConfig struct {
	Driver      string `mapstructure:"driver"` // "s3" or "minio"
	Bucket      string `mapstructure:"bucket"`
	Region      string `mapstructure:"region"`
	Endpoint    string `mapstructure:"endpoint"`
	PathStyle   bool   `mapstructure:"path_style"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	CDN         string `mapstructure:"cdn"`
	Gzip        bool   `mapstructure:"gzip"`
	CacheMaxAge int    `mapstructure:"cache_max_age"`
}

// DefaultFileTypesWhitelist lists the declared asset groups considered during discovery
var DefaultFileTypesWhitelist = []string{"js", "css", "html", "img", "fonts", "swf", "pdf", "plain", "manifest"}

var defaultConfig = Config{
	Workspace:          ".",
	Environment:        "local",
	Concurrency:        0,
	FileTypesWhitelist: DefaultFileTypesWhitelist,
	JS: JSConfig{
		Minify: JSMinifyConfig{
			Compress: true,
			Mangle:   true,
			Output:   JSMinifyOutputConfig{Comments: "none", Charset: "utf8"},
		},
	},
	CSS: CSSConfig{Clean: CSSCleanConfig{Enabled: false}},
}

// DefaultCacheMaxAge is the Cache-Control max-age, in seconds, of published assets
const DefaultCacheMaxAge = 300

// New returns a viper instance with defaults, search paths and environment binding set.
// Commands bind their flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("workspace", defaultConfig.Workspace)
	v.SetDefault("repos", []string{})
	v.SetDefault("environment", defaultConfig.Environment)
	v.SetDefault("concurrency", defaultConfig.Concurrency)
	v.SetDefault("file_types_whitelist", defaultConfig.FileTypesWhitelist)
	v.SetDefault("js.minify.compress", defaultConfig.JS.Minify.Compress)
	v.SetDefault("js.minify.mangle", defaultConfig.JS.Minify.Mangle)
	v.SetDefault("js.minify.output.comments", defaultConfig.JS.Minify.Output.Comments)
	v.SetDefault("js.minify.output.charset", defaultConfig.JS.Minify.Output.Charset)
	v.SetDefault("css.clean.enabled", defaultConfig.CSS.Clean.Enabled)

	v.SetConfigName("staticpush")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if configDir, err := GetConfigDir(); err == nil {
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix("STATICPUSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file into v and unmarshals the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("error reading config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// LoadConfig loads configuration from the default sources
func LoadConfig() (*Config, error) {
	return Load(New())
}

// LoadFile loads configuration from an explicit file on top of the defaults
func LoadFile(path string) (*Config, error) {
	v := New()
	v.SetConfigFile(path)
	return Load(v)
}

// Store returns the store configuration of env, or false when none is configured.
func (c *Config) Store(env string) (StoreConfig, bool) {
	ec, ok := c.Environments[env]
	if !ok || ec.Store == nil || ec.Store.Bucket == "" {
		return StoreConfig{}, false
	}
	sc := *ec.Store
	if sc.Driver == "" {
		sc.Driver = "s3"
	}
	if sc.CacheMaxAge <= 0 {
		sc.CacheMaxAge = DefaultCacheMaxAge
	}
	return sc, true
}

// Workers returns the service build concurrency bound
func (c *Config) Workers() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return runtime.NumCPU()
}

// Whitelist returns the declared asset groups considered during discovery
func (c *Config) Whitelist() []string {
	if len(c.FileTypesWhitelist) == 0 {
		return DefaultFileTypesWhitelist
	}
	return c.FileTypesWhitelist
}

// RepoPath resolves a repository name against the workspace
func (c *Config) RepoPath(repo string) string {
	if filepath.IsAbs(repo) {
		return repo
	}
	ws := c.Workspace
	if strings.HasPrefix(ws, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			ws = filepath.Join(home, strings.TrimPrefix(ws, "~"))
		}
	}
	return filepath.Join(ws, repo)
}

// GetHome returns the staticpush home directory
func GetHome() (string, error) {
	if home := os.Getenv("STATICPUSH_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".staticpush"), nil
}

// GetConfigDir returns the config directory within the staticpush home. It is not
// created; a missing directory simply contributes no config file.
func GetConfigDir() (string, error) {
	homeDir, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, "config"), nil
}
