package main

import (
	"fmt"
	"strings"
	"time"

	goSnap "github.com/MrEthical07/goSnap"
	"github.com/MrEthical07/goSnap/session"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces environment overrides. GOSNAP_ENDPOINT_BASE_URL maps
// to endpoint.base_url.
const envPrefix = "GOSNAP_"

type fileConfig struct {
	Credentials struct {
		APIKey    string `koanf:"api_key"`
		APISecret string `koanf:"api_secret"`
		UserAgent string `koanf:"user_agent"`
	} `koanf:"credentials"`

	Endpoint struct {
		BaseURL         string        `koanf:"base_url"`
		Timeout         time.Duration `koanf:"timeout"`
		RequestTokenTTL time.Duration `koanf:"request_token_ttl"`
	} `koanf:"endpoint"`

	Session struct {
		RestoreFreshness   time.Duration `koanf:"restore_freshness"`
		DefaultCountryCode string        `koanf:"default_country_code"`
	} `koanf:"session"`

	Cache struct {
		TokenTTL    time.Duration `koanf:"token_ttl"`
		RedisPrefix string        `koanf:"redis_prefix"`
		RedisAddr   string        `koanf:"redis_addr"`
	} `koanf:"cache"`

	Screen struct {
		Idiom string `koanf:"idiom"`
	} `koanf:"screen"`

	Audit struct {
		Enabled    bool   `koanf:"enabled"`
		BufferSize int    `koanf:"buffer_size"`
		DropIfFull bool   `koanf:"drop_if_full"`
		File       string `koanf:"file"`
	} `koanf:"audit"`

	Log struct {
		Level string `koanf:"level"`
		JSON  bool   `koanf:"json"`
	} `koanf:"log"`
}

func defaultFileConfig() fileConfig {
	d := goSnap.DefaultConfig()

	var fc fileConfig
	fc.Endpoint.Timeout = d.Endpoint.Timeout
	fc.Endpoint.RequestTokenTTL = d.Endpoint.RequestTokenTTL
	fc.Session.RestoreFreshness = d.Session.RestoreFreshness
	fc.Session.DefaultCountryCode = d.Session.DefaultCountryCode
	fc.Cache.TokenTTL = d.Cache.TokenTTL
	fc.Cache.RedisPrefix = d.Cache.RedisPrefix
	fc.Screen.Idiom = "iphone5"
	fc.Audit.BufferSize = d.Audit.BufferSize
	fc.Audit.DropIfFull = d.Audit.DropIfFull
	fc.Log.Level = "warn"
	return fc
}

// loadConfig reads defaults, then the YAML file at path (if any), then
// GOSNAP_ environment variables.
func loadConfig(path string) (fileConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fileConfig{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return fileConfig{}, fmt.Errorf("load env: %w", err)
	}

	fc := defaultFileConfig()
	if err := k.Unmarshal("", &fc); err != nil {
		return fileConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return fc, nil
}

// envKey maps GOSNAP_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, field, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + field
}

func (fc fileConfig) clientConfig() (goSnap.Config, error) {
	cfg := goSnap.DefaultConfig()

	cfg.Credentials.APIKey = fc.Credentials.APIKey
	cfg.Credentials.APISecret = fc.Credentials.APISecret
	cfg.Credentials.UserAgent = fc.Credentials.UserAgent

	cfg.Endpoint.BaseURL = fc.Endpoint.BaseURL
	cfg.Endpoint.Timeout = fc.Endpoint.Timeout
	cfg.Endpoint.RequestTokenTTL = fc.Endpoint.RequestTokenTTL

	cfg.Session.RestoreFreshness = fc.Session.RestoreFreshness
	cfg.Session.DefaultCountryCode = fc.Session.DefaultCountryCode

	cfg.Cache.TokenTTL = fc.Cache.TokenTTL
	cfg.Cache.RedisPrefix = fc.Cache.RedisPrefix

	idiom, err := parseIdiom(fc.Screen.Idiom)
	if err != nil {
		return goSnap.Config{}, err
	}
	cfg.Screen.Idiom = idiom

	cfg.Audit.Enabled = fc.Audit.Enabled
	cfg.Audit.BufferSize = fc.Audit.BufferSize
	cfg.Audit.DropIfFull = fc.Audit.DropIfFull

	if err := cfg.Validate(); err != nil {
		return goSnap.Config{}, err
	}
	return cfg, nil
}

func parseIdiom(s string) (session.ScreenIdiom, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "iphone5":
		return session.ScreenIdiomIPhone5, nil
	case "iphone4":
		return session.ScreenIdiomIPhone4, nil
	case "iphone6":
		return session.ScreenIdiomIPhone6, nil
	case "iphone6plus", "iphone6+":
		return session.ScreenIdiomIPhone6Plus, nil
	default:
		return 0, fmt.Errorf("unknown screen idiom %q", s)
	}
}
