// config.go
// Copyright (C) Andrew Woodlee 2023
// License: Apache-2.0

// Package config loads the agent configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

const EnvPrefix = "REMOTECONF_"

var configFiles = []string{"./remoteconf.yml", "./remoteconf.yaml", "~/.config/remoteconf/remoteconf.yml", "~/.config/remoteconf/remoteconf.yaml"}

type Config struct {
	HTTP    HTTPSettings    `koanf:"http"`
	Logging LoggingSettings `koanf:"logging"`
	Status  StatusSettings  `koanf:"status"`
	Notify  NotifySettings  `koanf:"notify"`

	// FilePath is the file the configuration was read from, if any.
	FilePath string `koanf:"-"`

	// Properties holds every loaded key flattened; it is the lowest layer of
	// the merged environment.
	Properties map[string]string `koanf:"-"`
}

type HTTPSettings struct {
	URL               string            `koanf:"url"`
	Attributes        map[string]string `koanf:"attributes"`
	PersistenceFile   string            `koanf:"persistence-file"`
	Frequency         time.Duration     `koanf:"frequency"`
	ConnectionTimeout time.Duration     `koanf:"connection-timeout"`
	SocketTimeout     time.Duration     `koanf:"socket-timeout"`
	Fallback          bool              `koanf:"fallback"`
}

type LoggingSettings struct {
	File            string `koanf:"file"`
	Verbose         bool   `koanf:"verbose"`
	ConsoleDisabled bool   `koanf:"console-disabled"`
}

type StatusSettings struct {
	Listen string `koanf:"listen"`
}

type NotifySettings struct {
	RedisAddr string `koanf:"redis-addr"`
	Channel   string `koanf:"channel"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"http.frequency":          "30s",
		"http.connection-timeout": "10s",
		"http.socket-timeout":     "5s",
		"http.fallback":           false,
		"logging.file":            "./remoteconf.log",
		"notify.channel":          "remoteconf:changes",
	}
}

// Load reads path, or the first existing default location when path is
// empty, then applies REMOTECONF_ environment variables on top. A .env file
// in the working directory is loaded into the process environment first.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "loading defaults")
	}

	path, err := findConfigFile(strings.TrimSpace(path))
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "loading config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "loading environment")
	}

	cfg := &Config{FilePath: path}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}

	cfg.Properties = make(map[string]string)
	for key, v := range k.All() {
		cfg.Properties[key] = fmt.Sprint(v)
	}

	if cfg.HTTP.PersistenceFile != "" {
		expanded, err := homedir.Expand(cfg.HTTP.PersistenceFile)
		if err != nil {
			return nil, errors.Wrap(err, "expanding persistence-file")
		}
		cfg.HTTP.PersistenceFile = expanded
	}
	if cfg.Logging.File != "" {
		expanded, err := homedir.Expand(cfg.Logging.File)
		if err != nil {
			return nil, errors.Wrap(err, "expanding logging.file")
		}
		cfg.Logging.File = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the agent cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.HTTP.URL)
	if err != nil {
		return errors.Wrap(err, "http.url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("http.url must be an http or https URL, got %q", c.HTTP.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("http.url has no host: %q", c.HTTP.URL)
	}
	if c.HTTP.Frequency <= 0 {
		return fmt.Errorf("http.frequency must be positive, got %s", c.HTTP.Frequency)
	}
	return nil
}

// envKey maps REMOTECONF_HTTP__PERSISTENCE_FILE to http.persistence-file.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	s = strings.ReplaceAll(s, "__", ".")
	return strings.ReplaceAll(s, "_", "-")
}

func findConfigFile(path string) (string, error) {
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return "", errors.Wrapf(err, "expanding %s", path)
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", errors.Wrapf(err, "could not open config file %s", path)
		}
		return expanded, nil
	}

	for _, c := range configFiles {
		expanded, err := homedir.Expand(c)
		if err != nil {
			continue
		}
		if _, err := os.Stat(expanded); err == nil {
			return expanded, nil
		}
	}
	return "", nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "loading %s", path)
	}
	return nil
}
