package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

type Configuration struct {
	Matching      MatchingConfig      `koanf:"matching"`
	Filter        FilterConfiguration `koanf:"filter"`
	Linking       LinkingConfig       `koanf:"linking"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

type MatchingConfig struct {
	SameName    bool `koanf:"same_name"`
	IgnorePerms bool `koanf:"ignore_perms"`
	IgnoreTime  bool `koanf:"ignore_time"`
	ContentOnly bool `koanf:"content_only"`
	// MinSize and MaxSize accept humanized values, eg. "1k" or "10MiB". An empty MaxSize means no limit.
	MinSize string `koanf:"min_size"`
	MaxSize string `koanf:"max_size"`
	// SearchThreshold is the bucket size above which content digests are used to order candidates.
	// A negative value disables digests.
	SearchThreshold int `koanf:"search_threshold"`
}

type FilterConfiguration struct {
	Match      []string `koanf:"match"`
	Exclude    []string `koanf:"exclude"`
	IgnoreFile string   `koanf:"ignore_file"`
	// Expressions must all hold for a file to be scanned, or any of them when Any is set.
	Expressions []string `koanf:"expressions"`
	Any         bool     `koanf:"any"`
}

type LinkingConfig struct {
	// Rate limits link instructions per second, 0 disables the limit.
	Rate int `koanf:"rate"`
}

type NotificationsConfig struct {
	Detailed     bool                `koanf:"detailed"`
	SkipEmptyRun bool                `yaml:"skip_empty_run" koanf:"skip_empty_run"`
	Service      NotificationService `koanf:"service"`
}

type NotificationService struct {
	Discord string `koanf:"discord"`
}

const (
	Delimiter = "."
	EnvPrefix = "HARDLINKABLE__"
)

var (
	// Config is populated by Init.
	Config *Configuration

	K = koanf.New(Delimiter)
)

/* Public */

func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"matching.same_name":            false,
		"matching.ignore_perms":         false,
		"matching.ignore_time":          false,
		"matching.content_only":         false,
		"matching.min_size":             "1",
		"matching.max_size":             "",
		"matching.search_threshold":     1,
		"filter.match":                  []string{},
		"filter.exclude":                []string{},
		"filter.ignore_file":            "",
		"filter.expressions":            []string{},
		"filter.any":                    false,
		"linking.rate":                  0,
		"notifications.detailed":        false,
		"notifications.skip_empty_run":  true,
		"notifications.service.discord": "",
	}
}

// Init loads defaults, the optional config file and environment overrides into Config.
func Init(configFilePath string) error {
	cfg, err := Load(K, configFilePath)
	if err != nil {
		return err
	}

	Config = cfg
	return nil
}

func Load(k *koanf.Koanf, configFilePath string) (*Configuration, error) {
	if err := k.Load(confmap.Provider(Defaults(), Delimiter), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err == nil {
			if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", configFilePath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config file %s: %w", configFilePath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, Delimiter, envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Configuration{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return cfg, nil
}

// GetDefaultConfigDirectory prefers the working directory when it already holds filename,
// otherwise the XDG config directory for app.
func GetDefaultConfigDirectory(app string, filename string) string {
	if cwd, err := os.Getwd(); err == nil {
		if _, err := os.Stat(filepath.Join(cwd, filename)); err == nil {
			return cwd
		}
	}

	return filepath.Join(xdg.ConfigHome, app)
}

// ParseSize converts a humanized size into bytes. Single letter suffixes are binary
// multiples, so "1k" is 1024 bytes, as are "1KiB" and "1024".
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	lower := strings.ToLower(s)
	if n := len(lower); n > 1 && strings.ContainsRune("kmgtp", rune(lower[n-1])) && unicode.IsDigit(rune(lower[n-2])) {
		lower += "i"
	}

	size, err := humanize.ParseBytes(lower)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}

	return size, nil
}

/* Private */

// HARDLINKABLE__MATCHING__SAME_NAME -> matching.same_name
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", Delimiter)
}
