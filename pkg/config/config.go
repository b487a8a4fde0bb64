package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"tableflip.dev/daynotes/pkg/note"
)

// EnvConfigPath names a directory searched for the config file before the
// working directory.
const EnvConfigPath = "DAYNOTES_CONFIG_PATH"

// Backends.
const (
	BackendDisk   = "disk"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is where and how daynotes keeps its data.
type Config interface {
	BasePath() string
}

// File is the resolved configuration.
type File struct {
	Path    string      `json:"path"`
	Backend string      `json:"backend"`
	Device  string      `json:"device"`
	Locale  note.Locale `json:"locale"`

	Redis struct {
		URL    string `json:"url"`
		Prefix string `json:"prefix"`
	} `json:"redis"`

	Auth struct {
		Secret      string        `json:"-"`
		RecentLogin time.Duration `json:"recentLogin"`
		TokenTTL    time.Duration `json:"tokenTTL"`
	} `json:"auth"`

	Log struct {
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"log"`

	// Used is the config file that was read, if any.
	Used string `json:"used,omitempty"`
}

var _ Config = (*File)(nil)

// BasePath is the directory the disk backend and the device store live in.
func (f *File) BasePath() string {
	return f.Path
}

// Load reads .daynotes.{yaml,json,toml} from $DAYNOTES_CONFIG_PATH or the
// working directory. A missing file is not an error; every key can also be
// set from the environment, for example DAYNOTES_REDIS_URL.
func Load() (*File, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*File, error) {
	v.SetDefault("path", "~/.daynotes")
	v.SetDefault("backend", BackendDisk)
	v.SetDefault("device", "default")
	v.SetDefault("locale", string(note.DefaultLocale))
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.prefix", "daynotes:")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.recentLogin", "5m")
	v.SetDefault("auth.tokenTTL", "720h")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")

	v.SetConfigName(".daynotes") // .yaml is implicit
	v.SetEnvPrefix("DAYNOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv(EnvConfigPath); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	path, err := homedir.Expand(v.GetString("path"))
	if err != nil {
		return nil, fmt.Errorf("config: expand path: %w", err)
	}

	f := &File{
		Path:    path,
		Backend: strings.ToLower(v.GetString("backend")),
		Device:  v.GetString("device"),
		Locale:  note.ParseLocale(v.GetString("locale")),
		Used:    v.ConfigFileUsed(),
	}
	f.Redis.URL = v.GetString("redis.url")
	f.Redis.Prefix = v.GetString("redis.prefix")
	f.Auth.Secret = v.GetString("auth.secret")
	f.Auth.RecentLogin = v.GetDuration("auth.recentLogin")
	f.Auth.TokenTTL = v.GetDuration("auth.tokenTTL")
	f.Log.Level = v.GetString("log.level")
	f.Log.Format = v.GetString("log.format")

	switch f.Backend {
	case BackendDisk, BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("config: unknown backend %q", f.Backend)
	}
	return f, nil
}
