// Package config loads runtime settings with viper and copies them into a
// container's parameter table.
//
//	v, err := config.Load(config.WithDotenv(".env"), config.WithFile("app.yaml"), config.WithEnvPrefix("APP"))
//	if err != nil {
//		return err
//	}
//	if err := config.Apply(c, v); err != nil {
//		return err
//	}
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/xraph/keel"
)

// Option configures Load.
type Option func(*options)

type options struct {
	files     []string
	dotenv    []string
	envPrefix string
	envKeys   []string
	defaults  map[string]any
}

// WithFile reads a config file. The format follows the extension (yaml,
// json, toml and the other formats viper knows). Later files override
// earlier ones.
func WithFile(path string) Option {
	return func(o *options) {
		o.files = append(o.files, path)
	}
}

// WithDotenv loads .env files into the process environment before the
// environment is read. Missing files are skipped. Variables that are already
// set are not overwritten.
func WithDotenv(files ...string) Option {
	return func(o *options) {
		if len(files) == 0 {
			files = []string{".env"}
		}
		o.dotenv = append(o.dotenv, files...)
	}
}

// WithEnvPrefix makes every key overridable by PREFIX_KEY, with dots in the
// key written as underscores.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithEnvKeys binds keys that exist only in the environment, so they are
// listed by AllKeys and copied by Apply.
func WithEnvKeys(keys ...string) Option {
	return func(o *options) {
		o.envKeys = append(o.envKeys, keys...)
	}
}

// WithDefault sets a value used when no other source provides key.
func WithDefault(key string, value any) Option {
	return func(o *options) {
		if o.defaults == nil {
			o.defaults = make(map[string]any)
		}
		o.defaults[key] = value
	}
}

// Load builds a viper instance from the configured sources. Precedence is
// environment, then files, then defaults.
func Load(opts ...Option) (*viper.Viper, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	for _, file := range o.dotenv {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load dotenv %s: %w", file, err)
		}
	}

	v := viper.New()

	for key, value := range o.defaults {
		v.SetDefault(key, value)
	}

	for i, file := range o.files {
		v.SetConfigFile(file)

		read := v.MergeInConfig
		if i == 0 {
			read = v.ReadInConfig
		}

		if err := read(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	if o.envPrefix != "" {
		v.SetEnvPrefix(o.envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}

	for _, key := range o.envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	return v, nil
}

// Apply copies every setting of v into the parameter table of c, in key
// order. Keys the container rejects are reported together; the remaining
// keys are still applied.
func Apply(c keel.Container, v *viper.Viper) error {
	keys := v.AllKeys()
	sort.Strings(keys)

	var err error
	for _, key := range keys {
		err = multierr.Append(err, c.SetParameter(key, v.Get(key)))
	}

	return err
}
