package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var loadEnvOnce sync.Once

// MustNew panics when the environment cannot satisfy the config struct T.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New populates a config struct T from the process environment, honoring
// envconfig tags and defaults. An optional .env file (path taken from
// AGENT_ENV_FILE, falling back to ./.env when present) is exported into the
// environment first, so precedence is: real environment > .env file > tag
// default.
func New[T any](prefix string) (*T, error) {
	var loadErr error
	loadEnvOnce.Do(func() {
		loadErr = loadEnvFile()
	})
	if loadErr != nil {
		return nil, fmt.Errorf("load env file: %w", loadErr)
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv("AGENT_ENV_FILE"))
	if path == "" {
		info, err := os.Stat(".env")
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		path = ".env"
	}
	return exportEnvironment(path)
}

func exportEnvironment(path string) error {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return err
	}
	for k, v := range viper.AllSettings() {
		key := strings.ToUpper(k)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(v)); err != nil {
			return err
		}
	}
	return nil
}
