package main

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"chronos"
)

// config keys, also the flag names
const (
	keySampleRate = "sample-rate"
	keyArena      = "arena"
	keyLogLevel   = "log-level"
	keyNoColor    = "no-color"
	keyBuffer     = "buffer"
	keyHistory    = "history"
)

// initConfig reads $HOME/.chronos.yaml, or cfgFile when given, and the
// CHRONOS_ environment. A missing default file is not an error.
func initConfig(cfgFile string) error {
	viper.SetDefault(keyHistory, ".chronos_history")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".chronos")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("chronos")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

func logLevel() chronos.Level {
	l, err := chronos.ParseLevel(viper.GetString(keyLogLevel))
	if err != nil {
		return chronos.LogInfo
	}
	return l
}

func engineOptions(log zerolog.Logger) []chronos.Option {
	return []chronos.Option{
		chronos.WithArenaSize(viper.GetInt(keyArena)),
		chronos.WithLogLevel(logLevel()),
		chronos.WithLogger(log),
	}
}

// historyPath resolves the REPL history file, relative names are taken
// from the home directory.
func historyPath() string {
	p, err := homedir.Expand(viper.GetString(keyHistory))
	if err != nil || filepath.IsAbs(p) {
		return p
	}
	home, err := homedir.Dir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p)
}
