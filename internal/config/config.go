package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RunConfig holds configuration for the run subcommand.
type RunConfig struct {
	Commands  string
	EventsOut string
	Snapshot  string
	PGDSN     string
	RunName   string
	BatchSize int
	LogLevel  string
}

// LoadRun merges config file, environment variables, and flags into RunConfig.
func LoadRun(cfgFile string, flags *pflag.FlagSet) (RunConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"events-out": "./data/events.jsonl",
		"snapshot":   "./data/snapshot.json",
		"run-name":   "default",
		"batch-size": 100,
		"log-level":  "info",
	})
	if err != nil {
		return RunConfig{}, err
	}

	cfg := RunConfig{
		Commands:  v.GetString("commands"),
		EventsOut: v.GetString("events-out"),
		Snapshot:  v.GetString("snapshot"),
		PGDSN:     v.GetString("pg-dsn"),
		RunName:   v.GetString("run-name"),
		BatchSize: v.GetInt("batch-size"),
		LogLevel:  v.GetString("log-level"),
	}

	return cfg, nil
}

// ReplayConfig holds configuration for the replay subcommand.
type ReplayConfig struct {
	Events   string
	LogLevel string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"log-level": "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		Events:   v.GetString("events"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}

// ClearConfig holds configuration for the clear subcommand.
type ClearConfig struct {
	Bids     string
	Supply   string
	MinPrice string
	LogLevel string
}

// LoadClear merges config file, environment variables, and flags into ClearConfig.
func LoadClear(cfgFile string, flags *pflag.FlagSet) (ClearConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"min-price": "1",
		"log-level": "info",
	})
	if err != nil {
		return ClearConfig{}, err
	}

	cfg := ClearConfig{
		Bids:     v.GetString("bids"),
		Supply:   v.GetString("supply"),
		MinPrice: v.GetString("min-price"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("MARKETSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
