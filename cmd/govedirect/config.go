package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/mano8/govedirect/identity"
	"github.com/mano8/govedirect/supervisor"
)

// fileConfig mirrors the YAML shape of SPEC_FULL.md §6.
type fileConfig struct {
	Port          string `mapstructure:"port"`
	Baud          int    `mapstructure:"baud"`
	ReadTimeoutMs int    `mapstructure:"read_timeout_ms"`
	SourceName    string `mapstructure:"source_name"`
	Exclusive     bool   `mapstructure:"exclusive"`
	Tests         map[string]struct {
		Type  string `mapstructure:"type"`
		Key   string `mapstructure:"key"`
		Value string `mapstructure:"value"`
	} `mapstructure:"tests"`
}

// loadConfig reads path with viper and returns the supervisor connection
// configuration plus the identity test set used by Reconnect.
func loadConfig(path string) (supervisor.Config, identity.TestSet, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return supervisor.Config{}, nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return supervisor.Config{}, nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	readTimeout := time.Duration(fc.ReadTimeoutMs) * time.Millisecond
	cfg := supervisor.Config{
		PortPath:    fc.Port,
		Baud:        fc.Baud,
		ReadTimeout: &readTimeout,
		SourceName:  fc.SourceName,
		Exclusive:   fc.Exclusive,
	}

	descriptors := make(map[string]identity.Test, len(fc.Tests))
	for name, t := range fc.Tests {
		descriptors[name] = identity.Test{
			TypeTest: identity.TestKind(t.Type),
			Key:      t.Key,
			Value:    t.Value,
		}
	}
	tests, err := identity.NewTestSet(descriptors)
	if err != nil {
		return supervisor.Config{}, nil, err
	}

	return cfg, tests, nil
}
