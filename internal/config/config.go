// Package config loads emitter settings from an optional config file and
// EMITTER_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-kafka-emitter/internal/emitter"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. EMITTER_CONNECTION_STRING.
const EnvPrefix = "EMITTER"

// Config mirrors the file and environment keys; Emitter converts it.
type Config struct {
	ClientID         string        `mapstructure:"client_id"`
	ConnectionString string        `mapstructure:"connection_string"`
	RequireAcks      int           `mapstructure:"require_acks"`
	ConsumerGroup    string        `mapstructure:"consumer_group"`
	Codec            string        `mapstructure:"codec"`
	FlushInterval    time.Duration `mapstructure:"flush_interval"`
	ManualFlush      bool          `mapstructure:"manual_flush"`
	MaxBuffered      int           `mapstructure:"max_buffered"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("client_id", "")
	v.SetDefault("connection_string", "")
	v.SetDefault("require_acks", emitter.DefaultRequireAcks)
	v.SetDefault("consumer_group", "")
	v.SetDefault("codec", "json")
	v.SetDefault("flush_interval", emitter.DefaultFlushInterval)
	v.SetDefault("manual_flush", false)
	v.SetDefault("max_buffered", 0)
}

// Load reads path (if not empty) and then the environment, which wins.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Emitter converts the loaded settings into an emitter.Config.
func (c Config) Emitter() emitter.Config {
	return emitter.Config{
		ClientID:         c.ClientID,
		ConnectionString: c.ConnectionString,
		RequireAcks:      c.RequireAcks,
		ConsumerGroup:    c.ConsumerGroup,
		Codec:            c.Codec,
		FlushInterval:    c.FlushInterval,
		ManualFlush:      c.ManualFlush,
		MaxBuffered:      c.MaxBuffered,
	}
}
