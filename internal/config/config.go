// Package config loads graphplay's settings with viper: a handful of
// engine/device knobs read from a config file, in the
// same shape the rest of the pack uses for its own (much larger) settings
// trees.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/errors"
)

// Settings is graphplay's whole configuration surface.
type Settings struct {
	Device struct {
		Name       string `mapstructure:"name"`
		BufferMs   uint   `mapstructure:"buffer_ms"`
		SampleRate uint   `mapstructure:"sample_rate"`
		Channels   uint   `mapstructure:"channels"`
		Null       bool   `mapstructure:"null"`
	} `mapstructure:"device"`

	Engine struct {
		EnableCaching bool `mapstructure:"enable_caching"`
		EnableEffects bool `mapstructure:"enable_effects"`
	} `mapstructure:"engine"`

	Log struct {
		Level string `mapstructure:"level"`
		Path  string `mapstructure:"path"`
	} `mapstructure:"log"`
}

// Default returns the settings graphplay runs with absent any config file
// or flag overrides.
func Default() *Settings {
	s := &Settings{}
	s.Device.BufferMs = 20
	s.Device.SampleRate = 44100
	s.Device.Channels = 2
	s.Engine.EnableCaching = true
	s.Engine.EnableEffects = true
	s.Log.Level = "info"
	s.Log.Path = "logs/graphcore.log"
	return s
}

// Format translates the device settings into the audio.Format the engine
// negotiates against.
func (s *Settings) Format() audio.Format {
	return audio.Format{
		SampleType:   audio.SampleTypeFloat32,
		SampleRate:   s.Device.SampleRate,
		ChannelCount: s.Device.Channels,
	}
}

// Load reads settings from configPath (if non-empty and present) into a
// copy of Default. It uses its own viper instance, so flags bound to the
// global viper are not consulted.
func Load(configPath string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("GRAPHPLAY")
	v.AutomaticEnv()

	settings := Default()
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.Wrap(fmt.Errorf("applying default config: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(fmt.Errorf("reading config file %s: %w", configPath, err)).
				Category(errors.CategoryConfiguration).
				Context("path", configPath).
				Build()
		}
		if err := v.Unmarshal(settings); err != nil {
			return nil, errors.Wrap(fmt.Errorf("parsing config file %s: %w", configPath, err)).
				Category(errors.CategoryConfiguration).
				Context("path", configPath).
				Build()
		}
	}

	return settings, nil
}
