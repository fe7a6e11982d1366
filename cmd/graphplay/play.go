package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/decoder"
	"github.com/kestrelaudio/graphcore/internal/device"
	"github.com/kestrelaudio/graphcore/internal/engine"
	"github.com/kestrelaudio/graphcore/internal/logging"
)

func playCommand() *cobra.Command {
	var (
		musicPath  string
		effectPath string
		deviceName string
		seconds    uint
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start the standard engine graph and play a music/effect file through it",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return fmt.Errorf("loading settings: %w", err)
			}

			format := settings.Format()
			eng := engine.New(engine.Config{
				Name:          "graphplay",
				Format:        format,
				Loader:        audio.NewFileLoader(""),
				DecoderFactory: decoder.WAVFactory{},
				PCMCache:      audio.NewPCMCache(0, time.Minute),
				FileInfoCache: audio.NewFileInfoCache(0, time.Minute),
				EnableCaching: settings.Engine.EnableCaching,
				EnableEffects: settings.Engine.EnableEffects,
			})

			var out audio.PlaybackDevice
			if settings.Device.Null {
				out = device.NewNullDevice(format)
			} else {
				out = device.NewMalgoDevice("graphplay", deviceName, format)
			}

			if err := eng.Start(out); err != nil {
				return fmt.Errorf("starting engine: %w", err)
			}
			defer eng.Stop()

			if musicPath != "" {
				if err := eng.PlayMusic(fileSourceGraph(musicPath, format), 0); err != nil {
					return fmt.Errorf("playing music %s: %w", musicPath, err)
				}
			}
			if effectPath != "" {
				if err := eng.PlaySoundEffect(fileSourceGraph(effectPath, format), 0); err != nil {
					return fmt.Errorf("playing effect %s: %w", effectPath, err)
				}
			}

			deadline := time.After(time.Duration(seconds) * time.Second)
			ticker := time.NewTicker(200 * time.Millisecond)
			defer ticker.Stop()
			events := &engine.EventQueue{}
			for {
				select {
				case <-deadline:
					return nil
				case <-ticker.C:
					eng.Update(events)
					for _, ev := range events.Drain() {
						logging.Info("graphplay event", "type", ev.Type, "track", ev.Track, "source", ev.Source)
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&musicPath, "music", "", "WAV file to play on the music bus")
	cmd.Flags().StringVar(&effectPath, "effect", "", "WAV file to play on the effect bus")
	cmd.Flags().StringVar(&deviceName, "device", "", "playback device name substring (empty for default)")
	cmd.Flags().UintVar(&seconds, "seconds", 10, "how long to run before exiting")
	_ = viper.BindPFlags(cmd.Flags())

	return cmd
}

// fileSourceGraph builds the smallest GraphHandle that plays a single WAV
// file: one FileSource element feeding the graph's own output directly.
func fileSourceGraph(path string, format audio.Format) engine.GraphHandle {
	name := filepath.Base(path)
	gc := audio.NewGraphClass(name, name)
	gc.AddElement(audio.ElementCreateArgs{
		Type: "FileSource",
		Name: name,
		ID:   name,
		Args: map[string]audio.ElementArg{
			"file":        path,
			"sample_type": format.SampleType,
			"loop_count":  uint(1),
		},
	})
	gc.SetOutput(name, "out")
	return gc
}
