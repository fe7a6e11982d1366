package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelaudio/graphcore/internal/config"
)

var configPath string

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "graphplay",
		Short: "Drive the graphcore audio engine from the command line",
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a graphplay config file")
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(devicesCommand())
	root.AddCommand(validateCommand())
	root.AddCommand(playCommand())

	return root
}

func loadSettings() (*config.Settings, error) {
	return config.Load(configPath)
}
