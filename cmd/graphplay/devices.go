package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelaudio/graphcore/internal/device"
)

func devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available playback devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := device.EnumeratePlaybackDevices()
			if err != nil {
				return fmt.Errorf("enumerating playback devices: %w", err)
			}
			for _, d := range devices {
				marker := " "
				if d.IsDefault {
					marker = "*"
				}
				fmt.Printf("%s %d: %s (%s)\n", marker, d.Index, d.Name, d.ID)
			}
			return nil
		},
	}
}
