package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/audio/elements"
)

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <graph.json>",
		Short: "Parse a graph class file, build it, and print its hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			gc, err := audio.GraphClassFromJSON(data)
			if err != nil {
				return fmt.Errorf("parsing graph class: %w", err)
			}

			if _, err := elements.BuildGraph(gc); err != nil {
				return fmt.Errorf("building graph: %w", err)
			}

			fmt.Printf("graph %q (%s): %d elements, hash %x\n", gc.Name, gc.ID, len(gc.Elements), gc.Hash())
			return nil
		},
	}
}
